package schedule

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"selfiebot/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	views map[string]*View
	err   error
	saved []*View
}

func (s *stubStore) Get(ctx context.Context, date string) (*View, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.views[date], nil
}

func (s *stubStore) Save(ctx context.Context, view *View) error {
	s.saved = append(s.saved, view)
	return nil
}

type stubGenerator struct {
	view   *View
	err    error
	calls  int
	origin string
}

func (g *stubGenerator) Generate(ctx context.Context, day time.Time, origin string) (*View, error) {
	g.calls++
	g.origin = origin
	return g.view, g.err
}

var day = time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local)

func TestSource_StoreHit(t *testing.T) {
	store := &stubStore{views: map[string]*View{"2026-10-17": {Date: "2026-10-17", Outfit: "水手服"}}}
	gen := &stubGenerator{}

	view, err := NewSource(store, gen).TodaySchedule(context.Background(), day, "guild:1")
	require.NoError(t, err)
	assert.Equal(t, "水手服", view.Outfit)
	assert.Zero(t, gen.calls)
}

func TestSource_FallsBackToGenerator(t *testing.T) {
	gen := &stubGenerator{view: &View{Date: "2026-10-17", Outfit: "卫衣"}}

	view, err := NewSource(&stubStore{}, gen).TodaySchedule(context.Background(), day, "guild:1")
	require.NoError(t, err)
	assert.Equal(t, "卫衣", view.Outfit)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "guild:1", gen.origin)
}

func TestSource_StoreErrorStillGenerates(t *testing.T) {
	gen := &stubGenerator{view: &View{Outfit: "卫衣"}}

	view, err := NewSource(&stubStore{err: errors.New("down")}, gen).TodaySchedule(context.Background(), day, "")
	require.NoError(t, err)
	assert.Equal(t, "卫衣", view.Outfit)
}

func TestSource_NothingAvailable(t *testing.T) {
	view, err := NewSource(nil, nil).TodaySchedule(context.Background(), day, "")
	assert.NoError(t, err)
	assert.Nil(t, view)

	_, err = NewSource(nil, &stubGenerator{err: errors.New("quota")}).TodaySchedule(context.Background(), day, "")
	assert.ErrorContains(t, err, "quota")
}

type stubQuerier struct {
	rows     []interface{}
	table    string
	filter   map[string]interface{}
	upserted map[string]interface{}
	id       string
}

func (q *stubQuerier) SelectWhere(ctx context.Context, table string, filter map[string]interface{}, limit int) ([]interface{}, error) {
	q.table = table
	q.filter = filter
	return q.rows, nil
}

func (q *stubQuerier) Upsert(ctx context.Context, table, id string, data map[string]interface{}) error {
	q.table = table
	q.id = id
	q.upserted = data
	return nil
}

func TestSurrealStore(t *testing.T) {
	q := &stubQuerier{rows: []interface{}{
		map[string]interface{}{"outfit": "JK制服", "schedule": "上学"},
	}}
	store := NewSurrealStore(q, "")

	view, err := store.Get(context.Background(), "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, &View{Date: "2026-10-17", Outfit: "JK制服", Schedule: "上学"}, view)
	assert.Equal(t, "daily_schedule", q.table)
	assert.Equal(t, "2026-10-17", q.filter["date"])

	q.rows = nil
	view, err = store.Get(context.Background(), "2026-10-18")
	require.NoError(t, err)
	assert.Nil(t, view)

	q.rows = []interface{}{"not a row"}
	_, err = store.Get(context.Background(), "2026-10-18")
	assert.Error(t, err)

	require.NoError(t, store.Save(context.Background(), &View{Date: "2026-10-17", Outfit: "JK制服"}))
	assert.Equal(t, "2026-10-17", q.id)
	assert.Equal(t, "JK制服", q.upserted["outfit"])

	assert.Error(t, store.Save(context.Background(), &View{Outfit: "no date"}))
}

type stubChat struct {
	reply    string
	err      error
	messages []llm.Message
}

func (c *stubChat) ChatCompletion(ctx context.Context, messages []llm.Message) (string, error) {
	c.messages = messages
	return c.reply, c.err
}

func TestLLMGenerator(t *testing.T) {
	chat := &stubChat{reply: "```json\n{\"outfit\": \" 针织开衫配百褶裙 \", \"schedule\": \"上午逛街\"}\n```"}
	saver := &stubStore{}

	view, err := NewLLMGenerator(chat, saver).Generate(context.Background(), day, "guild:1")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", view.Date)
	assert.Equal(t, "针织开衫配百褶裙", view.Outfit)
	assert.Equal(t, "上午逛街", view.Schedule)
	require.Len(t, saver.saved, 1)
	assert.Contains(t, chat.messages[1].Content, "2026-10-17")
	assert.Contains(t, chat.messages[1].Content, "guild:1")

	chat.reply = "sorry, I can't"
	_, err = NewLLMGenerator(chat, nil).Generate(context.Background(), day, "")
	assert.ErrorContains(t, err, "decode schedule")

	chat.err = errors.New("timeout")
	_, err = NewLLMGenerator(chat, nil).Generate(context.Background(), day, "")
	assert.ErrorContains(t, err, "timeout")
}

type mapKV struct {
	data    map[string]string
	deleted []string
}

func (m *mapKV) Key(parts ...string) string { return "test:" + strings.Join(parts, ":") }

func (m *mapKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (m *mapKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapKV) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type countingStore struct {
	stubStore
	gets int
}

func (s *countingStore) Get(ctx context.Context, date string) (*View, error) {
	s.gets++
	return s.stubStore.Get(ctx, date)
}

func TestCachedStore(t *testing.T) {
	inner := &countingStore{stubStore: stubStore{views: map[string]*View{
		"2026-10-17": {Date: "2026-10-17", Outfit: "水手服"},
	}}}
	kv := &mapKV{data: map[string]string{}}
	store := NewCachedStore(inner, kv)

	for i := 0; i < 2; i++ {
		view, err := store.Get(context.Background(), "2026-10-17")
		require.NoError(t, err)
		assert.Equal(t, "水手服", view.Outfit)
	}
	assert.Equal(t, 1, inner.gets)
	assert.Contains(t, kv.data, "test:schedule:2026-10-17")

	view, err := store.Get(context.Background(), "2026-10-18")
	require.NoError(t, err)
	assert.Nil(t, view)
	assert.NotContains(t, kv.data, "test:schedule:2026-10-18")

	require.NoError(t, store.Save(context.Background(), &View{Date: "2026-10-17", Outfit: "卫衣"}))
	assert.Equal(t, []string{"test:schedule:2026-10-17"}, kv.deleted)
	assert.Len(t, inner.saved, 1)
}
