package schedule

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DateLayout is the key every schedule is stored under.
const DateLayout = "2006-01-02"

// View is the part of a day's schedule the selfie flow cares about.
type View struct {
	Date     string `json:"date"`
	Outfit   string `json:"outfit"`
	Schedule string `json:"schedule"`
}

// Provider returns the schedule for a day, or nil when none exists.
type Provider interface {
	TodaySchedule(ctx context.Context, day time.Time, origin string) (*View, error)
}

type Getter interface {
	Get(ctx context.Context, date string) (*View, error)
}

type Saver interface {
	Save(ctx context.Context, view *View) error
}

type Generator interface {
	Generate(ctx context.Context, day time.Time, origin string) (*View, error)
}

// Source looks a day up in the store first and falls back to generation.
type Source struct {
	store Getter
	gen   Generator
}

func NewSource(store Getter, gen Generator) *Source {
	return &Source{store: store, gen: gen}
}

func (s *Source) TodaySchedule(ctx context.Context, day time.Time, origin string) (*View, error) {
	date := day.Format(DateLayout)

	if s.store != nil {
		view, err := s.store.Get(ctx, date)
		if err != nil {
			log.Printf("[Schedule] Lookup for %s failed: %v", date, err)
		} else if view != nil {
			return view, nil
		}
	}

	if s.gen == nil {
		return nil, nil
	}

	log.Printf("[Schedule] No schedule for %s, generating", date)
	view, err := s.gen.Generate(ctx, day, origin)
	if err != nil {
		return nil, fmt.Errorf("generate schedule for %s: %w", date, err)
	}
	return view, nil
}
