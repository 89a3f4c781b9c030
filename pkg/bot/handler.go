package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"selfiebot/pkg/config"
	"selfiebot/pkg/persona"
	"selfiebot/pkg/ratelimit"
	"selfiebot/pkg/schedule"
	"selfiebot/pkg/tools"
)

type Options struct {
	Settings *config.Settings
	// Limiter defaults to an in-memory limiter built from the rate limit settings.
	Limiter    *ratelimit.Limiter
	Images     ImageGenerator
	References *persona.Resolver
	// Schedule may be nil; outfits then fall back to the default.
	Schedule schedule.Provider
	// Chat enables replies to mentions and DMs. Nil disables them.
	Chat           ChatClient
	SystemPrompt   string
	CommandAliases []string
}

type Handler struct {
	settings     *config.Settings
	limiter      *ratelimit.Limiter
	images       ImageGenerator
	references   *persona.Resolver
	scheduler    schedule.Provider
	registry     *tools.Registry
	chat         ChatClient
	systemPrompt string
	aliases      map[string]bool
	botID        string

	outfitMu   sync.Mutex
	outfitDate string
	outfit     string

	// ctx bounds background selfie tasks; Close cancels it.
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool

	now func() time.Time
}

func NewHandler(opts Options) *Handler {
	settings := opts.Settings
	if settings == nil {
		settings = config.Normalize(nil)
	}

	limiter := opts.Limiter
	if limiter == nil {
		rate := settings.RateLimit()
		limiter = ratelimit.NewLimiter(nil, rate.MaxRequests, rate.PeriodSeconds)
	}

	references := opts.References
	if references == nil {
		references = persona.NewResolver(settings.Persona().ReferenceImages, "")
	}

	aliases := opts.CommandAliases
	if len(aliases) == 0 {
		aliases = config.DefaultCommandAliases
	}
	aliasSet := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		aliasSet[a] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		settings:     settings,
		limiter:      limiter,
		images:       opts.Images,
		references:   references,
		scheduler:    opts.Schedule,
		registry:     tools.NewRegistry(),
		chat:         opts.Chat,
		systemPrompt: opts.SystemPrompt,
		aliases:      aliasSet,
		ctx:          ctx,
		cancel:       cancel,
		now:          time.Now,
	}

	if err := h.registry.Register(NewSelfieTool(h)); err != nil {
		log.Printf("Failed to register selfie tool: %v", err)
	}

	return h
}

func (h *Handler) SetBotID(id string) {
	h.botID = id
}

// Registry exposes the tools the agent loop can call.
func (h *Handler) Registry() *tools.Registry {
	return h.registry
}

// Close stops accepting background work, waits for running tasks until ctx is done,
// and releases the image client.
func (h *Handler) Close(ctx context.Context) error {
	h.closeMu.Lock()
	h.closed = true
	h.cancel()
	h.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for selfie tasks: %w", ctx.Err())
	}

	if h.images != nil {
		h.images.Close()
	}
	return err
}

// spawn runs fn in the background under the handler's lifecycle.
// A panic is logged and handed to onPanic instead of crashing the bot.
func (h *Handler) spawn(name string, fn func(ctx context.Context), onPanic func(ctx context.Context, r any)) bool {
	h.closeMu.Lock()
	if h.closed {
		h.closeMu.Unlock()
		return false
	}
	h.wg.Add(1)
	h.closeMu.Unlock()

	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Task] %s panicked: %v\n%s", name, r, debug.Stack())
				if onPanic != nil {
					onPanic(h.ctx, r)
				}
			}
		}()
		fn(h.ctx)
	}()
	return true
}

// WaitForReady blocks until every background task has finished.
func (h *Handler) WaitForReady() {
	h.wg.Wait()
}
