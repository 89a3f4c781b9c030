package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"selfiebot/pkg/bot"
	"selfiebot/pkg/cache"
	"selfiebot/pkg/config"
	"selfiebot/pkg/llm"
	"selfiebot/pkg/media"
	"selfiebot/pkg/persona"
	"selfiebot/pkg/ratelimit"
	"selfiebot/pkg/schedule"
	"selfiebot/pkg/seedream"
	"selfiebot/pkg/surreal"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
)

func main() {
	// Load config.yml
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load .env for secrets
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		log.Fatal("Missing required environment variable: DISCORD_TOKEN")
	}

	settings := cfg.Settings
	if len(settings.API().APIKeys) == 0 {
		if keys := config.KeysFromEnv(os.Getenv("SEEDREAM_API_KEYS")); len(keys) > 0 {
			settings = settings.WithAPIKeys(keys)
		} else {
			log.Println("No Seedream API keys configured, selfies will fail until one is set")
		}
	}

	// Rate limiter: shared through Redis when available, in memory otherwise
	var store ratelimit.Store
	var redisCache *cache.Cache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisCache, err = cache.NewRedisCache(redisURL, "selfiebot")
		if err != nil {
			redisCache = nil
			log.Printf("Redis unavailable, using in-memory rate limiting: %v", err)
		} else {
			defer redisCache.Close()
			store = ratelimit.NewRedisStore(redisCache)
			log.Println("Rate limiting through Redis")
		}
	}
	rate := settings.RateLimit()
	limiter := ratelimit.NewLimiter(store, rate.MaxRequests, rate.PeriodSeconds)

	// Chat model for the agent loop and schedule generation
	var chatClient *llm.Client
	if llmKey := os.Getenv("LLM_API_KEY"); llmKey != "" {
		chatClient = llm.NewClient(llmKey, cfg.LLMSettings.BaseURL, cfg.LLMSettings.Model, cfg.LLMSettings.Temperature)
		log.Printf("LLM client initialized (%s)", cfg.LLMSettings.Model)
	} else {
		log.Println("LLM_API_KEY not set, mention replies and schedule generation disabled")
	}

	// Daily schedule (SurrealDB store + LLM generation)
	var getter schedule.Getter
	var saver schedule.Saver
	if surrealHost := os.Getenv("SURREAL_DB_HOST"); surrealHost != "" {
		surrealNS := os.Getenv("SURREAL_DB_NAMESPACE")
		if surrealNS == "" {
			surrealNS = "selfiebot"
		}
		surrealDB := os.Getenv("SURREAL_DB_DATABASE")
		if surrealDB == "" {
			surrealDB = "schedule"
		}

		// Add protocol if missing
		if !strings.HasPrefix(surrealHost, "ws://") && !strings.HasPrefix(surrealHost, "wss://") {
			surrealHost = "wss://" + surrealHost + "/rpc"
		}

		log.Printf("Connecting to SurrealDB at %s (NS: %s, DB: %s)", surrealHost, surrealNS, surrealDB)
		surrealClient, err := surreal.NewClient(surrealHost, os.Getenv("SURREAL_DB_USER"), os.Getenv("SURREAL_DB_PASS"), surrealNS, surrealDB)
		if err != nil {
			log.Printf("SurrealDB unavailable, schedules will not be stored: %v", err)
		} else {
			defer surrealClient.Close()
			var scheduleStore schedule.Store = schedule.NewSurrealStore(surrealClient, cfg.ScheduleSettings.Table)
			if redisCache != nil {
				scheduleStore = schedule.NewCachedStore(scheduleStore, redisCache)
			}
			getter, saver = scheduleStore, scheduleStore
		}
	}

	var generator schedule.Generator
	if chatClient != nil && cfg.ScheduleSettings.GenerateMissing {
		generator = schedule.NewLLMGenerator(chatClient, saver)
	}

	var scheduler schedule.Provider
	if getter != nil || generator != nil {
		scheduler = schedule.NewSource(getter, generator)
	}

	// Image API client
	api := settings.API()
	opts := seedream.Options{
		APIKeys:    api.APIKeys,
		APIBase:    api.APIBase,
		EndpointID: api.EndpointID,
		OutputDir:  cfg.BotSettings.OutputDir,
	}
	if maxSide := settings.Persona().ReferenceMaxSide; maxSide > 0 {
		processor := media.NewImageProcessor(maxSide)
		opts.ProcessReference = func(data []byte, path string) ([]byte, error) {
			out, info, err := processor.Fit(data, path)
			if err != nil {
				return nil, err
			}
			log.Printf("Reference image %s: %dx%d %s", path, info.Width, info.Height, info.Format)
			return out, nil
		}
	}
	imageClient := seedream.NewClient(opts)

	handlerOpts := bot.Options{
		Settings:       settings,
		Limiter:        limiter,
		Images:         imageClient,
		References:     persona.NewResolver(settings.Persona().ReferenceImages, cfg.BotSettings.DataDir),
		Schedule:       scheduler,
		SystemPrompt:   cfg.LLMSettings.SystemPrompt,
		CommandAliases: cfg.BotSettings.CommandAliases,
	}
	if chatClient != nil {
		handlerOpts.Chat = chatClient
	}
	handler := bot.NewHandler(handlerOpts)

	// Create Discord Session
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatalf("Error creating Discord session: %v", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	// Register Handlers
	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.InteractionCreate)

	// Open Connection
	if err := dg.Open(); err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	// Set Bot ID in handler (so it can ignore itself)
	handler.SetBotID(dg.State.User.ID)

	// Register slash commands (empty string = global, or specify guild ID for faster testing)
	guildID := os.Getenv("DISCORD_GUILD_ID")
	registeredCommands, err := bot.RegisterSlashCommands(dg, guildID)
	if err != nil {
		log.Fatalf("Error registering slash commands: %v", err)
	}

	if chatClient != nil {
		log.Printf("Agent tools: %s", strings.Join(handler.Registry().ListTools(), ", "))
	}
	log.Println("Selfie bot is now running. Press CTRL-C to exit.")

	// Wait for signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	if err := bot.UnregisterSlashCommands(dg, guildID, registeredCommands); err != nil {
		log.Printf("Error unregistering slash commands: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := handler.Close(ctx); err != nil {
		log.Printf("Error waiting for selfie tasks: %v", err)
	}

	dg.Close()
}
