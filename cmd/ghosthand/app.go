package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/woakley/ghosthand/internal/agent"
	"github.com/woakley/ghosthand/internal/gateway"
	"github.com/woakley/ghosthand/internal/governance"
	"github.com/woakley/ghosthand/internal/observability"
	"github.com/woakley/ghosthand/internal/skills"
	"github.com/woakley/ghosthand/internal/store"
	"github.com/woakley/ghosthand/internal/tools"
	"github.com/woakley/ghosthand/pkg/config"
)

// App holds the assembled agent. Every subcommand builds one of these,
// runs, and tears it down.
type App struct {
	Config    *config.Config
	Logger    *observability.Logger
	Store     *store.Store
	Registry  *tools.Registry
	Skills    *skills.Registry
	Gate      *governance.Gate
	Lock      *governance.Lock
	Verifier  governance.Verifier
	Runner    *agent.Runner
	Scheduler *agent.Scheduler
	Gateway   gateway.Messenger
}

func newApp(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config: %w", err)
		}
		// No config file: every default is usable for a local run.
		cfg = config.Default()
	}
	logger := observability.NewLogger()

	st, err := store.Open(cfg.Memory.Path)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewCoreCapability())

	fileCap := tools.NewFileCapability(cfg.App.Workspace)
	registry.Register(fileCap)

	downloadDir := filepath.Join(cfg.App.Workspace, "downloads")
	webCap, err := tools.NewWebCapability(downloadDir)
	if err != nil {
		logger.Warn("web capability unavailable: %v", err)
	} else {
		webCap.Logger = logger
		registry.Register(webCap)
	}

	registry.Register(tools.NewCommsCapability(tools.SMTPConfig{
		Host: cfg.Comms.SMTPHost,
		Port: cfg.Comms.SMTPPort,
		User: cfg.SMTPUser(),
		Pass: cfg.SMTPPass(),
		From: cfg.Comms.From,
	}))

	screenshotDir := filepath.Join(cfg.App.Workspace, "screenshots")
	registry.Register(tools.NewBrowserCapability(screenshotDir))
	registry.Register(tools.NewUICapability(screenshotDir))
	registry.Register(tools.NewOCRCapability())

	sk := skills.NewRegistry()
	if err := sk.LoadDir(cfg.Skills.Dir, logger); err != nil {
		logger.Warn("skill discovery failed: %v", err)
	}

	gate := governance.NewGate(cfg.App.Owner, st, logger)

	lockPath := filepath.Join(filepath.Dir(cfg.Memory.Path), "ghosthand.lock")
	secret := os.Getenv("GHOSTHAND_LOCK_SECRET")
	if secret == "" {
		secret = cfg.App.Name
	}
	lock := governance.NewLock(lockPath, secret, st)

	var verifier governance.Verifier = governance.OpenVerifier{}
	if len(cfg.Voice.VerifyCommand) > 0 {
		verifier = &governance.CommandVerifier{Command: cfg.Voice.VerifyCommand, Events: st}
	}

	var narrator agent.Narrator
	if len(cfg.Voice.SpeakCommand) > 0 {
		narrator = &agent.CommandNarrator{Command: cfg.Voice.SpeakCommand}
	}

	var fallback agent.Fallback
	if pName, pCfg := cfg.GetDefaultProvider(); pName != "" {
		switch pName {
		case "openai", "openrouter":
			opts := []openai.Option{
				openai.WithToken(pCfg.APIKey),
				openai.WithModel(pCfg.Model),
			}
			if pCfg.BaseURL != "" {
				opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
			}
			llm, err := openai.New(opts...)
			if err != nil {
				logger.Warn("provider %s unavailable: %v", pName, err)
			} else {
				fallback = agent.NewLLMFallback(llm)
			}
		default:
			logger.Warn("provider %s is not supported, planning without fallback", pName)
		}
	}

	planner := agent.NewPlanner(sk, st, fallback, logger)
	executor := agent.NewExecutor(registry, sk, governance.NewStepPolicy(), st, logger, narrator)
	runner := agent.NewRunner(gate, planner, executor, st, fileCap, logger, narrator)

	var gw gateway.Messenger
	var chatID string
	if tg, ok := cfg.GetGateway("telegram"); ok {
		g, err := gateway.NewTelegramGateway(tg.Token)
		if err != nil {
			logger.Warn("telegram gateway unavailable: %v", err)
		} else {
			gw, chatID = g, tg.ChatID
		}
	}
	if gw == nil {
		if dc, ok := cfg.GetGateway("discord"); ok {
			g, err := gateway.NewDiscordGateway(dc.Token)
			if err != nil {
				logger.Warn("discord gateway unavailable: %v", err)
			} else {
				gw, chatID = g, dc.ChatID
			}
		}
	}

	scheduler := agent.NewScheduler(runner, st, gw, chatID, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Registry:  registry,
		Skills:    sk,
		Gate:      gate,
		Lock:      lock,
		Verifier:  verifier,
		Runner:    runner,
		Scheduler: scheduler,
		Gateway:   gw,
	}, nil
}

func (a *App) Close() {
	if a.Gateway != nil {
		if err := a.Gateway.Stop(); err != nil {
			log.Printf("gateway shutdown: %v", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		log.Printf("store shutdown: %v", err)
	}
}
