package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MSKravtsov/mikky/pkg/agent"
	"github.com/MSKravtsov/mikky/pkg/config"
	"github.com/MSKravtsov/mikky/pkg/contextmgr"
	"github.com/MSKravtsov/mikky/pkg/model"
	"github.com/MSKravtsov/mikky/pkg/model/gemini"
	"github.com/MSKravtsov/mikky/pkg/sandbox/docker"
	"github.com/MSKravtsov/mikky/pkg/server"
	"github.com/MSKravtsov/mikky/pkg/store/sqlite"
	"github.com/MSKravtsov/mikky/pkg/tool"
	"github.com/MSKravtsov/mikky/pkg/tools"
)

func main() {
	// Setup logger.
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(logger)

	configPath := flag.String("config", "mikky.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize store.
	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Initialize model provider and client.
	provider, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		slog.Error("Failed to initialize Gemini provider", "error", err)
		os.Exit(1)
	}
	client := model.NewClient(provider, st, st, cfg.BasePrompt, cfg.MemoryWindow,
		time.Duration(cfg.CompletionTimeoutSeconds)*time.Second)

	// Register tools.
	registry := tool.NewRegistry()
	mustRegister(registry,
		tools.CurrentTime(),
		tools.Remember(st),
		tools.RecallMemories(st),
		tools.UpdateProfile(st),
		tools.RememberEntity(st),
		tools.LinkEntities(st),
		tools.LookupEntity(st),
		tools.ScheduleTask(st, cfg.AllowedUsers[0]),
		tools.ListTasks(st),
		tools.CancelTask(st),
	)
	if cfg.SandboxEnabled {
		sbMgr, err := docker.New(cfg.SandboxImage)
		if err != nil {
			slog.Error("Failed to initialize sandbox manager", "error", err)
			os.Exit(1)
		}
		defer sbMgr.Close()
		mustRegister(registry, tools.RunShell(sbMgr))
	}

	// Wire the agent service.
	ctxCfg := contextmgr.Config{
		MaxContextTokens:      cfg.MaxContextTokens,
		PruneThreshold:        cfg.PruneThreshold,
		MessageOverheadTokens: cfg.MessageOverheadTokens,
		HistoryLoadLimit:      cfg.HistoryLoadLimit,
		KeepRecent:            cfg.KeepRecentOnCompact,
	}
	agentCfg := agent.Config{
		MaxIterations: cfg.MaxIterations,
		ToolTimeout:   time.Duration(cfg.ToolTimeoutSeconds) * time.Second,
	}
	tokenizer := contextmgr.NewTokenizer("cl100k_base")
	svc := agent.NewService(agentCfg, ctxCfg, client, client, tokenizer, registry, st)

	// Start server.
	srv := server.New(svc, st, cfg.AllowedUsers, cfg.MaxMessageLength)
	go func() {
		if err := srv.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

func mustRegister(registry *tool.Registry, descriptors ...tool.Descriptor) {
	for _, d := range descriptors {
		if err := registry.Register(d); err != nil {
			slog.Error("Failed to register tool", "tool", d.Name, "error", err)
			os.Exit(1)
		}
	}
}
