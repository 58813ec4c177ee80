// Command agentcore is a minimal wiring entry point for the runtime: it
// loads an agent fleet from a YAML config file, builds one Runner shared
// across every agent, and drives a single chat turn from the command line.
//
// The messaging-platform adapters, HTTP API surface, and persistence layer
// that would normally sit in front of this core are out of scope — this
// binary exists to exercise Runner.Chat end to end, not to serve production
// traffic.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/haasonsaas/agentcore/internal/config"
	"github.com/haasonsaas/agentcore/internal/memory"
	"github.com/haasonsaas/agentcore/internal/runner"
	"github.com/haasonsaas/agentcore/internal/tools"
	"github.com/haasonsaas/agentcore/internal/tools/builtin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("agentcore: fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "agentcore.yaml", "path to the agent fleet config file")
		agentID    = flag.Int("agent", 0, "id of the agent (from the config file) to chat with")
		message    = flag.String("message", "", "user message to send")
		timeout    = flag.Duration("timeout", 60*time.Second, "deadline for the whole turn")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *message == "" {
		return errors.New("agentcore: -message is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("agentcore: %w", err)
	}

	var agentFile *config.AgentFile
	for i := range cfg.Agents {
		if cfg.Agents[i].ID == *agentID {
			agentFile = &cfg.Agents[i]
			break
		}
	}
	if agentFile == nil {
		return fmt.Errorf("agentcore: no agent with id %d in %s", *agentID, *configPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	mgr, err := memory.NewManager(cfg.MemorySearch)
	if err != nil {
		return fmt.Errorf("agentcore: memory engine: %w", err)
	}
	if mgr != nil {
		defer mgr.Close()
	}

	agentCfg := agentFile.ToAgentConfig()
	provider, err := runner.BuildProvider(ctx, agentCfg)
	if err != nil {
		return fmt.Errorf("agentcore: %w", err)
	}

	staticTools := []tools.Tool{
		builtin.DateTime{},
		builtin.Calculator{},
		builtin.WebSearch{},
	}
	limiters := config.BuildLimiterRegistry()
	r := runner.New(staticTools, runner.NewMemorySearcher(mgr), limiters)

	text, history, err := r.Chat(ctx, runner.ChatRequest{
		Agent:       agentCfg,
		Provider:    provider,
		UserMessage: *message,
		EnableTools: true,
	})
	if err != nil {
		return fmt.Errorf("agentcore: %w", err)
	}

	slog.Info("agentcore: turn complete", "agent_id", agentCfg.ID, "history_len", len(history))
	fmt.Println(text)
	return nil
}
