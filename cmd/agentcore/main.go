package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/config"
	"github.com/agentcore/agentcore/internal/engine"
	"github.com/agentcore/agentcore/internal/llmstream"
	"github.com/agentcore/agentcore/internal/sandbox"
	"github.com/agentcore/agentcore/internal/telemetry"
	"github.com/agentcore/agentcore/internal/tools"
	"github.com/agentcore/agentcore/internal/toolregistry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("agentcore: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "agentcore",
		Short: "Autonomous agent control core for a local terminal LLM assistant",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional YAML/TOML/JSON config file")

	root.AddCommand(newRunCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start an interactive session; each line you type becomes one Task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), *configPath)
		},
	}
}

func runInteractive(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkingRoot, 0o755); err != nil {
		return fmt.Errorf("prepare working root %s: %w", cfg.WorkingRoot, err)
	}
	jail, err := sandbox.NewPathJail(cfg.WorkingRoot)
	if err != nil {
		return fmt.Errorf("initialize path jail: %w", err)
	}

	registry := toolregistry.NewDefaultRegistry(jail, sandbox.NewDefaultRunner(), cfg.AllowNetwork)
	runtime := tools.NewRuntime(jail, registry, cfg.MaxParallelTools)

	llm := llmstream.New()
	llm.Endpoint = cfg.Endpoint()
	llm.Model = cfg.Model

	bus := telemetry.NewBus()
	bus.Subscribe(telemetry.LoggerSubscriber{L: log.Default()})

	telemetryDir := filepath.Join(cfg.WorkingRoot, ".agentcore")
	if err := os.MkdirAll(telemetryDir, 0o755); err != nil {
		return fmt.Errorf("prepare telemetry dir: %w", err)
	}
	if sink, err := telemetry.OpenSQLiteSink(filepath.Join(telemetryDir, "telemetry.db")); err == nil {
		defer sink.Close()
		bus.Subscribe(sink)
	} else {
		log.Printf("telemetry sqlite sink disabled: %v", err)
	}

	orch := engine.NewOrchestrator(cfg, llm, runtime, bus)

	log.Printf("agentcore ready — model %s at %s, jail root %s", cfg.Model, cfg.Endpoint(), jail.Root())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("goal> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		goal := scanner.Text()
		if goal == "" {
			continue
		}

		task := engine.Task{ID: uuid.NewString(), GoalText: goal}
		answer, err := orch.Run(ctx, task)
		if err != nil {
			log.Printf("task %s failed: %v", task.ID, err)
			continue
		}
		fmt.Println(answer)
	}
}
