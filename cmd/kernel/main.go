package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/aikernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/server"
	"github.com/GriffinCanCode/aikernel/internal/kernel"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

func main() {
	servicesFile := flag.String("services", "", "Service catalog file (.yaml, .yml or .toml); overrides AIKERNEL_SERVICES_FILE")
	prompt := flag.String("prompt", "Hello", "Prompt for a single text completion")
	serviceName := flag.String("service", "", "Service name; empty uses the default text-completion service")
	maxTokens := flag.Int("max-tokens", 0, "Maximum tokens to generate; zero uses the service default")
	serve := flag.Bool("serve", false, "Run the HTTP API instead of a single completion")
	port := flag.String("port", "", "HTTP port; overrides PORT")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *servicesFile != "" {
		cfg.Services.File = *servicesFile
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
	}

	if *serve {
		if err := runServer(cfg); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	if err := runOnce(cfg, *prompt, *serviceName, types.Settings{MaxTokens: *maxTokens}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runOnce builds the registry, runs one completion and prints the text
func runOnce(cfg *config.Config, prompt, name string, settings types.Settings) error {
	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	defer func() { _ = logger.Sync() }()

	k, err := kernel.FromConfig(cfg, logger.Component("kernel"), nil)
	if err != nil {
		return err
	}
	defer k.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := k.Complete(ctx, prompt, name, settings)
	if err != nil {
		logger.Error("Completion failed", zap.Error(err))
		return err
	}
	fmt.Println(text)
	return nil
}

func runServer(cfg *config.Config) error {
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		return srv.Close()
	case err := <-errChan:
		_ = srv.Close()
		return err
	}
}
