// sms-assistant answers inbound SMS messages with an LLM-backed
// personal assistant.
//
// Inbound messages arrive on a Twilio webhook. Each message is scanned
// for real-time questions, which are resolved through a search API and
// folded into a persona-specific system prompt before the reply is
// generated and sent back over SMS.
//
// Usage:
//
//	sms-assistant [-config path] serve    Start the webhook server
//	sms-assistant init [dir]              Write a default config file
//	sms-assistant version                 Print version information
//
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/improbability/sms-assistant/internal/answers"
	"github.com/improbability/sms-assistant/internal/buildinfo"
	"github.com/improbability/sms-assistant/internal/config"
	"github.com/improbability/sms-assistant/internal/llm"
	"github.com/improbability/sms-assistant/internal/pipeline"
	"github.com/improbability/sms-assistant/internal/questions"
	"github.com/improbability/sms-assistant/internal/reply"
	"github.com/improbability/sms-assistant/internal/search"
	"github.com/improbability/sms-assistant/internal/sms"
	"github.com/improbability/sms-assistant/internal/store"
	"github.com/improbability/sms-assistant/internal/web"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main constructs the OS-level environment and delegates to [run] so
// the startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand: the flag
// package's global state interferes with parallel tests, and the
// argument surface here is one flag and three commands.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var configPath string
	command := "serve"
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config", "--config":
			i++
			if i >= len(args) {
				return fmt.Errorf("-config requires a path argument")
			}
			configPath = args[i]
		case "serve", "version", "init":
			command = args[i]
		default:
			if command == "init" {
				cmdArgs = append(cmdArgs, args[i])
				continue
			}
			return fmt.Errorf("unknown argument %q", args[i])
		}
	}

	switch command {
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	}

	path, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "%s, using info\n", err)
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	slog.SetDefault(logger)

	logger.Info("starting", "build", buildinfo.String(), "config", path)

	db, err := sql.Open("sqlite3", cfg.Database+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	st, err := store.New(db)
	if err != nil {
		db.Close()
		return err
	}
	defer st.Close()

	llmClient := llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, logger)
	serp := search.NewSerpAPI(cfg.SerpAPI.APIKey)

	pipe := pipeline.New(
		st,
		questions.New(llmClient, cfg.OpenAI.ExtractModel, logger),
		answers.New(serp, llmClient, cfg.OpenAI.ExtractModel, logger),
		reply.New(llmClient, cfg.OpenAI.ReplyModel, st, logger),
		nil,
		logger,
	)

	sender := sms.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, logger)
	server := web.NewServer(cfg.Listen.Address, cfg.Listen.Port, pipe, sender, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
