// PayChat - client core for the Sello Pay assistant widget
// License: MIT
//
// Copyright (c) 2026 PayChat contributors

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"paychat/pkg/actions"
	"paychat/pkg/chat"
	"paychat/pkg/config"
	"paychat/pkg/events"
	"paychat/pkg/logger"
	"paychat/pkg/session"
	"paychat/pkg/transport"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", filepath.Join(config.GetConfigDir(), "config.json"), "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	token := flag.String("token", "", "bearer token (overrides config)")
	userID := flag.String("user", "", "user id (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("paychat v%s\n", version)
		return
	}

	if *debug {
		logger.SetLevel(logger.DEBUG)
	}

	if err := run(*configPath, *token, *userID); err != nil {
		fmt.Fprintln(os.Stderr, "paychat:", err)
		os.Exit(1)
	}
}

func run(configPath, token, userID string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Logging.Enabled {
		if err := logger.EnableFileLogging(cfg.LogFilePath(), cfg.Logging.MaxSizeMB, cfg.Logging.RetentionDays); err != nil {
			logger.WarnCF("main", "File logging unavailable", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}

	if token == "" {
		token = cfg.Auth.Token
	}
	if userID == "" {
		userID = cfg.Auth.UserID
	}
	sess := session.New(token, userID)
	if !sess.Authenticated() {
		logger.WarnC("main", "No credentials configured; actions will be rejected")
	}

	queue := events.NewQueue()
	client := transport.NewClient(
		cfg.API.BaseURL,
		cfg.Socket.URL,
		time.Duration(cfg.Socket.HandshakeTimeoutSec)*time.Second,
		time.Duration(cfg.API.TimeoutSec)*time.Second,
		sess,
		queue,
	)
	dispatcher := actions.NewDispatcher(client, sess)

	term := newTerminal(os.Stdout)
	conv := chat.NewConversation(dispatcher,
		chat.WithMinCodeDigits(cfg.OTP.MinCodeDigits),
		chat.WithOnAppend(term.render),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Health(ctx); err != nil {
		logger.WarnCF("main", "Backend health check failed", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	if err := client.Connect(); err != nil {
		// HTTP-only use still works; inline prompts just will not arrive.
		logger.WarnCF("main", "Event socket unavailable", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	defer client.Disconnect()
	defer queue.Close()

	term.banner(version, sess.UserID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pumpEvents(gctx, queue, conv)
		return nil
	})
	g.Go(func() error {
		tickCountdowns(gctx, conv)
		return nil
	})
	g.Go(func() error {
		defer stop()
		return term.readInput(gctx, conv)
	})

	return g.Wait()
}

// pumpEvents is the single consumer of the inbound queue; it serializes
// every server-pushed event into the conversation.
func pumpEvents(ctx context.Context, queue *events.Queue, conv *chat.Conversation) {
	for {
		evt, ok := queue.Consume(ctx)
		if !ok {
			return
		}
		conv.HandleEvent(evt)
	}
}

func tickCountdowns(ctx context.Context, conv *chat.Conversation) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conv.TickCountdowns()
		}
	}
}
