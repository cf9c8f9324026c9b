// Package bootstrap wires configuration into the application graph.
package bootstrap

import (
	"context"
	"fmt"

	"alertiq/internal/audit"
	"alertiq/internal/classify"
	"alertiq/internal/mail"
	"alertiq/internal/notify"
	"alertiq/internal/processor"
	"alertiq/internal/scheduler"
	"alertiq/internal/shared/config"
	"alertiq/internal/shared/retry"
	"alertiq/internal/shared/telemetry"
)

// App holds the constructed components of the pipeline.
type App struct {
	Config    config.Config
	Store     *audit.Store
	Processor *processor.Processor
	Scheduler *scheduler.Scheduler
}

// Build constructs every component from configuration. retentionDays
// bounds the scheduler's daily cleanup.
func Build(ctx context.Context, cfg config.Config, retentionDays int) (*App, error) {
	policy := retry.Policy{
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
		MaxDelay: retry.DefaultPolicy.MaxDelay,
	}

	creds := mail.Credentials{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		RefreshToken: cfg.GmailRefreshToken,
	}
	reader, err := mail.NewGmailReader(ctx, creds, policy)
	if err != nil {
		return nil, fmt.Errorf("bootstrap reader: %w", err)
	}

	classifier, err := classify.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, policy)
	if err != nil {
		return nil, fmt.Errorf("bootstrap classifier: %w", err)
	}

	router := notify.Router{
		BackendTeam: cfg.BackendTeamEmail,
		CodeTeam:    cfg.CodeTeamEmail,
		RehitTeam:   cfg.RehitTeamEmail,
	}
	transport, err := buildTransport(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	sender := notify.NewSender(transport, router, policy)

	store, err := audit.NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap audit store: %w", err)
	}

	proc := &processor.Processor{
		Reader:     reader,
		Classifier: classifier,
		Notifier:   sender,
		Store:      store,
		Router:     router,
		BatchSize:  cfg.MaxEmailsPerBatch,
	}

	telemetry.Info("bootstrap.complete", map[string]any{
		"transport": cfg.SendTransport,
		"model":     cfg.GeminiModel,
		"batch":     cfg.MaxEmailsPerBatch,
	})

	return &App{
		Config:    cfg,
		Store:     store,
		Processor: proc,
		Scheduler: scheduler.New(proc, store, cfg.CheckInterval, retentionDays),
	}, nil
}

func buildTransport(ctx context.Context, cfg config.Config, creds mail.Credentials) (notify.Transport, error) {
	if cfg.SendTransport == "smtp" {
		return notify.NewSMTPTransport(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword), nil
	}
	transport, err := notify.NewGmailTransport(ctx, creds, cfg.SMTPUsername)
	if err != nil {
		return nil, fmt.Errorf("bootstrap sender: %w", err)
	}
	return transport, nil
}
