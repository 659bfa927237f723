package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/metal-tracker/internal/alert"
	"github.com/ahmethakanbesel/metal-tracker/internal/config"
	"github.com/ahmethakanbesel/metal-tracker/internal/metric"
	"github.com/ahmethakanbesel/metal-tracker/internal/notify"
	"github.com/ahmethakanbesel/metal-tracker/internal/platform/sqlite"
	"github.com/ahmethakanbesel/metal-tracker/internal/quote/metalprice"
	"github.com/ahmethakanbesel/metal-tracker/internal/report"
	alertrepo "github.com/ahmethakanbesel/metal-tracker/internal/repository/alert"
	metricrepo "github.com/ahmethakanbesel/metal-tracker/internal/repository/metric"
	subscriberrepo "github.com/ahmethakanbesel/metal-tracker/internal/repository/subscriber"
	"github.com/ahmethakanbesel/metal-tracker/internal/telegram"
)

// app holds the wired services shared by every command.
type app struct {
	cfg     config.Config
	db      *sqlite.DB
	repo    *metricrepo.Repository
	metrics *metric.Service
	reports *report.Service
	alerts  *alert.Service
	bot     *telegram.Bot
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := metricrepo.NewRepository(db.DB)
	provider := metalprice.New(cfg.MetalAPIKey,
		metalprice.WithBaseURL(cfg.MetalAPI),
		metalprice.WithCurrencies(cfg.MetalBase, cfg.MetalSymbol),
		metalprice.WithWorkers(cfg.Workers),
	)
	reports := report.NewService(repo, cfg.SourceCode)

	sender := notify.NewEmailSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	a := &app{
		cfg:     cfg,
		db:      db,
		repo:    repo,
		metrics: metric.NewService(repo, provider, cfg.SourceCode),
		reports: reports,
		alerts:  alert.NewService(alertrepo.NewRepository(db.DB), repo, repo, sender),
	}

	client := telegram.NewClient(cfg.TelegramToken, telegram.WithAPIURL(cfg.TelegramAPI))
	if client.Enabled() {
		a.bot = telegram.NewBot(client, subscriberrepo.NewRepository(db.DB), reports,
			telegram.WithLocation(cfg.Location),
			telegram.WithCurrency(cfg.MetalBase),
			telegram.WithBroadcastWorkers(cfg.Workers),
		)
	}

	return a, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}
