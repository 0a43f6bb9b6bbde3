// Package app opens the document store and builds every trip service on top
// of it. Both the server and tripctl start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/billbatista/acasinha-trip/announcement"
	"github.com/billbatista/acasinha-trip/api"
	"github.com/billbatista/acasinha-trip/config"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
	"github.com/billbatista/acasinha-trip/ledger"
	"github.com/billbatista/acasinha-trip/member"
	"github.com/billbatista/acasinha-trip/quip"
	"github.com/billbatista/acasinha-trip/raffle"
	"github.com/billbatista/acasinha-trip/tripconfig"
)

type App struct {
	Config config.Config
	Store  docstore.Store
	Events eventlogger.EventLogger
	Worker *eventlogger.Worker

	Ledger  *ledger.Service
	Raffle  *raffle.Service
	Board   *announcement.Board
	Members *member.Service
	Trip    *tripconfig.Service
	Quip    *quip.Daily
	Admin   *member.AdminGate
}

// OpenStore opens the configured backend together with the event log kept
// next to it.
func OpenStore(ctx context.Context, cfg config.Config) (docstore.Store, eventlogger.EventLogger, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return docstore.NewMemory(), eventlogger.NewMemoryEventLogger(), nil
	case config.DriverSQLite:
		s, err := docstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, eventlogger.NewSqlEventLogger(s.DB()), nil
	case config.DriverPostgres:
		s, err := docstore.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, eventlogger.NewSqlEventLogger(s.DB()), nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.StoreDriver)
	}
}

type options struct {
	actor string
}

type Option func(*options)

// WithActor records actor on every event the services log.
func WithActor(actor string) Option {
	return func(o *options) {
		o.actor = actor
	}
}

// New wires the services. The event worker is started; call Close when done.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, events, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	rng, err := raffle.NewRand()
	if err != nil {
		store.Close()
		return nil, err
	}
	gate, err := member.NewAdminGate(cfg.AdminCode)
	if err != nil {
		store.Close()
		return nil, err
	}

	worker := eventlogger.NewWorker(events, cfg.EventBuffer)
	worker.Start()
	var rec eventlogger.Recorder = worker
	if o.actor != "" {
		rec = eventlogger.Tag(worker, eventlogger.WithActor(o.actor))
	}

	var gen quip.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := quip.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Warn("gemini unavailable, using the fallback quip", "error", err)
		} else {
			gen = g
		}
	}

	roster := cfg.Roster
	return &App{
		Config:  cfg,
		Store:   store,
		Events:  events,
		Worker:  worker,
		Ledger:  ledger.NewService(store, roster.Members, rec),
		Raffle:  raffle.NewService(store, roster.RaffleMembers, roster.Members, roster.SecretPair, rec, rng),
		Board:   announcement.NewBoard(store, rec),
		Members: member.NewService(store, roster, member.NewPasses(cfg.PassSecret), rec),
		Trip:    tripconfig.NewService(store, cfg.Location, rec),
		Quip:    quip.NewDaily(gen, cfg.Location),
		Admin:   gate,
	}, nil
}

func (a *App) Server() *api.Server {
	return &api.Server{
		Store:   a.Store,
		Ledger:  a.Ledger,
		Raffle:  a.Raffle,
		Board:   a.Board,
		Members: a.Members,
		Trip:    a.Trip,
		Quip:    a.Quip,
		Admin:   a.Admin,
		Events:  a.Events,
		Health:  a.Worker,
	}
}

// Close drains pending events before closing the store they are written to.
func (a *App) Close() error {
	a.Quip.Stop()
	a.Worker.Shutdown()
	return a.Store.Close()
}
