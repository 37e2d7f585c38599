package main

import (
	"fmt"
	"time"

	"github.com/chitieu/finbot/config"
	"github.com/chitieu/finbot/engine"
	"github.com/chitieu/finbot/forecast"
	"github.com/chitieu/finbot/logger"
	"github.com/chitieu/finbot/market"
	"github.com/chitieu/finbot/store"
	"github.com/chitieu/finbot/tools"
)

// app holds the wired components shared by every command.
type app struct {
	ledger     store.Transactions
	market     *market.Client
	forecaster *forecast.Engine
	engine     *engine.Engine
	closers    []func()
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := store.Open(store.Config{
		Driver:     cfg.DBDriver,
		DSN:        cfg.DBDSN,
		LogQueries: cfg.Env == "development",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	a := &app{ledger: store.NewTransactions(db)}
	a.closers = append(a.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	a.market, err = market.NewClient(market.Config{
		CoinGeckoURL: cfg.CoinGeckoURL,
		FXURL:        cfg.FXURL,
		Timeout:      cfg.MarketTimeout,
		CacheTTL:     cfg.MarketCacheTTL,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create market client: %w", err)
	}
	a.closers = append(a.closers, a.market.Close)

	loc := cfg.Location()
	clock := func() time.Time { return time.Now().In(loc) }

	a.forecaster = forecast.NewEngine(a.ledger, forecast.Config{
		DefaultBudget: cfg.DefaultBudget,
		Location:      loc,
		Language:      cfg.Language,
	})

	registry := engine.NewToolRegistry()
	registry.RegisterAll(tools.All(tools.Deps{
		Ledger:     a.ledger,
		Market:     a.market,
		Forecaster: a.forecaster,
		Clock:      clock,
	})...)

	a.engine = engine.NewEngine(engine.NewAnthropicModel(cfg.AnthropicKey), registry, engine.Config{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Location:  loc,
		Tools:     cfg.EnabledTools,
	})

	logger.Get().Infow("assistant ready",
		"db_driver", cfg.DBDriver, "model", cfg.Model, "tools", registry.List(),
		"enabled_tools", cfg.EnabledTools, "timezone", loc.String())
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
