package main

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"telemanas-backend/lib/scrapers/telemanas"
	"telemanas-backend/services/dashboard"
	"telemanas-backend/services/dashboard/db"
	"time"

	_ "modernc.org/sqlite"
)

type DashboardConfig struct {
	BaseUrl string `json:"base_url"`
	// per request, milliseconds
	Timeout int `json:"timeout_ms"`
	// attempts per request
	MaxRetries int `json:"max_retries"`
	// milliseconds, doubled each retry
	RetryDelay int `json:"retry_delay_ms"`
	// path to the snapshot history database, `:memory:` if empty
	Database string `json:"database"`
	// seconds a stored result stays fresh
	CacheTtl int `json:"cache_ttl_seconds"`
	// seconds between background re-scrapes, 0 disables the daemon
	RefreshInterval int `json:"refresh_interval_seconds"`
	Quiet           bool `json:"quiet"`
}

func InitDashboard(ctx context.Context, mux *http.ServeMux, cfg DashboardConfig) error {
	dbpath := cfg.Database
	if dbpath == "" {
		dbpath = ":memory:"
	}
	database, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return err
	}
	_, err = database.ExecContext(ctx, db.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}

	client, err := telemanas.NewClient(telemanas.ClientOptions{
		BaseURL:    cfg.BaseUrl,
		Timeout:    time.Duration(cfg.Timeout) * time.Millisecond,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: time.Duration(cfg.RetryDelay) * time.Millisecond,
		Quiet:      cfg.Quiet,
	})
	if err != nil {
		return err
	}

	service := dashboard.NewService(database, client, time.Duration(cfg.CacheTtl)*time.Second)
	service.RegisterHandlers(mux)

	if cfg.RefreshInterval > 0 {
		service.StartRefreshDaemon(ctx, time.Duration(cfg.RefreshInterval)*time.Second)
	}
	return nil
}
