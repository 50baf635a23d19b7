package main

import (
	"context"
	"net/http"
	"telemanas-backend/services/mockapi"
	"time"
)

type MockConfig struct {
	Enabled bool `json:"enabled"`
	// seconds between counter mutations
	DriftInterval int `json:"drift_interval_seconds"`
}

func InitMockApi(ctx context.Context, mux *http.ServeMux, cfg MockConfig) {
	if !cfg.Enabled {
		return
	}
	service := mockapi.NewService(mockapi.NewStore())
	service.RegisterHandlers(mux)
	service.StartDrift(ctx, time.Duration(cfg.DriftInterval)*time.Second)
}
