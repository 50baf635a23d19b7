package main

import (
	"flag"
	"net/http"
	"telemanas-backend/lib/configutil"
	"telemanas-backend/lib/serviceutil"
)

type Config struct {
	Port      int             `json:"port"`
	Dashboard DashboardConfig `json:"dashboard"`
	Mock      MockConfig      `json:"mock"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	mux := http.NewServeMux()

	err = InitDashboard(ctx, mux, cfg.Dashboard)
	if err != nil {
		serviceutil.Fatal("init dashboard", err)
	}
	InitMockApi(ctx, mux, cfg.Mock)

	port := cfg.Port
	if port == 0 {
		port = 8000
	}
	go serviceutil.StartHttpServer(port, mux)
	<-ctx.Done()
}
