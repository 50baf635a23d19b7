package main

import (
	"context"
	"telemanas-backend/lib/serviceutil"
	"telemanas-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	_, err := telemetry.SetupFromEnv(ctx, "telemanas-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx)
}
