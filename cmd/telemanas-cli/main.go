package main

import (
	"telemanas-backend/cmd/telemanas-cli/commands"
	"telemanas-backend/lib/serviceutil"
	"telemanas-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(false)
	telemetry.SetupFromEnv(ctx, "telemanas-cli")
	commands.ExecuteContext(ctx)
}
