package main

import (
	"context"
	"os"

	"onon-backend/cmd/ononctl/commands"
	"onon-backend/lib/telemetry"
	"onon-backend/lib/util/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "ononctl")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
