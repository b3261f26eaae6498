// Command ddichecker predicts drug-drug interactions for candidate drug pairs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/KeyDDI-Intelligence/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx)
	stop()
	if err != nil {
		// ExecuteContext has already printed the error.
		os.Exit(1)
	}
}

//Personal.AI order the ending
