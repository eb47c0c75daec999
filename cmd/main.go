package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/exampaper-backend/internal/app"
	"github.com/yungbote/exampaper-backend/internal/platform/shutdown"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a.Start()
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	var runErr error
	select {
	case <-ctx.Done():
		a.Log.Info("Shutdown signal received")
	case runErr = <-errCh:
	}

	graceCtx, cancel := shutdown.Grace(a.Cfg.ShutdownGrace)
	defer cancel()
	a.Close(graceCtx)

	if runErr != nil {
		fmt.Printf("server exited: %v\n", runErr)
		os.Exit(1)
	}
}
