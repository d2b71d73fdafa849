package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-stats/src/logger"
	"live-stats/src/models"
)

// A fake stats upstream for running the client locally: REST snapshots, an
// SSE or websocket stream of partial updates, and mood submission.
func main() {
	addr := flag.String("addr", "127.0.0.1:8010", "listen address")
	prefix := flag.String("prefix", "/api/v1/stats", "route prefix")
	interval := flag.Duration("interval", time.Second, "delay between random votes")
	dupEvery := flag.Int("dup-every", 5, "resend every n-th update with the same id (0 disables)")
	flag.Parse()

	appLogger := logger.NewLogger(&models.MConfig{LogLevel: "INFO"}, "FakeUpstream")

	up := newUpstream(appLogger, *dupEvery)
	srv := up.server(*addr, *prefix)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go up.generate(ctx, *interval)

	go func() {
		appLogger.Info("Fake upstream on http://%s%s", *addr, *prefix)
		if err := srv.ListenAndServe(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println()
	appLogger.Info("Shutting down...")
	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
	defer done()
	srv.Shutdown(shutdownCtx)
}
