// Package main provides a demo lockgate client: it connects to an arbiter
// and runs a periodic task that only executes while this process holds the
// lock. Start several copies against one arbiter to watch exactly one of
// them do the work.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kneutral-org/lockgate/internal/client"
	"github.com/kneutral-org/lockgate/internal/config"
	"github.com/kneutral-org/lockgate/internal/gate"
	"github.com/kneutral-org/lockgate/internal/logging"
)

func main() {
	host := flag.String("host", "localhost", "arbiter hostname")
	port := flag.Int("port", config.DefaultPort, "arbiter port")
	lockName := flag.String("lock", "demo", "name of the lock to claim")
	interval := flag.Duration("every", 5*time.Second, "how often the demo task fires")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logging.NewPrettyLogger("lockgate-client", *level)

	c, err := client.New(client.Config{
		Host:     *host,
		Port:     *port,
		LockName: *lockName,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid client configuration")
	}

	task := gate.NewTask(*lockName, gate.NewClientLock(c), func(ctx context.Context) error {
		logger.Info().Msg("doing the periodic work on this node")
		return nil
	})
	runner := gate.NewRunner(task, *interval, logger,
		gate.WithOnOutcome(func(o gate.Outcome) {
			if o.Skipped() {
				logger.Info().Msg("firing skipped, another node holds the lock")
			}
		}),
	)
	runner.Start(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	runner.Stop()
	c.Shutdown()
	logger.Info().
		Uint64("ran", task.RanCount()).
		Uint64("skipped", task.SkippedCount()).
		Msg("client has shut down normally")
}
