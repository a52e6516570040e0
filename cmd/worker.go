package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aide/internal/app"
)

// workerCmd runs the driver loop: poll the queue, execute one job at a time,
// fire schedules and sweep expired terminal jobs.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the job worker loop",
	Long: `Starts the worker process: polls the queue on an interval, executes the
next job via the agent process (one at a time), enqueues scheduled tasks and
periodically deletes terminal jobs past the retention window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()
		return runWorker(cmd.Context(), appInstance)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// waitForIdle blocks until the supervisor finishes its in-flight job or the
// deadline passes.
func waitForIdle(appInstance *app.App, limit time.Duration) {
	deadline := time.Now().Add(limit)
	for appInstance.Supervisor.IsProcessing() && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
}

func runWorker(ctx context.Context, appInstance *app.App) error {
	cfg := appInstance.Config

	appInstance.Scheduler.Start()
	defer appInstance.Scheduler.Stop()

	pollTicker := time.NewTicker(cfg.Worker.PollInterval)
	defer pollTicker.Stop()
	sweepTicker := time.NewTicker(cfg.Worker.SweepInterval)
	defer sweepTicker.Stop()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	log.Infof("Worker started (poll: %s, timeout: %s, schedules: %d)",
		cfg.Worker.PollInterval, cfg.Agent.Timeout, appInstance.Scheduler.Entries())

	for {
		select {
		case <-shutdown:
			log.Info("Shutdown signal received. Stopping worker...")
			// The interrupted run records its own failure before the
			// supervisor unwinds; give it until the kill grace elapses.
			appInstance.Supervisor.KillCurrentProcess()
			waitForIdle(appInstance, cfg.Agent.KillGrace+5*time.Second)
			log.Info("Worker shutdown complete.")
			return nil

		case <-ctx.Done():
			appInstance.Supervisor.KillCurrentProcess()
			waitForIdle(appInstance, cfg.Agent.KillGrace+5*time.Second)
			return ctx.Err()

		case <-pollTicker.C:
			// A job can run for up to the full timeout; execute off the
			// loop goroutine so shutdown stays responsive. Overlapping
			// ticks are rejected by the supervisor's re-entrancy guard.
			go func() {
				if appInstance.Supervisor.ProcessNextJob(ctx) {
					log.Debug("Worker: processed one job")
				}
			}()

		case <-sweepTicker.C:
			n, err := appInstance.Queue.ExpireOldJobs(ctx, cfg.Worker.Retention)
			if err != nil {
				log.Errorf("Worker: retention sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("Worker: retention sweep deleted %d terminal job(s)", n)
			}
		}
	}
}
