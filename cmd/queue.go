package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"aide/internal/models"
)

var queueExpireMaxAge time.Duration

// queueCmd groups queue inspection and maintenance commands.
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and maintain the job queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending jobs in execution order",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		jobs, err := appInstance.Queue.GetPendingJobs(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list pending jobs: %w", err)
		}
		if len(jobs) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Priority", "Source", "Created", "Task"})
		for _, job := range jobs {
			table.Append([]string{
				job.ID[:8],
				colorPriority(job.Priority),
				job.Source,
				job.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(job.Task, 60),
			})
		}
		table.Render()
		return nil
	},
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depth and the active job",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		depth, err := appInstance.Queue.GetQueueDepth(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get queue depth: %w", err)
		}
		active, err := appInstance.Queue.GetActiveJob(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get active job: %w", err)
		}

		fmt.Printf("Pending jobs: %d\n", depth)
		if active == nil {
			fmt.Println("Active job: none")
			return nil
		}
		fmt.Printf("Active job: %s (priority %s, started %s)\n",
			active.ID, active.Priority, active.StartedAt.Local().Format("15:04:05"))
		fmt.Printf("  Task: %s\n", truncate(active.Task, 100))
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all jobs from every partition (maintenance only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		if err := appInstance.Queue.ClearQueue(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear queue: %w", err)
		}
		fmt.Println("Queue cleared.")
		return nil
	},
}

var queueExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Delete terminal jobs older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		maxAge := queueExpireMaxAge
		if !cmd.Flags().Changed("max-age") {
			maxAge = appInstance.Config.Worker.Retention
		}
		n, err := appInstance.Queue.ExpireOldJobs(cmd.Context(), maxAge)
		if err != nil {
			return fmt.Errorf("failed to expire jobs: %w", err)
		}
		fmt.Printf("Deleted %d terminal job(s).\n", n)
		return nil
	},
}

func colorPriority(p models.Priority) string {
	switch p {
	case models.PriorityCritical:
		return color.RedString(p.String())
	case models.PriorityHigh:
		return color.YellowString(p.String())
	case models.PriorityLow:
		return color.HiBlackString(p.String())
	}
	return p.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	queueExpireCmd.Flags().DurationVar(&queueExpireMaxAge, "max-age", 72*time.Hour, "Delete terminal jobs older than this")
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueClearCmd)
	queueCmd.AddCommand(queueExpireCmd)
	rootCmd.AddCommand(queueCmd)
}
