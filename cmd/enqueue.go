package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aide/internal/models"
	"aide/internal/store"
)

var (
	enqueueChatID   string
	enqueueSource   string
	enqueuePriority string
	enqueuePhone    string
	enqueueSession  string
)

// enqueueCmd adds a task to the queue from the command line.
var enqueueCmd = &cobra.Command{
	Use:   "enqueue <task text>",
	Short: "Add a task to the job queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		priority, err := models.ParsePriority(enqueuePriority)
		if err != nil {
			return err
		}

		id, err := appInstance.Queue.Enqueue(cmd.Context(), store.EnqueueParams{
			Task:        strings.Join(args, " "),
			ChatID:      enqueueChatID,
			Source:      enqueueSource,
			Priority:    priority,
			PhoneNumber: enqueuePhone,
			SessionCode: enqueueSession,
		})
		if err != nil {
			return fmt.Errorf("failed to enqueue job: %w", err)
		}

		fmt.Printf("Enqueued job %s (priority %s)\n", id, priority)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueChatID, "chat", "", "Chat/session identifier for result delivery")
	enqueueCmd.Flags().StringVar(&enqueueSource, "source", models.SourceCLI, "Producing channel tag")
	enqueueCmd.Flags().StringVar(&enqueuePriority, "priority", "normal", "Priority: critical|high|normal|low")
	enqueueCmd.Flags().StringVar(&enqueuePhone, "phone", "", "Phone number (enables context enrichment for the conversational channel)")
	enqueueCmd.Flags().StringVar(&enqueueSession, "session", "", "Session code to resume a prior agent session")
	rootCmd.AddCommand(enqueueCmd)
}
