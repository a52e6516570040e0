package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aide/internal/apihandlers"
)

// serveCmd runs the HTTP producer API (enqueue, webhooks, queue inspection).
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP producer API",
	Long: `Starts an HTTP server through which chat adapters, webhooks and other
producers enqueue tasks and inspect the queue. Execution stays with the
worker process; run both against the same database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		router := gin.Default()
		apihandlers.NewAPIHandler(appInstance).RegisterRoutes(router)

		listenAddr := fmt.Sprintf("%s:%s", appInstance.Config.Server.Address, appInstance.Config.Server.Port)
		log.Infof("Starting aide API server on http://%s", listenAddr)

		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
