package commands

import (
	"folio/internal/api"
	"folio/internal/backends"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				c.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("backend") {
				c.cfg.Server.Backend, _ = cmd.Flags().GetString("backend")
			}
			if err := c.cfg.ValidateServer(); err != nil {
				return err
			}
			store, err := backends.ResourceBackend(c.cfg.Server.Backend)
			if err != nil {
				return err
			}
			publisher, err := backends.PublisherFromEnv(c.cfg.Server.TopicArn)
			if err != nil {
				return err
			}

			stop, done := api.RunServerInterruptible(c.cfg.Server, store, publisher)
			select {
			case err := <-done:
				return err
			case <-cmd.Context().Done():
				log.Info("shutting down")
				close(stop)
				return <-done
			}
		},
	}
	cmd.Flags().IntP("port", "p", 0, "Port to listen on (default from config, 8080)")
	cmd.Flags().String("backend", "", "Resource backend: ddb, redis or memory (default $RESOURCE_BACKEND)")
	return cmd
}
