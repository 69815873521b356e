package commands

import (
	"fmt"
	"folio/internal/api"
	"folio/internal/types"

	"github.com/spf13/cobra"
)

func (c *CLI) newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access/refresh token pair for the reference admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(c.cfg.Server.JWTSecret) < types.MinJWTSecretLength {
				return types.Err(types.ErrInvalidConfig, nil, "FOLIO_JWT_SECRET must be at least %d characters", types.MinJWTSecretLength)
			}
			subject, _ := cmd.Flags().GetString("subject")
			access, refresh, err := api.NewAuthenticator(c.cfg.Server.JWTSecret).Issue(subject)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.out, "FOLIO_TOKEN=%s\nFOLIO_REFRESH_TOKEN=%s\n", access, refresh)
			return nil
		},
	}
	cmd.Flags().String("subject", "admin", "Subject claim of the issued tokens")
	return cmd
}
