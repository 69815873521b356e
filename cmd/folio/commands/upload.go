package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (c *CLI) newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()
			a, err := c.client()
			if err != nil {
				return err
			}
			res, err := a.Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.out, res.URL)
			return nil
		},
	}
}
