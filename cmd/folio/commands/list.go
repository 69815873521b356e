package commands

import (
	"fmt"
	"folio/internal/admin"
	"folio/internal/types"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func (c *CLI) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List a resource in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if args[0] == types.ResourceProfile {
				a, err := c.client()
				if err != nil {
					return err
				}
				p, err := a.Profile.Get(ctx)
				if err != nil {
					return err
				}
				b, err := json.MarshalIndent(p, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(c.out, string(b))
				return nil
			}

			m, err := c.manager(args[0])
			if err != nil {
				return err
			}
			where, _ := cmd.Flags().GetString("where")
			var rows []admin.Row
			if where != "" {
				rows, err = m.FilteredRows(ctx, where)
			} else {
				rows, err = m.Rows(ctx)
			}
			if err != nil {
				return err
			}
			c.printRows(rows)
			return nil
		},
	}
	cmd.Flags().StringP("where", "w", "", "JMESPath filter evaluated by the server, e.g. \"visible\"")
	return cmd
}

func (c *CLI) printRows(rows []admin.Row) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ORDER\tID\tVISIBLE\tLABEL")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", r.Order, r.ID, r.Visible, r.Label)
	}
	_ = tw.Flush()
}
