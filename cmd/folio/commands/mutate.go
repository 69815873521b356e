package commands

import (
	"fmt"
	"folio/internal/mutation"
	"strconv"

	"github.com/spf13/cobra"
)

func (c *CLI) newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <resource> <id> <position>",
		Short: "Move an item to a zero-based position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("position must be an integer: %w", err)
			}
			m, err := c.manager(args[0])
			if err != nil {
				return err
			}
			res, err := m.MoveID(cmd.Context(), args[1], to)
			return c.report(args[0], res, err)
		},
	}
}

func (c *CLI) newReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <resource> <id>...",
		Short: "Replace the complete order of a resource",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.manager(args[0])
			if err != nil {
				return err
			}
			res, err := m.Reorder(cmd.Context(), args[1:])
			return c.report(args[0], res, err)
		},
	}
}

func (c *CLI) newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <resource> <id>",
		Short: "Show or hide an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.manager(args[0])
			if err != nil {
				return err
			}
			res, err := m.ToggleVisibility(cmd.Context(), args[1])
			return c.report(args[0], res, err)
		},
	}
}

func (c *CLI) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.manager(args[0])
			if err != nil {
				return err
			}
			res, err := m.Delete(cmd.Context(), args[1])
			return c.report(args[0], res, err)
		},
	}
}

// report prints the outcome of a mutation and the resulting order.
func (c *CLI) report(resource string, res mutation.Result, err error) error {
	if err != nil {
		if res.Outcome == mutation.RolledBack {
			_, _ = fmt.Fprintf(c.out, "%s: %s\n", resource, res.Outcome)
		}
		return err
	}
	_, _ = fmt.Fprintf(c.out, "%s: %s\n", resource, res.Outcome)
	m, err := c.manager(resource)
	if err != nil {
		return err
	}
	rows, err := m.Rows(c.rootCmd.Context())
	if err != nil {
		return err
	}
	c.printRows(rows)
	return nil
}
