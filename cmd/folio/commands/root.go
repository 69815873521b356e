// Package commands implements the folio CLI.
package commands

import (
	"context"
	"folio/internal/admin"
	"folio/internal/api"
	"folio/internal/ports"
	"folio/internal/query"
	"folio/internal/session"
	"folio/internal/types"
	"io"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI represents the command line interface of folio.
type CLI struct {
	rootCmd *cobra.Command
	out     io.Writer
	getenv  func(string) string

	cfg   types.Config
	store *query.Store
	admin *admin.Admin
}

// New creates the CLI. getenv is consulted after the .env file is loaded.
func New(out io.Writer, getenv func(string) string) *CLI {
	c := &CLI{out: out, getenv: getenv}

	rootCmd := &cobra.Command{
		Use:               "folio",
		Short:             "Manage the content of a portfolio site",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           Version,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { c.close() },
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); defaults to $LOG_LEVEL or info")

	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newTokenCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newMoveCmd())
	rootCmd.AddCommand(c.newReorderCmd())
	rootCmd.AddCommand(c.newToggleCmd())
	rootCmd.AddCommand(c.newDeleteCmd())
	rootCmd.AddCommand(c.newUploadCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	c.rootCmd = rootCmd
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// setup loads the .env file, the configuration and the log level.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	envFile := c.getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debugf("no env file loaded from %s", envFile)
	}

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = c.getenv("LOG_LEVEL")
	}
	if level != "" {
		lvl, err := log.ParseLevel(level)
		if err != nil {
			return types.Err(types.ErrInvalidConfig, err, "log level")
		}
		log.SetLevel(lvl)
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := types.LoadConfig(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(c.getenv)
	c.cfg = cfg
	return nil
}

// client builds the admin bindings on first use.
func (c *CLI) client() (*admin.Admin, error) {
	if c.admin != nil {
		return c.admin, nil
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, types.Err(types.ErrInvalidConfig, err, "")
	}

	var tokens ports.TokenSource = session.StaticTokenSource(c.cfg.API.Token)
	if c.cfg.API.RefreshToken != "" {
		tokens = session.NewRefreshingTokenSource(c.cfg.API.BaseURL, c.cfg.API.RefreshPath, nil,
			c.cfg.API.Token, c.cfg.API.RefreshToken)
	}
	signal := &session.Signal{}
	signal.Subscribe(func(reason types.Reason) {
		log.WithField("reason", reason).Warn("signed out; set FOLIO_TOKEN or FOLIO_REFRESH_TOKEN")
	})

	c.store = query.New(c.cfg.Cache.StaleAfter)
	c.admin = admin.New(api.NewClientFromConfig(c.cfg, tokens, signal), c.store)
	return c.admin, nil
}

func (c *CLI) manager(resource string) (admin.Manager, error) {
	a, err := c.client()
	if err != nil {
		return nil, err
	}
	m, ok := a.Manager(resource)
	if !ok {
		return nil, types.Err(types.ErrNotFound, nil, "unknown resource %q, expected one of %v", resource, a.Resources())
	}
	return m, nil
}

func (c *CLI) close() {
	if c.store != nil {
		c.store.Close()
	}
}
