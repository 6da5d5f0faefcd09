package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/petal-labs/applebooks-mcp/books"
)

// LibraryOpener opens the data access facade and returns a matching close
// function.
type LibraryOpener func(ctx context.Context, log *logrus.Entry) (books.Library, func() error, error)

// Config wires the command tree.
type Config struct {
	Version string
	// OpenLibrary defaults to the Apple Books SQLite stores.
	OpenLibrary LibraryOpener
}

type app struct {
	version     string
	openLibrary LibraryOpener
}

// NewRootCmd builds the applebooks-mcp command. Run without a subcommand it
// serves MCP on stdio.
func NewRootCmd(cfg Config) *cobra.Command {
	a := &app{
		version:     cfg.Version,
		openLibrary: cfg.OpenLibrary,
	}
	if a.version == "" {
		a.version = "dev"
	}
	if a.openLibrary == nil {
		a.openLibrary = openSQLiteLibrary
	}

	root := &cobra.Command{
		Use:   "applebooks-mcp",
		Short: "Apple Books MCP server",
		Long:  "applebooks-mcp serves your Apple Books collections, books and annotations to AI agents over MCP (stdio).",
		Args:  cobra.NoArgs,
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
		RunE:         a.runServe,
	}
	root.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")

	root.Version = a.version
	root.SetVersionTemplate(fmt.Sprintf("applebooks-mcp version %s\n", a.version))

	root.AddCommand(a.newToolsCmd())
	root.AddCommand(a.newCallCmd())
	return root
}

func (a *app) logger(cmd *cobra.Command) *logrus.Logger {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	return NewLogger(cmd.ErrOrStderr(), verbosity)
}

func openSQLiteLibrary(ctx context.Context, log *logrus.Entry) (books.Library, func() error, error) {
	paths, err := books.DiscoverPaths()
	if err != nil {
		return nil, nil, err
	}
	storeLog := log.WithField("component", "books")
	lib, err := books.NewSQLiteLibrary(ctx, books.SQLiteLibraryConfig{
		Paths:  paths,
		Logger: storeLog,
	})
	if err != nil {
		return nil, nil, err
	}
	wrapped, err := withBusyRetries(lib, os.Getenv, storeLog)
	if err != nil {
		_ = lib.Close()
		return nil, nil, err
	}
	return wrapped, lib.Close, nil
}

// withBusyRetries wraps lib in a RetryingLibrary only when the environment
// opts in. By default store errors pass through on the first attempt.
func withBusyRetries(lib books.Library, getenv func(string) string, log *logrus.Entry) (books.Library, error) {
	policy, err := books.RetryPolicyFromEnv(getenv)
	if err != nil {
		return nil, err
	}
	if !policy.Enabled() {
		return lib, nil
	}
	log.WithField("attempts", policy.MaxAttempts).Info("retrying busy store reads")
	return books.NewRetryingLibrary(lib, policy, log), nil
}
