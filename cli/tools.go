package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/applebooks-mcp/tool"
)

func (a *app) newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools served over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "NAME\tARGS\tDESCRIPTION")
			for _, t := range tool.Catalog() {
				args := strings.Join(t.ArgNames(), ",")
				if args == "" {
					args = "-"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\n", t.Name, args, t.Description)
			}
			return writer.Flush()
		},
	}
}

func (a *app) newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [key=value ...]",
		Short: "Run one tool against the local library and print its result",
		Args:  cobra.MinimumNArgs(1),
		RunE:  a.runCall,
	}
}

func (a *app) runCall(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	toolArgs, err := parseToolArgs(args[1:])
	if err != nil {
		return exitError(exitUsage, "%v", err)
	}

	logger := a.logger(cmd)
	registry, cleanup, err := a.buildRegistry(cmd.Context(), logger, false)
	if err != nil {
		return err
	}
	defer cleanup()

	text, err := registry.Call(cmd.Context(), name, toolArgs)
	if err != nil {
		return exitError(exitToolFailure, "%v", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

// parseToolArgs turns key=value pairs into tool arguments. Values keep
// any further '=' characters.
func parseToolArgs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
