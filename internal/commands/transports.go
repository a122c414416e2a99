package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-apicall/transport"
)

// NewTransportsCommand creates the transports command.
func NewTransportsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transports",
		Short: "List built-in transport adapters",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range transport.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apicall version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built with %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

// NewRootCommand assembles the apicall command tree.
func NewRootCommand(version string) *cobra.Command {
	global := &GlobalOptions{}

	root := &cobra.Command{
		Use:   "apicall",
		Short: "Call HTTP APIs through a configurable client",
		Long: `apicall sends GET, POST or arbitrary-method calls to the base URL configured
in client.url, through the adapter selected by client.transport.

Configuration is read from the YAML file given by --config and from
APICALL_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&global.ConfigPath, "config", "c", "apicall.yaml", "Path to the YAML configuration file")

	root.AddCommand(
		NewGetCommand(global),
		NewPostCommand(global),
		NewCallCommand(global),
		NewTransportsCommand(),
		NewVersionCommand(version),
	)
	return root
}
