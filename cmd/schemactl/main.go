package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "schemactl: %v\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "schemactl",
		Short:         "Schema.org JSON-LD generator and dynamic schema server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (.toml, .yaml)")
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", []string{".env", ".env.local"}, "env files loaded before config")

	root.AddCommand(
		newServeCmd(flags),
		newValidateCmd(),
		newRenderCmd(),
		newConfigCmd(),
	)
	return root
}
