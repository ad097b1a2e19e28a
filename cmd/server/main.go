package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"redline/internal/adapters/storage"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	v := viper.New()

	root := &cobra.Command{
		Use:           "redline",
		Short:         "REDLINE resume risk report with a payment-gated disclosure",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./redline.yaml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v, configFile)
		},
	}
	serve.Flags().String("addr", "", "listen address, overrides server.addr")
	if err := v.BindPFlag("server.addr", serve.Flags().Lookup("addr")); err != nil {
		panic(err)
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version and schema version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "redline %s (schema %d)\n", version, storage.LatestSchemaVersion())
		},
	}

	root.AddCommand(serve, versionCmd)
	return root
}
