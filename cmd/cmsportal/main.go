package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nanacaring/cmsportal/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cmsportal",
		Short: "Administration portal for the content management backend",
		Long: `cmsportal serves the administration portal.

The portal renders on the server and keeps every browser tab in sync
over a websocket. It signs operators in against the backend API, or
against local break-glass admins when auth.local is enabled.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		adminCmd(),
		versionCmd(),
	)
	return root
}

// describe renders portal errors with their suggestion.
func describe(err error) string {
	if pe, ok := errors.As(err); ok {
		return pe.Format()
	}
	return "\033[31mError:\033[0m " + err.Error()
}
