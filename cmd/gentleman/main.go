package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	interrors "github.com/gentleman-programming/gentleman-signals-state-manager/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gentleman",
		Short: "Signals-based state management for Go",
		Long: `Gentleman is a signals-based state manager.

It serves a keyed store of reactive cells seeded from a default-state
configuration, with:

  • Lazy materialization and stable cell identity per key
  • A live inspector (HTTP + WebSocket) over the store
  • Prometheus metrics and OpenTelemetry spans on updates
  • Snapshot persistence to a local file or S3`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		snapshotCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		var serr *interrors.StateError
		if errors.As(err, &serr) {
			fmt.Fprint(os.Stderr, serr.Format())
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}
