// Package cli wires the plainread commands: the coordinator daemon,
// the backend proxy, a one-shot explain and cache maintenance.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "plainread",
	Short: "PlainRead explains difficult text in plain English",
	Long: `PlainRead is the reading aid behind the browser extension. It rewrites
selected text in very simple English and extracts the difficult words
with definitions and examples.

The coordinator daemon ("plainread serve") is what the extension talks
to; the proxy ("plainread proxy") is the backend service holding the
provider API key.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to config.toml (default ~/.plainread/config.toml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
