package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plainread/plainread/internal/bridge"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the plainread version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("plainread", bridge.Version)
	},
}
