package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	viperV  = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "mcpwatch",
	Short: "Transparent hot-reload proxy for an MCP server under development",
	Long: "mcpwatch sits between an MCP client and a locally-developed MCP server, " +
		"rebuilding and restarting the server on file change while keeping the " +
		"client's session alive across restarts.",
}

// Execute runs the root command, printing any error to stderr and exiting
// non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to mcpwatch config file (default: platform config dir)")
}
