// Command universal is a terminal browser for record collections served by a
// generic REST backend.
//
// Usage:
//
//	universal                   Browse the configured data sources
//	universal list <source>     Page through a data source and print a table
//	universal stats             Persistent mirror contents
//	universal events            JSONL event log viewer
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "universal",
	Short: "Browse, edit and share records from a REST backend",
	Long: `universal renders any record collection as a scrolling list.

Each data source maps record fields onto an image, a heading and sub-headings.
Pages load as you scroll and are mirrored locally, so the next start shows the
last list instantly. Press e to edit the configured field of the selected
record and n to send it to a registered notification target.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowser(cmd.Context())
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("UNIVERSAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (.json or .yaml, default ~/.universal/config.json)")
	flags.String("api-base", "", "backend base URL (overrides config)")
	flags.String("db", "", "mirror database path (default ~/.universal/mirror.db)")
	flags.Bool("no-cache", false, "keep the mirror in memory for this run")
	flags.Bool("debug", false, "debug-level file logging")
	flags.String("env-file", "", "shell env file to read before the config")
	for _, name := range []string{"config", "api-base", "db", "no-cache", "debug", "env-file"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(eventsCmd())
}
