// Package cli wires the relstore command tree. The commands are thin
// shells: they open the database, build the schema family once, and
// hand everything to the store.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relstore",
		Short: "Schema-driven relational CRUD for SQLite",
		Long: `Relstore connects to a SQLite database, infers table relationships
from naming conventions (foreign-key columns named <table>_<pk>, junction
tables named rel_<a>_<b>), and exposes generic relationship-aware CRUD
without per-table mapping code.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./relstore.yaml)")
	cmd.PersistentFlags().String("dsn", "", "SQLite database path (or :memory:)")
	cmd.PersistentFlags().StringSlice("exclude", nil, "tables to exclude from the schema family")
	cmd.PersistentFlags().String("junction-prefix", "", `junction table prefix (default "rel")`)
	cmd.PersistentFlags().String("junction-splitter", "", `junction name splitter (default "_")`)
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	viper.BindPFlag("dsn", cmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("exclude", cmd.PersistentFlags().Lookup("exclude"))
	viper.BindPFlag("junction_prefix", cmd.PersistentFlags().Lookup("junction-prefix"))
	viper.BindPFlag("junction_splitter", cmd.PersistentFlags().Lookup("junction-splitter"))
	viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newTablesCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newDriftCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("relstore")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.relstore")
	}

	viper.SetEnvPrefix("RELSTORE")
	viper.AutomaticEnv()
	viper.ReadInConfig() // config file is optional
}
