package main

import (
	"github.com/iidesho/auditflow/config"
	"github.com/iidesho/auditflow/webserver/health"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "auditflow",
	Short: "Audit event buffering and scheduled maintenance",
	Long: `Buffers login and operation audit events, flushes them to the document
store on a fixed period and disables tenants whose subscription has expired.`,
	Version: health.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		settings = cfg
		return config.SetupLogging(cfg.LogDir)
	},
	SilenceUsage: true,
}

var settings config.Config

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	config.LoadEnvFiles()
	config.Bind(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.String("backend", config.BackendNuts, "event buffer backend: redis, nutsdb, badger or memory")
	flags.String("redis-addr", "localhost:6379", "redis address for the redis backend")
	flags.String("nuts-dir", "./data/buffer", "directory of the nutsdb backend")
	flags.String("badger-dir", "./data/badger", "directory of the badger backend")
	viper.BindPFlag(config.KeyBufferBackend, flags.Lookup("backend"))
	viper.BindPFlag(config.KeyRedisAddr, flags.Lookup("redis-addr"))
	viper.BindPFlag(config.KeyNutsDir, flags.Lookup("nuts-dir"))
	viper.BindPFlag(config.KeyBadgerDir, flags.Lookup("badger-dir"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pushCmd)
}
