package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/windbluesea/tacsim-agent/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
	noColor  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tacsim",
	Short: "Battlefield decision agent CLI",
	Long: `tacsim drives the tactical decision pipeline over recorded
scenarios: it ingests DIS-style PDU streams, maintains short-term
tactical memory, and emits per-tick fire and maneuver packages.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tacsim.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(scenariosCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	logger.SetLevel(logger.ParseLevel(logLevel))
	logger.SetNoColor(noColor)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("tacsim")
	}

	viper.SetEnvPrefix("TACSIM")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}
