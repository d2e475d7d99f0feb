package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fenwick/toolplane/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "toolplane",
	Short: "Concurrency and safety control plane for agent tool execution",
	Long: `Toolplane runs agent tool calls through a bounded parallel scheduler,
isolates repeatedly failing capabilities behind per-key circuits, and
gates side-effecting actions behind a configurable human approval
policy.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/toolplane/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/toolplane")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TOOLPLANE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TOOLPLANE_SCHEDULER_POOL_SIZE for scheduler.pool_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
