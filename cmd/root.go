// Package cmd provides the pagesmith command-line interface.
//
// Configuration is read, highest priority first, from command-line flags,
// PAGESMITH_<SECTION>_<OPTION> environment variables (also loaded from a .env
// file), the file named by --config or PAGESMITH_CONFIG_FILE, and finally
// .pagesmith.yml in the current directory.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagesmith",
	Short: "An incremental component-based static site builder",
	Long: `Pagesmith builds a static website from HTML pages that include reusable
components with tags such as <r-top-bar>. Only pages affected by a change are
rebuilt; component stylesheets and scripts are compiled with sass and tsc.

Quick Start:
  pagesmith build                 Build what changed since the last build
  pagesmith build --fresh         Rebuild everything from scratch
  pagesmith serve                 Watch, rebuild and preview with live reload
  pagesmith list -d               List components and the files using them

Command Aliases:
  build (b), watch (w), serve (s), list (l)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and reports any error
// on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pagesmith.yml, can also use PAGESMITH_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file, rotated by size")

	bindFlagToConfig(rootCmd.PersistentFlags(), "log-level", "log.level")
	bindFlagToConfig(rootCmd.PersistentFlags(), "log-file", "log.file")
}

// initConfig locates the configuration file and enables environment
// overrides. A missing file is not an error; defaults apply.
func initConfig() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("PAGESMITH_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pagesmith")
	}

	viper.SetEnvPrefix("PAGESMITH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && viper.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", viper.ConfigFileUsed(), err)
	}
}

// configPath names the configuration file in user-facing messages.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return ".pagesmith.yml"
}
