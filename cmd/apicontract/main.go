package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigPath = "./apicontract.yaml"

var rootCmd = &cobra.Command{
	Use:           "apicontract",
	Short:         "Run declarative HTTP contract suites defined in YAML files",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

func init() {
	v := viper.GetViper()
	v.SetDefault("config", defaultConfigPath)

	// Environment variables support: APICONTRACT_CONFIG, APICONTRACT_SUITE_DIR, ...
	v.SetEnvPrefix("APICONTRACT")
	v.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml")
	rootCmd.PersistentFlags().String("suite-dir", "", "directory holding NNN_name.yaml suite files (overrides config)")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("suite_dir", rootCmd.PersistentFlags().Lookup("suite-dir"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(propsCmd)
	rootCmd.AddCommand(fixtureCmd)
}

// loadConfig reads the config named by --config. A missing default config
// yields an empty document so the CLI works without one.
func loadConfig() (*ConfigDoc, error) {
	v := viper.GetViper()
	doc := &ConfigDoc{}
	path := strings.TrimSpace(v.GetString("config"))
	if path != "" {
		if err := doc.Load(path); err != nil {
			if !(errors.Is(err, fs.ErrNotExist) && path == defaultConfigPath) {
				return nil, fmt.Errorf("load config: %w", err)
			}
		}
	}
	if dir := strings.TrimSpace(v.GetString("suite_dir")); dir != "" {
		doc.SuiteDir = dir
	}
	if err := doc.SetupLogging(); err != nil {
		return nil, err
	}
	return doc, nil
}

func main() {
	finish(rootCmd.Execute(), os.Stderr)
}
