package main

import (
	"fmt"
	"strings"

	"github.com/loykin/apicontract/internal/constants"
	"github.com/loykin/apicontract/pkg/props"
	"github.com/spf13/cobra"
)

var propsCmd = &cobra.Command{
	Use:   "props",
	Short: "Read or update the local properties file",
}

var propsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a property value (APICONTRACT_<KEY> overrides the file)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := propertiesFile(cmd)
		if err != nil {
			return err
		}
		v, ok, err := props.Lookup(file, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("property %q not found in %s", args[0], file)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var propsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a property value, creating the file when missing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := propertiesFile(cmd)
		if err != nil {
			return err
		}
		return props.Update(file, args[0], args[1])
	},
}

func init() {
	propsCmd.PersistentFlags().String("file", "", "properties file (defaults to properties_file from the config)")
	propsCmd.AddCommand(propsGetCmd)
	propsCmd.AddCommand(propsSetCmd)
}

func propertiesFile(cmd *cobra.Command) (string, error) {
	if f, _ := cmd.Flags().GetString("file"); strings.TrimSpace(f) != "" {
		return f, nil
	}
	doc, err := loadConfig()
	if err != nil {
		return "", err
	}
	if f := strings.TrimSpace(doc.PropertiesFile); f != "" {
		return f, nil
	}
	return constants.DefaultPropertiesFile, nil
}
