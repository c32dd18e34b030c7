package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshsec/provider-core/config"
)

// configPrintCommand resolves the same flags/env/viper chain run does
// (its flags are the root command's persistent flags, set up once in
// runCommand) and prints the result, so an operator can check what
// meshd would actually load without starting the process.
func configPrintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config print",
		Short: "Resolves and prints the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return fmt.Errorf("couldn't load config: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
}
