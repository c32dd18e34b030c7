// Command meshd runs one mesh provider-core process: a vault, its two
// staking destinations (external-staking over the transport, plus a
// fixed-validator native proxy), and the HTTP surface a remote staking
// system or operator tooling talks to.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cobra.EnablePrefixMatching = true
}

func main() {
	cmd := rootCommand()
	ctx := context.Background()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "meshd: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := runCommand()
	cmd.AddCommand(
		versionCommand(),
		configPrintCommand(),
	)
	return cmd
}
