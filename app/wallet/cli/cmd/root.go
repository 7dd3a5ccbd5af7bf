// Package cmd contains the wallet app commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	walletFile string
	nodeURL    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&walletFile, "wallet", "w", "wallet/private_key", "Path to the private key file.")
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "url", "u", "http://localhost:3000", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "A simple wallet for the minicoin chain",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
