package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minicoin/minicoin/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new private key and write it to the wallet file",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(walletFile); err == nil {
			log.Fatalf("wallet file %s already exists", walletFile)
		}

		privateKey, err := signature.GenerateKey()
		if err != nil {
			log.Fatal(err)
		}

		if err := os.MkdirAll(filepath.Dir(walletFile), 0o755); err != nil {
			log.Fatal(err)
		}

		if err := crypto.SaveECDSA(walletFile, privateKey); err != nil {
			log.Fatal(err)
		}

		fmt.Println(signature.Address(privateKey))
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
