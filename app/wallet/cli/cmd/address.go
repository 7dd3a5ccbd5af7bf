package cmd

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minicoin/minicoin/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

// addressCmd represents the address command.
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address for the wallet key",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(walletFile)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(signature.Address(privateKey))
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
