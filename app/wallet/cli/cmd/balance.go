package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

// balanceCmd represents the balance command.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Query the node for its balance",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(fmt.Sprintf("%s/v1/balance", nodeURL))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		var bal struct {
			Address string `json:"address"`
			Balance uint64 `json:"balance"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&bal); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("address: %s\nbalance: %d\n", bal.Address, bal.Balance)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
