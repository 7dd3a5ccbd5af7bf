package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	to     string
	amount uint64
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Ask the node to pay an address from its wallet",
	Run: func(cmd *cobra.Command, args []string) {
		payload := struct {
			Address string `json:"address"`
			Amount  uint64 `json:"amount"`
		}{
			Address: to,
			Amount:  amount,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			log.Fatal(err)
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/tx", nodeURL), "application/json", bytes.NewBuffer(data))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Fatal(err)
		}

		if resp.StatusCode != http.StatusOK {
			log.Fatalf("send failed: %s", string(body))
		}

		fmt.Println(string(body))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to pay.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "a", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}
