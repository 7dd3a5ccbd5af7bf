package main

import "github.com/minicoin/minicoin/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
