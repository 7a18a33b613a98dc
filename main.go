package main

import "realestate-marketplace-onchain/cmd"

func main() {
	cmd.Execute()
}
