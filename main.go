package main

import (
	"github.com/mosaiclabs-eth/walletkit/cmd"
)

func main() {
	cmd.Execute()
}
