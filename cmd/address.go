package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/mosaiclabs-eth/walletkit/core/chainio/aa"
	"github.com/mosaiclabs-eth/walletkit/core/config"
)

var (
	addressOwner string
	addressSalt  int64

	addressCmd = &cobra.Command{
		Use:   "address",
		Short: "Derive the smart wallet address for an owner",
		Long: `Derive the counterfactual smart wallet address for an owner address
and salt. Derivation is offline; deployment status is checked when the
configured RPC endpoint is reachable.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.NewConfig(configPath)
			if err != nil {
				fmt.Printf("Failed to load config: %v\n", err)
				os.Exit(1)
			}

			owner, err := aa.ParseAddress("owner", addressOwner)
			if err != nil {
				fmt.Printf("Invalid owner: %v\n", err)
				os.Exit(1)
			}

			walletAddr, err := aa.ComputeSmartWalletAddress(cfg.Factory, owner, big.NewInt(addressSalt))
			if err != nil {
				fmt.Printf("Derivation failed: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("Network:  %s\n", cfg.Network)
			fmt.Printf("Owner:    %s\n", owner.Hex())
			fmt.Printf("Salt:     %d\n", addressSalt)
			fmt.Printf("Wallet:   %s\n", walletAddr.Hex())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			client, err := ethclient.DialContext(ctx, cfg.EthRpcUrl)
			if err != nil {
				fmt.Printf("Deployed: unknown (rpc unreachable: %v)\n", err)
				return
			}
			defer client.Close()

			code, err := client.CodeAt(ctx, walletAddr, nil)
			if err != nil {
				fmt.Printf("Deployed: unknown (%v)\n", err)
				return
			}
			fmt.Printf("Deployed: %t\n", len(code) > 0)
		},
	}
)

func init() {
	addressCmd.Flags().StringVar(&addressOwner, "owner", "", "Owner address (required)")
	addressCmd.Flags().Int64Var(&addressSalt, "salt", 0, "Wallet index salt")
	addressCmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(addressCmd)
}
