package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/mosaiclabs-eth/walletkit/core/chainio/aa"
	"github.com/mosaiclabs-eth/walletkit/core/chainio/signer"
	"github.com/mosaiclabs-eth/walletkit/core/config"
	"github.com/mosaiclabs-eth/walletkit/pkg/eip1559"
	"github.com/mosaiclabs-eth/walletkit/pkg/logger"
	"github.com/mosaiclabs-eth/walletkit/wallet"
)

var (
	sendOwnerKey string
	sendTarget   string
	sendData     string
	sendValue    string
	sendSponsor  bool
	sendWait     bool

	sendCmd = &cobra.Command{
		Use:   "send",
		Short: "Send a user operation through the bundler",
		Long: `Build, sign, and submit a user operation calling the target contract.
If the smart wallet is not deployed yet, the operation carries initCode
so deployment and the call happen atomically.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSend(); err != nil {
				fmt.Printf("Send failed: %v\n", err)
				os.Exit(1)
			}
		},
	}
)

func runSend() error {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	owner, err := signer.FromPrivateKeyHex(sendOwnerKey)
	if err != nil {
		return err
	}

	target, err := aa.ParseAddress("target", sendTarget)
	if err != nil {
		return err
	}

	var calldata []byte
	if sendData != "" {
		if calldata, err = hexutil.Decode(sendData); err != nil {
			return fmt.Errorf("invalid calldata: %w", err)
		}
	}

	value := big.NewInt(0)
	if sendValue != "" {
		if _, ok := value.SetString(sendValue, 10); !ok {
			return fmt.Errorf("invalid value %q, want wei as a decimal string", sendValue)
		}
	}

	lgr, err := logger.NewZapLogger(logger.Production)
	if err != nil {
		return err
	}

	client, err := ethclient.Dial(cfg.EthRpcUrl)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer client.Close()

	fees, err := eip1559.NewCachedSuggester(client, 3*time.Second)
	if err != nil {
		return fmt.Errorf("init fee cache: %w", err)
	}

	session := wallet.NewSession(cfg, owner, client,
		wallet.WithLogger(lgr),
		wallet.WithFeeSuggester(fees),
	)

	walletAddr, err := session.Address()
	if err != nil {
		return err
	}
	fmt.Printf("Wallet:    %s\n", walletAddr.Hex())

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	opHash, err := session.SendUserOperation(ctx, target, calldata, value, sendSponsor)
	if err != nil {
		return err
	}
	fmt.Printf("Submitted: %s\n", opHash)

	if !sendWait {
		return nil
	}

	fmt.Printf("Waiting for receipt...\n")
	receipt, err := session.WaitForReceipt(ctx, opHash)
	if err != nil {
		return err
	}
	fmt.Printf("Mined:     success=%t gasCost=%s\n", receipt.Success, receipt.ActualGasCost)
	return nil
}

func init() {
	sendCmd.Flags().StringVar(&sendOwnerKey, "private-key", "", "Owner private key hex (required)")
	sendCmd.Flags().StringVar(&sendTarget, "target", "", "Target contract address (required)")
	sendCmd.Flags().StringVar(&sendData, "data", "", "Call data hex (0x-prefixed)")
	sendCmd.Flags().StringVar(&sendValue, "value", "", "Wei to send with the call")
	sendCmd.Flags().BoolVar(&sendSponsor, "sponsor", false, "Request gas sponsorship (best effort)")
	sendCmd.Flags().BoolVar(&sendWait, "wait", false, "Block until the operation is mined")
	sendCmd.MarkFlagRequired("private-key")
	sendCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(sendCmd)
}
