package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/mosaiclabs-eth/walletkit/core/chainio/aa"
	"github.com/mosaiclabs-eth/walletkit/core/chainio/signer"
	"github.com/mosaiclabs-eth/walletkit/core/config"
	"github.com/mosaiclabs-eth/walletkit/core/sessionkey"
	"github.com/mosaiclabs-eth/walletkit/storage"
)

var (
	skOwnerKey  string
	skContracts string
	skMaxAmount string
	skTTL       time.Duration
	skOwner     string

	sessionKeyCmd = &cobra.Command{
		Use:   "session-key",
		Short: "Manage scoped session keys",
	}

	sessionKeyGrantCmd = &cobra.Command{
		Use:   "grant",
		Short: "Issue a new session key",
		Long: `Generate a delegate keypair and sign a grant scoping it to the given
contracts, amount cap, and lifetime. The delegate private key is
printed once and never stored.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSessionKeyGrant(); err != nil {
				fmt.Printf("Grant failed: %v\n", err)
				os.Exit(1)
			}
		},
	}

	sessionKeyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List an owner's session key grants",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSessionKeyList(); err != nil {
				fmt.Printf("List failed: %v\n", err)
				os.Exit(1)
			}
		},
	}

	sessionKeyPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete an owner's expired grants",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSessionKeyPrune(); err != nil {
				fmt.Printf("Prune failed: %v\n", err)
				os.Exit(1)
			}
		},
	}
)

func openGrantStore() (*sessionkey.Store, storage.Storage, func(), error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.StoragePath == "" {
		return nil, nil, nil, fmt.Errorf("storage_path not set in config")
	}

	db, err := storage.NewWithPath(cfg.StoragePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage at %s: %w", cfg.StoragePath, err)
	}
	return sessionkey.NewStore(db), db, func() { db.Close() }, nil
}

func runSessionKeyGrant() error {
	owner, err := signer.FromPrivateKeyHex(skOwnerKey)
	if err != nil {
		return err
	}

	perms := sessionkey.Permissions{
		MaxAmount: skMaxAmount,
		ExpiresAt: time.Now().Add(skTTL).Unix(),
	}
	for _, c := range strings.Split(skContracts, ",") {
		addr, err := aa.ParseAddress("contract", strings.TrimSpace(c))
		if err != nil {
			return err
		}
		perms.Contracts = append(perms.Contracts, addr)
	}

	key, delegateKey, err := sessionkey.Create(owner, perms)
	if err != nil {
		return err
	}

	store, _, closeStore, err := openGrantStore()
	if err != nil {
		return err
	}
	defer closeStore()

	id, err := store.Save(owner.Address(), key)
	if err != nil {
		return err
	}

	fmt.Printf("Grant id:     %s\n", id)
	fmt.Printf("Delegate:     %s\n", key.Address.Hex())
	fmt.Printf("Delegate key: %s\n", hexutil.Encode(crypto.FromECDSA(delegateKey)))
	fmt.Printf("Expires:      %s\n", time.Unix(perms.ExpiresAt, 0).UTC().Format(time.RFC3339))
	return nil
}

// grantLine formats one stored grant for the list output. A grant with
// no key payload is a corrupt record, not a panic.
func grantLine(g *sessionkey.Grant, owner common.Address, now int64) string {
	if g.Key == nil {
		return fmt.Sprintf("  %s  corrupt grant record", g.ID)
	}

	status := "valid"
	if !sessionkey.Validate(g.Key, owner) {
		status = "invalid"
		if now > g.Key.Permissions.ExpiresAt {
			status = "expired"
		}
	}
	return fmt.Sprintf("  %s  delegate=%s  expires=%s  %s",
		g.ID,
		g.Key.Address.Hex(),
		time.Unix(g.Key.Permissions.ExpiresAt, 0).UTC().Format(time.RFC3339),
		status,
	)
}

func runSessionKeyList() error {
	store, _, closeStore, err := openGrantStore()
	if err != nil {
		return err
	}
	defer closeStore()

	owner, err := aa.ParseAddress("owner", skOwner)
	if err != nil {
		return err
	}

	grants, err := store.ListByOwner(owner)
	if err != nil {
		return err
	}

	fmt.Printf("Grants for %s: %d\n", owner.Hex(), len(grants))
	now := time.Now().Unix()
	for _, g := range grants {
		fmt.Println(grantLine(g, owner, now))
	}
	return nil
}

func runSessionKeyPrune() error {
	store, db, closeStore, err := openGrantStore()
	if err != nil {
		return err
	}
	defer closeStore()

	owner, err := aa.ParseAddress("owner", skOwner)
	if err != nil {
		return err
	}

	pruned, err := store.PruneExpired(owner)
	if err != nil {
		return err
	}

	// reclaim value-log space freed by the deletes
	if err := db.Vacuum(); err != nil && err != badger.ErrNoRewrite {
		fmt.Printf("Vacuum warning: %v\n", err)
	}

	fmt.Printf("Pruned %d expired grants from %s\n", pruned, db.DbPath())
	return nil
}

func init() {
	sessionKeyGrantCmd.Flags().StringVar(&skOwnerKey, "private-key", "", "Owner private key hex (required)")
	sessionKeyGrantCmd.Flags().StringVar(&skContracts, "contracts", "", "Comma-separated contract addresses the key may call (required)")
	sessionKeyGrantCmd.Flags().StringVar(&skMaxAmount, "max-amount", "0", "Decimal cap on value moved per call")
	sessionKeyGrantCmd.Flags().DurationVar(&skTTL, "ttl", 24*time.Hour, "Grant lifetime")
	sessionKeyGrantCmd.MarkFlagRequired("private-key")
	sessionKeyGrantCmd.MarkFlagRequired("contracts")

	sessionKeyListCmd.Flags().StringVar(&skOwner, "owner", "", "Owner address (required)")
	sessionKeyListCmd.MarkFlagRequired("owner")

	sessionKeyPruneCmd.Flags().StringVar(&skOwner, "owner", "", "Owner address (required)")
	sessionKeyPruneCmd.MarkFlagRequired("owner")

	sessionKeyCmd.AddCommand(sessionKeyGrantCmd)
	sessionKeyCmd.AddCommand(sessionKeyListCmd)
	sessionKeyCmd.AddCommand(sessionKeyPruneCmd)
	rootCmd.AddCommand(sessionKeyCmd)
}
