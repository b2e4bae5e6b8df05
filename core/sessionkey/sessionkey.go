// Package sessionkey issues and validates delegated signing keys. A
// session key is a fresh keypair whose address the wallet owner binds,
// together with contract/amount/time scopes, into one signed digest.
// Changing any scope field invalidates the owner signature, so the
// permissions are not separable.
package sessionkey

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/mosaiclabs-eth/walletkit/core/chainio/signer"
)

// Permissions scopes what a session key may do and for how long.
type Permissions struct {
	// Contracts the delegate may call. Order matters for the digest,
	// so grants normalize it at creation time.
	Contracts []common.Address `json:"contracts"`
	// MaxAmount is a decimal string cap on value moved per call.
	MaxAmount string `json:"max_amount"`
	// ExpiresAt is unix seconds. Expiry is checked at every
	// validation, not only at grant time.
	ExpiresAt int64 `json:"expires_at"`
}

// SessionKey is one delegated authorization record. Immutable after
// creation; it carries no revocation state.
type SessionKey struct {
	// Address of the delegate keypair generated at grant time.
	Address     common.Address `json:"address"`
	Permissions Permissions    `json:"permissions"`
	// Signature is the owner's EIP-191 signature over the permissions
	// digest.
	Signature []byte `json:"signature"`
}

// Create generates a fresh secp256k1 keypair for the delegate, binds
// its address into the permissions digest, and has the owner sign it.
// The returned private key is handed to the delegate out of band and
// is never persisted here.
func Create(owner signer.Signer, perms Permissions) (*SessionKey, *ecdsa.PrivateKey, error) {
	if _, err := decimal.NewFromString(perms.MaxAmount); err != nil {
		return nil, nil, fmt.Errorf("invalid max amount %q: %w", perms.MaxAmount, err)
	}

	delegateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generate delegate key: %w", err)
	}
	delegate := crypto.PubkeyToAddress(delegateKey.PublicKey)

	sig, err := owner.SignMessage(permissionsDigest(delegate, perms))
	if err != nil {
		var serr *signer.SigningError
		if !errors.As(err, &serr) {
			err = &signer.SigningError{Err: err}
		}
		return nil, nil, err
	}

	return &SessionKey{
		Address:     delegate,
		Permissions: perms,
		Signature:   sig,
	}, delegateKey, nil
}

// Validate reports whether key is a live grant from ownerAddress. It
// checks expiry against the wall clock, recomputes the permissions
// digest, and recovers the signer address from the grant signature.
// Pure verification, no I/O; cheap enough to run on every delegated
// call.
func Validate(key *SessionKey, ownerAddress common.Address) bool {
	if key == nil {
		return false
	}
	if time.Now().Unix() > key.Permissions.ExpiresAt {
		return false
	}

	recovered, err := signer.RecoverAddress(permissionsDigest(key.Address, key.Permissions), key.Signature)
	if err != nil {
		return false
	}

	return strings.EqualFold(recovered.Hex(), ownerAddress.Hex())
}

// permissionsDigest serializes (delegate, contracts, maxAmount,
// expiresAt) into the byte string the owner signs. Deterministic and
// unambiguous: fixed-width address and timestamp fields, contract
// count prefix.
func permissionsDigest(delegate common.Address, perms Permissions) []byte {
	buf := make([]byte, 0, 64+20*len(perms.Contracts))
	buf = append(buf, delegate.Bytes()...)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(perms.Contracts)))
	for _, c := range perms.Contracts {
		buf = append(buf, c.Bytes()...)
	}

	amount := []byte(perms.MaxAmount)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(amount)))
	buf = append(buf, amount...)

	buf = binary.BigEndian.AppendUint64(buf, uint64(perms.ExpiresAt))

	return crypto.Keccak256(buf)
}
