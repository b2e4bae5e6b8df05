// Package signer implements EIP-191 personal-message signing and the
// matching offline recovery used to verify session-key grants.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const eip191Prefix = "\x19Ethereum Signed Message:\n"

// SigningError reports that a signer was unavailable or declined to
// sign. Fatal to the operation that needed the signature.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing error: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Signer is the external signing capability the subsystem assumes. The
// owner's key never has to live in this process; any implementation
// that can produce EIP-191 signatures works.
type Signer interface {
	Address() common.Address
	SignMessage(data []byte) ([]byte, error)
}

// LocalSigner signs with an in-memory ECDSA private key.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// FromPrivateKeyHex builds a LocalSigner from a 0x-prefixed or bare hex
// private key.
func FromPrivateKeyHex(privateKeyHex string) (*LocalSigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, &SigningError{Err: fmt.Errorf("invalid private key: %w", err)}
	}
	return &LocalSigner{key: key}, nil
}

func (s *LocalSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *LocalSigner) SignMessage(data []byte) ([]byte, error) {
	sig, err := SignMessage(s.key, data)
	if err != nil {
		return nil, &SigningError{Err: err}
	}
	return sig, nil
}

// SignMessage produces an EIP-191 signature over data.
func SignMessage(key *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	sig, err := crypto.Sign(hashMessage(data).Bytes(), key)
	if err != nil {
		return nil, err
	}
	// https://stackoverflow.com/questions/69762108/implementing-ethereum-personal-sign-eip-191-from-go-ethereum-gives-different-s
	sig[64] += 27
	return sig, nil
}

// RecoverAddress returns the address that produced an EIP-191 signature
// over data. The inverse of SignMessage.
func RecoverAddress(data []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	// crypto.SigToPub wants the recovery id in the 0/1 form.
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pub, err := crypto.SigToPub(hashMessage(data).Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func hashMessage(data []byte) common.Hash {
	prefix := []byte(eip191Prefix + fmt.Sprint(len(data)))
	return crypto.Keccak256Hash(append(prefix, data...))
}
