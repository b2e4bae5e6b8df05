package schema

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Session key grants are stored under sk:<owner>:<id> where owner is
// the lowercase hex wallet-owner address and id is a ULID assigned at
// grant time. ULIDs sort lexicographically by creation time, so a
// prefix scan returns grants oldest first.

// SessionKeyStorageKey constructs the storage key for one grant
func SessionKeyStorageKey(owner common.Address, id string) []byte {
	return []byte(fmt.Sprintf("sk:%s:%s", strings.ToLower(owner.Hex()), id))
}

// SessionKeyByOwnerPrefix returns the storage prefix for all grants
// issued by the given owner
func SessionKeyByOwnerPrefix(owner common.Address) []byte {
	return []byte(fmt.Sprintf("sk:%s:", strings.ToLower(owner.Hex())))
}
