package sessionkey

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"

	"github.com/mosaiclabs-eth/walletkit/storage"
	"github.com/mosaiclabs-eth/walletkit/storage/schema"
)

// Grant is a stored session key plus the bookkeeping the issuer needs
// to list and prune it later.
type Grant struct {
	ID        string      `json:"id"`
	Owner     string      `json:"owner"`
	Key       *SessionKey `json:"key"`
	CreatedAt int64       `json:"created_at"`
}

// Store persists granted session keys per owner. Persistence is the
// issuer's bookkeeping only: Validate never consults the store, so a
// lost database cannot revive or revoke a grant.
type Store struct {
	db storage.Storage
}

func NewStore(db storage.Storage) *Store {
	return &Store{db: db}
}

// Save records a grant and returns its assigned id.
func (s *Store) Save(owner common.Address, key *SessionKey) (string, error) {
	id := ulid.Make().String()

	grant := &Grant{
		ID:        id,
		Owner:     owner.Hex(),
		Key:       key,
		CreatedAt: time.Now().Unix(),
	}

	data, err := json.Marshal(grant)
	if err != nil {
		return "", fmt.Errorf("marshal session key grant: %w", err)
	}

	if err := s.db.Set(schema.SessionKeyStorageKey(owner, id), data); err != nil {
		return "", fmt.Errorf("store session key grant: %w", err)
	}

	return id, nil
}

// Get loads one grant by owner and id.
func (s *Store) Get(owner common.Address, id string) (*Grant, error) {
	data, err := s.db.GetKey(schema.SessionKeyStorageKey(owner, id))
	if err != nil {
		return nil, fmt.Errorf("load session key grant %s: %w", id, err)
	}

	grant := &Grant{}
	if err := json.Unmarshal(data, grant); err != nil {
		return nil, fmt.Errorf("decode session key grant %s: %w", id, err)
	}

	return grant, nil
}

// ListByOwner returns every grant the owner has issued, oldest first.
func (s *Store) ListByOwner(owner common.Address) ([]*Grant, error) {
	items, err := s.db.GetByPrefix(schema.SessionKeyByOwnerPrefix(owner))
	if err != nil {
		return nil, fmt.Errorf("list session key grants: %w", err)
	}

	grants := make([]*Grant, 0, len(items))
	for _, item := range items {
		grant := &Grant{}
		if err := json.Unmarshal(item.Value, grant); err != nil {
			return nil, fmt.Errorf("decode session key grant %s: %w", item.Key, err)
		}
		grants = append(grants, grant)
	}

	return grants, nil
}

// CountByOwner returns how many grants the owner has on record.
func (s *Store) CountByOwner(owner common.Address) (int64, error) {
	return s.db.CountKeysByPrefix(schema.SessionKeyByOwnerPrefix(owner))
}

// Delete removes one grant record. The grant itself stays valid until
// it expires; removal is bookkeeping, not revocation.
func (s *Store) Delete(owner common.Address, id string) error {
	return s.db.Delete(schema.SessionKeyStorageKey(owner, id))
}

// PruneExpired deletes every grant of the owner whose key has passed
// its expiry and returns how many were removed.
func (s *Store) PruneExpired(owner common.Address) (int, error) {
	grants, err := s.ListByOwner(owner)
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	pruned := 0
	for _, grant := range grants {
		if grant.Key == nil || now > grant.Key.Permissions.ExpiresAt {
			if err := s.Delete(owner, grant.ID); err != nil {
				return pruned, err
			}
			pruned++
		}
	}

	return pruned, nil
}
