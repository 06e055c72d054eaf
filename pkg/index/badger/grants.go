package badger

import (
	"context"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittobox/pkg/models"
)

// ============================================
// GRANT OPERATIONS
// ============================================

func (s *BadgerStore) GetGrant(ctx context.Context, directoryID, userID string) (*models.AccessGrant, error) {
	var grant models.AccessGrant
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyGrant(directoryID, userID), &grant, models.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *BadgerStore) ActivateGrant(ctx context.Context, directoryID, userID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var grant models.AccessGrant
		err := getJSON(txn, keyGrant(directoryID, userID), &grant, models.ErrRecordNotFound)
		switch {
		case err == models.ErrRecordNotFound:
		case err != nil:
			return err
		case grant.State.IsActive():
			return models.ErrGrantAlreadyActive
		}
		return s.putGrant(txn, directoryID, userID, models.GrantActive)
	})
}

func (s *BadgerStore) RevokeGrant(ctx context.Context, directoryID, userID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var grant models.AccessGrant
		err := getJSON(txn, keyGrant(directoryID, userID), &grant, models.ErrGrantNotActive)
		if err != nil {
			return err
		}
		if !grant.State.IsActive() {
			return models.ErrGrantNotActive
		}
		return s.putGrant(txn, directoryID, userID, models.GrantRevoked)
	})
}

// putGrant writes both the grant row and its per-user reverse entry.
func (s *BadgerStore) putGrant(txn *badger.Txn, directoryID, userID string, state models.GrantState) error {
	if err := setJSON(txn, keyGrant(directoryID, userID), &models.AccessGrant{
		DirectoryID: directoryID,
		UserID:      userID,
		State:       state,
		UpdatedAt:   time.Now(),
	}); err != nil {
		return err
	}
	return txn.Set(keyGrantByUser(userID, directoryID), []byte(state))
}

func (s *BadgerStore) ListGrantees(ctx context.Context, directoryID string) ([]string, error) {
	users := []string{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scan(txn, prefixGrantsOf(directoryID), true, func(_, val []byte) error {
			var grant models.AccessGrant
			if err := decode(val, &grant); err != nil {
				return err
			}
			if grant.State.IsActive() {
				users = append(users, grant.UserID)
			}
			return nil
		})
	})
	return users, err
}

func (s *BadgerStore) ListGrantedDirectories(ctx context.Context, userID string) ([]string, error) {
	dirs := []string{}
	prefix := prefixGrantsFor(userID)
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scan(txn, prefix, true, func(key, val []byte) error {
			if models.GrantState(val).IsActive() {
				dirs = append(dirs, suffixAfter(key, prefix))
			}
			return nil
		})
	})
	return dirs, err
}
