package badger

import (
	"context"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittobox/pkg/models"
)

// ============================================
// OWNERSHIP OPERATIONS
// ============================================

func (s *BadgerStore) CreateOwnership(ctx context.Context, directoryID, userID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		found, err := exists(txn, keyOwnership(directoryID))
		if err != nil {
			return err
		}
		if found {
			return models.ErrDuplicateOwner
		}
		row := &models.DirectoryOwnership{
			DirectoryID: directoryID,
			UserID:      userID,
			CreatedAt:   time.Now(),
		}
		if err := setJSON(txn, keyOwnership(directoryID), row); err != nil {
			return err
		}
		return txn.Set(keyOwnedByUser(userID, directoryID), nil)
	})
}

func (s *BadgerStore) GetOwnership(ctx context.Context, directoryID string) (*models.DirectoryOwnership, error) {
	var row models.DirectoryOwnership
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyOwnership(directoryID), &row, models.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *BadgerStore) ListOwnedDirectories(ctx context.Context, userID string) ([]string, error) {
	dirs := []string{}
	prefix := prefixOwnedBy(userID)
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scan(txn, prefix, false, func(key, _ []byte) error {
			dirs = append(dirs, suffixAfter(key, prefix))
			return nil
		})
	})
	return dirs, err
}

func (s *BadgerStore) SearchOwnerships(ctx context.Context, substring string) ([]*models.DirectoryOwnership, error) {
	rows := []*models.DirectoryOwnership{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scan(txn, []byte(prefixOwnership), true, func(_, val []byte) error {
			var row models.DirectoryOwnership
			if err := decode(val, &row); err != nil {
				return err
			}
			if strings.Contains(row.UserID, substring) {
				rows = append(rows, &row)
			}
			return nil
		})
	})
	return rows, err
}

// ============================================
// ATTRIBUTE OPERATIONS
// ============================================

func (s *BadgerStore) PutAttribute(ctx context.Context, directoryID, key, value string) (bool, error) {
	created := false
	err := s.update(ctx, func(txn *badger.Txn) error {
		found, err := exists(txn, keyAttribute(directoryID, key))
		if err != nil {
			return err
		}
		created = !found
		return setJSON(txn, keyAttribute(directoryID, key), &models.DirectoryAttribute{
			DirectoryID: directoryID,
			Key:         key,
			Value:       value,
			UpdatedAt:   time.Now(),
		})
	})
	return created, err
}

func (s *BadgerStore) GetAttribute(ctx context.Context, directoryID, key string) (*models.DirectoryAttribute, error) {
	var row models.DirectoryAttribute
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyAttribute(directoryID, key), &row, models.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *BadgerStore) GetAttributes(ctx context.Context, directoryIDs []string, key string) ([]*models.DirectoryAttribute, error) {
	rows := []*models.DirectoryAttribute{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		for _, dir := range directoryIDs {
			var row models.DirectoryAttribute
			err := getJSON(txn, keyAttribute(dir, key), &row, models.ErrRecordNotFound)
			if err == models.ErrRecordNotFound {
				continue
			}
			if err != nil {
				return err
			}
			rows = append(rows, &row)
		}
		return nil
	})
	return rows, err
}

func (s *BadgerStore) SearchAttributes(ctx context.Context, key, substring string) ([]*models.DirectoryAttribute, error) {
	rows := []*models.DirectoryAttribute{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scan(txn, []byte(prefixAttribute), true, func(_, val []byte) error {
			var row models.DirectoryAttribute
			if err := decode(val, &row); err != nil {
				return err
			}
			if row.Key == key && strings.Contains(row.Value, substring) {
				rows = append(rows, &row)
			}
			return nil
		})
	})
	return rows, err
}

// ============================================
// CASCADE
// ============================================

func (s *BadgerStore) DeleteDirectory(ctx context.Context, directoryID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var owner models.DirectoryOwnership
		err := getJSON(txn, keyOwnership(directoryID), &owner, models.ErrRecordNotFound)
		switch {
		case err == nil:
			if err := txn.Delete(keyOwnedByUser(owner.UserID, directoryID)); err != nil {
				return err
			}
			if err := txn.Delete(keyOwnership(directoryID)); err != nil {
				return err
			}
		case err != models.ErrRecordNotFound:
			return err
		}

		var grantees []string
		prefix := prefixGrantsOf(directoryID)
		if err := scan(txn, prefix, false, func(key, _ []byte) error {
			grantees = append(grantees, suffixAfter(key, prefix))
			return nil
		}); err != nil {
			return err
		}
		for _, user := range grantees {
			if err := txn.Delete(keyGrantByUser(user, directoryID)); err != nil {
				return err
			}
		}
		if err := deletePrefix(txn, prefix); err != nil {
			return err
		}

		return deletePrefix(txn, prefixAttributesOf(directoryID))
	})
}
