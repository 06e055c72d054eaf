package badger

import (
	"context"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/marmos91/dittobox/pkg/models"
)

// ============================================
// USER OPERATIONS
// ============================================

// userRecord is the stored form of a user. The password hash is hidden
// from the user's JSON form, so it is carried alongside.
type userRecord struct {
	models.User
	PasswordHash string `json:"password_hash,omitempty"`
}

func newUserRecord(u *models.User) userRecord {
	return userRecord{User: *u, PasswordHash: u.PasswordHash}
}

func (r userRecord) user() *models.User {
	u := r.User
	u.PasswordHash = r.PasswordHash
	return &u
}

func (s *BadgerStore) CreateUser(ctx context.Context, user *models.User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = time.Now()

	err := s.update(ctx, func(txn *badger.Txn) error {
		found, err := exists(txn, keyUser(user.Identity))
		if err != nil {
			return err
		}
		if found {
			return models.ErrDuplicateUser
		}
		return setJSON(txn, keyUser(user.Identity), newUserRecord(user))
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *BadgerStore) GetUser(ctx context.Context, identity string) (*models.User, error) {
	var rec userRecord
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyUser(identity), &rec, models.ErrUserNotFound)
	})
	if err != nil {
		return nil, err
	}
	return rec.user(), nil
}

func (s *BadgerStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scan(txn, []byte(prefixUser), true, func(_, val []byte) error {
			var rec userRecord
			if err := decode(val, &rec); err != nil {
				return err
			}
			users = append(users, rec.user())
			return nil
		})
	})
	return users, err
}

func (s *BadgerStore) SetPassword(ctx context.Context, identity, passwordHash string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var rec userRecord
		if err := getJSON(txn, keyUser(identity), &rec, models.ErrUserNotFound); err != nil {
			return err
		}
		rec.PasswordHash = passwordHash
		return setJSON(txn, keyUser(identity), rec)
	})
}
