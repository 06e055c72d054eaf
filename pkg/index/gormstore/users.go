package gormstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittobox/pkg/models"
)

// ============================================
// USER OPERATIONS
// ============================================

func (s *GORMStore) CreateUser(ctx context.Context, user *models.User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = time.Now()

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", models.ErrDuplicateUser
		}
		return "", err
	}
	return user.ID, nil
}

func (s *GORMStore) GetUser(ctx context.Context, identity string) (*models.User, error) {
	return getWhere[models.User](s.db, ctx, models.ErrUserNotFound, "identity = ?", identity)
}

func (s *GORMStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return listWhere[models.User](s.db, ctx, "identity", "")
}

func (s *GORMStore) SetPassword(ctx context.Context, identity, passwordHash string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("identity = ?", identity).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
