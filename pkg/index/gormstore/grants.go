package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/marmos91/dittobox/pkg/models"
)

// ============================================
// GRANT OPERATIONS
// ============================================

func (s *GORMStore) GetGrant(ctx context.Context, directoryID, userID string) (*models.AccessGrant, error) {
	return getWhere[models.AccessGrant](s.db, ctx, models.ErrRecordNotFound, "directory_id = ? AND user_id = ?", directoryID, userID)
}

func (s *GORMStore) ActivateGrant(ctx context.Context, directoryID, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var grant models.AccessGrant
		err := tx.Where("directory_id = ? AND user_id = ?", directoryID, userID).First(&grant).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.AccessGrant{
				DirectoryID: directoryID,
				UserID:      userID,
				State:       models.GrantActive,
				UpdatedAt:   time.Now(),
			}).Error
		case err != nil:
			return err
		case grant.State.IsActive():
			return models.ErrGrantAlreadyActive
		}
		return tx.Model(&grant).Updates(map[string]any{
			"state":      models.GrantActive,
			"updated_at": time.Now(),
		}).Error
	})
}

func (s *GORMStore) RevokeGrant(ctx context.Context, directoryID, userID string) error {
	result := s.db.WithContext(ctx).
		Model(&models.AccessGrant{}).
		Where("directory_id = ? AND user_id = ? AND state = ?", directoryID, userID, models.GrantActive).
		Updates(map[string]any{
			"state":      models.GrantRevoked,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrGrantNotActive
	}
	return nil
}

func (s *GORMStore) ListGrantees(ctx context.Context, directoryID string) ([]string, error) {
	return pluck[models.AccessGrant](s.db, ctx, "user_id", "user_id", "directory_id = ? AND state = ?", directoryID, models.GrantActive)
}

func (s *GORMStore) ListGrantedDirectories(ctx context.Context, userID string) ([]string, error) {
	return pluck[models.AccessGrant](s.db, ctx, "directory_id", "directory_id", "user_id = ? AND state = ?", userID, models.GrantActive)
}
