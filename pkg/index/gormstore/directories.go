package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marmos91/dittobox/pkg/models"
)

// ============================================
// OWNERSHIP OPERATIONS
// ============================================

func (s *GORMStore) CreateOwnership(ctx context.Context, directoryID, userID string) error {
	row := &models.DirectoryOwnership{
		DirectoryID: directoryID,
		UserID:      userID,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateOwner
		}
		return err
	}
	return nil
}

func (s *GORMStore) GetOwnership(ctx context.Context, directoryID string) (*models.DirectoryOwnership, error) {
	return getWhere[models.DirectoryOwnership](s.db, ctx, models.ErrRecordNotFound, "directory_id = ?", directoryID)
}

func (s *GORMStore) ListOwnedDirectories(ctx context.Context, userID string) ([]string, error) {
	return pluck[models.DirectoryOwnership](s.db, ctx, "directory_id", "created_at", "user_id = ?", userID)
}

func (s *GORMStore) SearchOwnerships(ctx context.Context, substring string) ([]*models.DirectoryOwnership, error) {
	return listWhere[models.DirectoryOwnership](s.db, ctx, "created_at", `user_id LIKE ? ESCAPE '\'`, likePattern(substring))
}

// ============================================
// ATTRIBUTE OPERATIONS
// ============================================

func (s *GORMStore) PutAttribute(ctx context.Context, directoryID, key, value string) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.DirectoryAttribute{}).
			Where("directory_id = ? AND attr_key = ?", directoryID, key).
			Count(&existing).Error; err != nil {
			return err
		}
		created = existing == 0

		row := &models.DirectoryAttribute{
			DirectoryID: directoryID,
			Key:         key,
			Value:       value,
			UpdatedAt:   time.Now(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "directory_id"}, {Name: "attr_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(row).Error
	})
	return created, err
}

func (s *GORMStore) GetAttribute(ctx context.Context, directoryID, key string) (*models.DirectoryAttribute, error) {
	return getWhere[models.DirectoryAttribute](s.db, ctx, models.ErrRecordNotFound, "directory_id = ? AND attr_key = ?", directoryID, key)
}

func (s *GORMStore) GetAttributes(ctx context.Context, directoryIDs []string, key string) ([]*models.DirectoryAttribute, error) {
	if len(directoryIDs) == 0 {
		return []*models.DirectoryAttribute{}, nil
	}
	return listWhere[models.DirectoryAttribute](s.db, ctx, "value", "directory_id IN ? AND attr_key = ?", directoryIDs, key)
}

func (s *GORMStore) SearchAttributes(ctx context.Context, key, substring string) ([]*models.DirectoryAttribute, error) {
	return listWhere[models.DirectoryAttribute](s.db, ctx, "value", `attr_key = ? AND value LIKE ? ESCAPE '\'`, key, likePattern(substring))
}

// ============================================
// CASCADE
// ============================================

func (s *GORMStore) DeleteDirectory(ctx context.Context, directoryID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("directory_id = ?", directoryID).Delete(&models.DirectoryAttribute{}).Error; err != nil {
			return err
		}
		if err := tx.Where("directory_id = ?", directoryID).Delete(&models.AccessGrant{}).Error; err != nil {
			return err
		}
		return tx.Where("directory_id = ?", directoryID).Delete(&models.DirectoryOwnership{}).Error
	})
}
