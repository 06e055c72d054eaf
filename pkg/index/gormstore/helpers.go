package gormstore

import (
	"context"

	"gorm.io/gorm"
)

// ============================================================================
// Generic GORM Helpers
// ============================================================================

// getWhere retrieves a single record of type T matching all conditions and
// converts gorm.ErrRecordNotFound to notFoundErr.
//
// Example:
//
//	g, err := getWhere[models.AccessGrant](db, ctx, models.ErrRecordNotFound, "directory_id = ? AND user_id = ?", dir, user)
func getWhere[T any](db *gorm.DB, ctx context.Context, notFoundErr error, query string, args ...any) (*T, error) {
	var result T
	if err := db.WithContext(ctx).Where(query, args...).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// listWhere retrieves all records of type T matching the condition, ordered by order.
// Returns an empty slice (not nil) on success with no records.
func listWhere[T any](db *gorm.DB, ctx context.Context, order string, query string, args ...any) ([]*T, error) {
	results := []*T{}
	q := db.WithContext(ctx)
	if query != "" {
		q = q.Where(query, args...)
	}
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// pluck returns a single string column of T for the rows matching the condition.
func pluck[T any](db *gorm.DB, ctx context.Context, column, order string, query string, args ...any) ([]string, error) {
	var zero T
	values := []string{}
	q := db.WithContext(ctx).Model(&zero).Where(query, args...)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Pluck(column, &values).Error; err != nil {
		return nil, err
	}
	return values, nil
}
