// Package storage persists order records and publishes book tops for
// out-of-process consumers. Both backends are optional; the simulator runs
// entirely in memory without them.
package storage

import (
	"context"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"main/internal/model"
	"main/pkg/conn"
)

// OrderRepo persists serialized orders to PostgreSQL.
type OrderRepo struct {
	db *gorm.DB
}

// NewOrderRepo migrates the orders table and returns the repository.
func NewOrderRepo(client *conn.Postgres) (*OrderRepo, error) {
	db := client.DB()
	if err := db.AutoMigrate(&model.OrderRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate orders table")
	}
	return &OrderRepo{db: db}, nil
}

// SaveAll replaces the persisted set with the given records: current rows
// are upserted by id, and rows the ledger no longer holds (consumed stops,
// orders merged into positions, pruned cancels) are deleted, so a restart
// restores exactly the last listed state.
func (r *OrderRepo) SaveAll(ctx context.Context, records []model.OrderRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) == 0 {
			return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
				Delete(&model.OrderRecord{}).Error
		}
		ids := make([]string, 0, len(records))
		for _, record := range records {
			ids = append(ids, record.ID)
		}
		if err := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(&records).Error; err != nil {
			return err
		}
		return tx.Where("id NOT IN ?", ids).
			Delete(&model.OrderRecord{}).Error
	})
	if err != nil {
		return errors.Wrap(err, "save order records")
	}
	return nil
}

// LoadAll reads every persisted record ordered by creation time.
func (r *OrderRepo) LoadAll(ctx context.Context) ([]model.OrderRecord, error) {
	var records []model.OrderRecord
	err := r.db.WithContext(ctx).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "load order records")
	}
	return records, nil
}
