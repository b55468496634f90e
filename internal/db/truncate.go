package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Truncate empties every storefront table, children first.
func Truncate(ctx context.Context, db *gorm.DB) error {
	tables, err := tableNames(db)
	if err != nil {
		return err
	}

	tx := db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		quoted := make([]string, len(tables))
		for i, t := range tables {
			quoted[i] = pq.QuoteIdentifier(t)
		}
		return tx.Exec("TRUNCATE TABLE " + strings.Join(quoted, ", ") + " RESTART IDENTITY CASCADE").Error
	}

	return tx.Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %q", t)).Error; err != nil {
				return fmt.Errorf("truncate %s: %w", t, err)
			}
		}
		return nil
	})
}

func tableNames(db *gorm.DB) ([]string, error) {
	all := models.All()
	names := make([]string, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(all[i]); err != nil {
			return nil, fmt.Errorf("parse model: %w", err)
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}
