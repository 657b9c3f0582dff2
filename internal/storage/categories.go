package storage

import (
	"context"
	"fmt"
	"strings"

	"expensetracker/internal/core"
)

// EnsureCategories creates any missing names. Running it twice is a no-op.
func (r *Repository) EnsureCategories(ctx context.Context, names []string) error {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, err := r.GetOrCreateCategory(ctx, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}

// GetOrCreateCategory returns the category with name, creating it if needed.
func (r *Repository) GetOrCreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyCategory
	}

	c := core.Category{Name: name}
	err := r.withRetry(ctx, op{name: "get or create category", entity: "category", key: name}, func(ctx context.Context) error {
		if _, err := r.db.ExecContext(ctx,
			r.rebind(`INSERT INTO categories (name) VALUES (?) ON CONFLICT (name) DO NOTHING`), name); err != nil {
			return err
		}
		return r.db.QueryRowContext(ctx, r.rebind(`SELECT id FROM categories WHERE name = ?`), name).Scan(&c.ID)
	})
	return c, err
}

// GetCategoryByName looks a category up by its exact name.
func (r *Repository) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name)}
	err := r.query(ctx, op{name: "get category", entity: "category", key: c.Name}, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, r.rebind(`SELECT id FROM categories WHERE name = ?`), c.Name).Scan(&c.ID)
	})
	return c, err
}

// ListCategories returns all categories in seed order.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	err := r.query(ctx, op{name: "list categories", entity: "category"}, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var c core.Category
			if err := rows.Scan(&c.ID, &c.Name); err != nil {
				return fmt.Errorf("scan category: %w", err)
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}
