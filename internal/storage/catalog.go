package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"storformat-pricing/internal/pricing"
)

// CATALOG SYNC UPSERTS
//
// The pricing hub owns the catalog; these writes only mirror its rows so the
// engine can price against a local copy. Tier sets are replaced wholesale
// per entity, the read-through cache entry is dropped afterwards.

func (s *PostgresStorage) ReplaceMaterial(ctx context.Context, tenantID string, m pricing.Material, inStock bool) error {
	const operation = "storage.ReplaceMaterial"

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		const upsert = `
            INSERT INTO materials (
                id, tenant_id, name, interpolation_enabled, markup_pct,
                min_price, max_width_mm, max_height_mm, allow_split, in_stock
            ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
            ON CONFLICT (id) DO UPDATE SET
                name = EXCLUDED.name,
                interpolation_enabled = EXCLUDED.interpolation_enabled,
                markup_pct = EXCLUDED.markup_pct,
                min_price = EXCLUDED.min_price,
                max_width_mm = EXCLUDED.max_width_mm,
                max_height_mm = EXCLUDED.max_height_mm,
                allow_split = EXCLUDED.allow_split,
                in_stock = EXCLUDED.in_stock
        `
		if _, err := tx.ExecContext(ctx, upsert,
			m.ID, tenantID, m.Name, m.InterpolationEnabled, m.MarkupPct,
			m.MinPrice, m.MaxWidthMM, m.MaxHeightMM, m.AllowSplit, inStock,
		); err != nil {
			return fmt.Errorf("upsert material: %w", err)
		}

		return replaceTiers(ctx, tx, "material_tiers", "material_id", m.ID, m.Tiers)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	s.invalidate(ctx, fmt.Sprintf("material:%s", m.ID))
	return nil
}

func (s *PostgresStorage) ReplaceFinish(ctx context.Context, tenantID string, f pricing.Finish) error {
	const operation = "storage.ReplaceFinish"

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		const upsert = `
            INSERT INTO finishes (
                id, tenant_id, name, pricing_mode, fixed_price_per_unit,
                interpolation_enabled, markup_pct
            ) VALUES ($1, $2, $3, $4, $5, $6, $7)
            ON CONFLICT (id) DO UPDATE SET
                name = EXCLUDED.name,
                pricing_mode = EXCLUDED.pricing_mode,
                fixed_price_per_unit = EXCLUDED.fixed_price_per_unit,
                interpolation_enabled = EXCLUDED.interpolation_enabled,
                markup_pct = EXCLUDED.markup_pct
        `
		if _, err := tx.ExecContext(ctx, upsert,
			f.ID, tenantID, f.Name, string(f.PricingMode), f.FixedPricePerUnit,
			f.InterpolationEnabled, f.MarkupPct,
		); err != nil {
			return fmt.Errorf("upsert finish: %w", err)
		}

		return replaceTiers(ctx, tx, "finish_tiers", "finish_id", f.ID, f.Tiers)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	s.invalidate(ctx, fmt.Sprintf("finish:%s", f.ID))
	return nil
}

func (s *PostgresStorage) ReplaceProduct(ctx context.Context, tenantID string, p pricing.Product) error {
	const operation = "storage.ReplaceProduct"

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		const upsert = `
            INSERT INTO products (
                id, tenant_id, name, pricing_type, initial_price,
                percentage_markup, interpolation_enabled, markup_pct, min_price
            ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            ON CONFLICT (id) DO UPDATE SET
                name = EXCLUDED.name,
                pricing_type = EXCLUDED.pricing_type,
                initial_price = EXCLUDED.initial_price,
                percentage_markup = EXCLUDED.percentage_markup,
                interpolation_enabled = EXCLUDED.interpolation_enabled,
                markup_pct = EXCLUDED.markup_pct,
                min_price = EXCLUDED.min_price
        `
		if _, err := tx.ExecContext(ctx, upsert,
			p.ID, tenantID, p.Name, string(p.PricingType), p.InitialPrice,
			p.PercentageMarkup, p.InterpolationEnabled, p.MarkupPct, p.MinPrice,
		); err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM product_fixed_prices WHERE product_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear fixed prices: %w", err)
		}
		for _, fp := range p.FixedPrices {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO product_fixed_prices (product_id, quantity, price) VALUES ($1, $2, $3)`,
				p.ID, fp.Quantity, fp.Price,
			); err != nil {
				return fmt.Errorf("insert fixed price: %w", err)
			}
		}

		return replaceTiers(ctx, tx, "product_tiers", "product_id", p.ID, p.Tiers)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	s.invalidate(ctx, fmt.Sprintf("product:%s", p.ID))
	return nil
}

func (s *PostgresStorage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func replaceTiers(ctx context.Context, tx *sqlx.Tx, table, fkColumn, id string, tiers []pricing.Tier) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, fkColumn), id,
	); err != nil {
		return fmt.Errorf("clear tiers in %s: %w", table, err)
	}

	insert := fmt.Sprintf(`
        INSERT INTO %s (%s, from_area, to_area, price_per_area, is_anchor, markup_pct)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, table, fkColumn)

	for _, t := range tiers {
		if _, err := tx.ExecContext(ctx, insert,
			id, t.FromArea, t.ToArea, t.PricePerArea, t.IsAnchor, t.MarkupPct,
		); err != nil {
			return fmt.Errorf("insert tier into %s: %w", table, err)
		}
	}
	return nil
}

func (s *PostgresStorage) invalidate(ctx context.Context, key string) {
	if err := s.redis.Del(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate cache entry", zap.String("key", key), zap.Error(err))
	}
}
