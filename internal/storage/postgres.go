package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"storformat-pricing/internal/pricing"
	"storformat-pricing/pkg/redis"
)

// ErrNotFound reports a missing catalog or quote row.
var ErrNotFound = errors.New("not found")

type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type PostgresStorage struct {
	db     *sqlx.DB
	redis  *redis.Client
	logger *zap.Logger
}

// MaterialSummary is the catalog listing row shown by the storefront.
type MaterialSummary struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	MaxWidthMM  float64 `db:"max_width_mm" json:"max_width_mm"`
	MaxHeightMM float64 `db:"max_height_mm" json:"max_height_mm"`
	AllowSplit  bool    `db:"allow_split" json:"allow_split"`
}

// Quote is one persisted price computation.
type Quote struct {
	ID           int64     `db:"id"`
	TenantID     string    `db:"tenant_id"`
	MaterialID   string    `db:"material_id"`
	MaterialName string    `db:"material_name"`
	FinishID     *string   `db:"finish_id"`
	ProductID    *string   `db:"product_id"`
	WidthMM      float64   `db:"width_mm"`
	HeightMM     float64   `db:"height_mm"`
	Quantity     int       `db:"quantity"`
	AreaM2       float64   `db:"area_m2"`
	TotalAreaM2  float64   `db:"total_area_m2"`
	MaterialCost float64   `db:"material_cost"`
	FinishCost   float64   `db:"finish_cost"`
	ProductCost  float64   `db:"product_cost"`
	TotalPrice   float64   `db:"total_price"`
	IsSplit      bool      `db:"is_split"`
	TotalPieces  int       `db:"total_pieces"`
	CreatedAt    time.Time `db:"created_at"`
}

type tierRow struct {
	FromArea     float64  `db:"from_area"`
	ToArea       *float64 `db:"to_area"`
	PricePerArea float64  `db:"price_per_area"`
	IsAnchor     bool     `db:"is_anchor"`
	MarkupPct    float64  `db:"markup_pct"`
}

func (r tierRow) toTier() pricing.Tier {
	return pricing.Tier{
		FromArea:     r.FromArea,
		ToArea:       r.ToArea,
		PricePerArea: r.PricePerArea,
		IsAnchor:     r.IsAnchor,
		MarkupPct:    r.MarkupPct,
	}
}

func NewPostgresStorage(ctx context.Context, cfg Config, redisClient *redis.Client, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// DB exposes the underlying handle for migrations.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetMaterial loads a material with its tier set, Redis first.
func (s *PostgresStorage) GetMaterial(ctx context.Context, materialID string) (*pricing.Material, error) {
	cacheKey := fmt.Sprintf("material:%s", materialID)

	var cached pricing.Material
	if err := s.redis.GetJSON(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	const query = `
        SELECT id::text, name, interpolation_enabled,
               COALESCE(markup_pct, 0) AS markup_pct,
               COALESCE(min_price, 0) AS min_price,
               COALESCE(max_width_mm, 0) AS max_width_mm,
               COALESCE(max_height_mm, 0) AS max_height_mm,
               allow_split
        FROM materials
        WHERE id = $1
    `

	var row struct {
		ID                   string  `db:"id"`
		Name                 string  `db:"name"`
		InterpolationEnabled bool    `db:"interpolation_enabled"`
		MarkupPct            float64 `db:"markup_pct"`
		MinPrice             float64 `db:"min_price"`
		MaxWidthMM           float64 `db:"max_width_mm"`
		MaxHeightMM          float64 `db:"max_height_mm"`
		AllowSplit           bool    `db:"allow_split"`
	}
	if err := s.db.GetContext(ctx, &row, query, materialID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("material %s: %w", materialID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get material: %w", err)
	}

	tiers, err := s.loadTiers(ctx, "material_tiers", "material_id", materialID)
	if err != nil {
		return nil, err
	}

	material := pricing.Material{
		ID:                   row.ID,
		Name:                 row.Name,
		Tiers:                tiers,
		InterpolationEnabled: row.InterpolationEnabled,
		MarkupPct:            row.MarkupPct,
		MinPrice:             row.MinPrice,
		MaxWidthMM:           row.MaxWidthMM,
		MaxHeightMM:          row.MaxHeightMM,
		AllowSplit:           row.AllowSplit,
	}

	if err := s.redis.SetJSON(ctx, cacheKey, material); err != nil {
		s.logger.Warn("Failed to cache material", zap.String("material_id", materialID), zap.Error(err))
	}

	return &material, nil
}

// GetFinish loads a finish with its tier set, Redis first.
func (s *PostgresStorage) GetFinish(ctx context.Context, finishID string) (*pricing.Finish, error) {
	cacheKey := fmt.Sprintf("finish:%s", finishID)

	var cached pricing.Finish
	if err := s.redis.GetJSON(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	const query = `
        SELECT id::text, name, pricing_mode,
               COALESCE(fixed_price_per_unit, 0) AS fixed_price_per_unit,
               interpolation_enabled,
               COALESCE(markup_pct, 0) AS markup_pct
        FROM finishes
        WHERE id = $1
    `

	var row struct {
		ID                   string  `db:"id"`
		Name                 string  `db:"name"`
		PricingMode          string  `db:"pricing_mode"`
		FixedPricePerUnit    float64 `db:"fixed_price_per_unit"`
		InterpolationEnabled bool    `db:"interpolation_enabled"`
		MarkupPct            float64 `db:"markup_pct"`
	}
	if err := s.db.GetContext(ctx, &row, query, finishID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("finish %s: %w", finishID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get finish: %w", err)
	}

	tiers, err := s.loadTiers(ctx, "finish_tiers", "finish_id", finishID)
	if err != nil {
		return nil, err
	}

	finish := pricing.Finish{
		ID:                   row.ID,
		Name:                 row.Name,
		PricingMode:          pricing.FinishPricingMode(row.PricingMode),
		FixedPricePerUnit:    row.FixedPricePerUnit,
		Tiers:                tiers,
		InterpolationEnabled: row.InterpolationEnabled,
		MarkupPct:            row.MarkupPct,
	}

	if err := s.redis.SetJSON(ctx, cacheKey, finish); err != nil {
		s.logger.Warn("Failed to cache finish", zap.String("finish_id", finishID), zap.Error(err))
	}

	return &finish, nil
}

// GetProduct loads a product with its per-quantity overrides and tier set.
func (s *PostgresStorage) GetProduct(ctx context.Context, productID string) (*pricing.Product, error) {
	cacheKey := fmt.Sprintf("product:%s", productID)

	var cached pricing.Product
	if err := s.redis.GetJSON(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	const query = `
        SELECT id::text, name, pricing_type,
               COALESCE(initial_price, 0) AS initial_price,
               COALESCE(percentage_markup, 0) AS percentage_markup,
               interpolation_enabled,
               COALESCE(markup_pct, 0) AS markup_pct,
               COALESCE(min_price, 0) AS min_price
        FROM products
        WHERE id = $1
    `

	var row struct {
		ID                   string  `db:"id"`
		Name                 string  `db:"name"`
		PricingType          string  `db:"pricing_type"`
		InitialPrice         float64 `db:"initial_price"`
		PercentageMarkup     float64 `db:"percentage_markup"`
		InterpolationEnabled bool    `db:"interpolation_enabled"`
		MarkupPct            float64 `db:"markup_pct"`
		MinPrice             float64 `db:"min_price"`
	}
	if err := s.db.GetContext(ctx, &row, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	var fixedRows []struct {
		Quantity int     `db:"quantity"`
		Price    float64 `db:"price"`
	}
	const fixedQuery = `SELECT quantity, price FROM product_fixed_prices WHERE product_id = $1 ORDER BY quantity`
	if err := s.db.SelectContext(ctx, &fixedRows, fixedQuery, productID); err != nil {
		return nil, fmt.Errorf("failed to get product fixed prices: %w", err)
	}

	fixedPrices := make([]pricing.FixedPrice, 0, len(fixedRows))
	for _, fr := range fixedRows {
		fixedPrices = append(fixedPrices, pricing.FixedPrice{Quantity: fr.Quantity, Price: fr.Price})
	}

	tiers, err := s.loadTiers(ctx, "product_tiers", "product_id", productID)
	if err != nil {
		return nil, err
	}

	product := pricing.Product{
		ID:                   row.ID,
		Name:                 row.Name,
		PricingType:          pricing.ProductPricingType(row.PricingType),
		InitialPrice:         row.InitialPrice,
		PercentageMarkup:     row.PercentageMarkup,
		FixedPrices:          fixedPrices,
		Tiers:                tiers,
		InterpolationEnabled: row.InterpolationEnabled,
		MarkupPct:            row.MarkupPct,
		MinPrice:             row.MinPrice,
	}

	if err := s.redis.SetJSON(ctx, cacheKey, product); err != nil {
		s.logger.Warn("Failed to cache product", zap.String("product_id", productID), zap.Error(err))
	}

	return &product, nil
}

// GetQuoteConfig loads the tenant-level pricing knobs.
func (s *PostgresStorage) GetQuoteConfig(ctx context.Context, tenantID string) (pricing.QuoteConfig, error) {
	const query = `
        SELECT COALESCE(rounding_step, 1) AS rounding_step,
               COALESCE(global_markup_pct, 0) AS global_markup_pct,
               quantities
        FROM pricing_config
        WHERE tenant_id = $1
    `

	var row struct {
		RoundingStep    float64       `db:"rounding_step"`
		GlobalMarkupPct float64       `db:"global_markup_pct"`
		Quantities      pq.Int64Array `db:"quantities"`
	}
	err := s.db.GetContext(ctx, &row, query, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		// A tenant without explicit config prices with neutral defaults.
		return pricing.QuoteConfig{RoundingStep: 1}, nil
	}
	if err != nil {
		return pricing.QuoteConfig{}, fmt.Errorf("failed to get quote config: %w", err)
	}

	quantities := make([]int, 0, len(row.Quantities))
	for _, q := range row.Quantities {
		quantities = append(quantities, int(q))
	}

	return pricing.QuoteConfig{
		RoundingStep:    row.RoundingStep,
		GlobalMarkupPct: row.GlobalMarkupPct,
		Quantities:      quantities,
	}, nil
}

// ListMaterials returns the orderable materials of one tenant.
func (s *PostgresStorage) ListMaterials(ctx context.Context, tenantID string) ([]MaterialSummary, error) {
	const query = `
        SELECT id::text, name,
               COALESCE(max_width_mm, 0) AS max_width_mm,
               COALESCE(max_height_mm, 0) AS max_height_mm,
               allow_split
        FROM materials
        WHERE tenant_id = $1 AND in_stock = TRUE
        ORDER BY name
    `

	var materials []MaterialSummary
	if err := s.db.SelectContext(ctx, &materials, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}

	return materials, nil
}

func (s *PostgresStorage) loadTiers(ctx context.Context, table, fkColumn, id string) ([]pricing.Tier, error) {
	query := fmt.Sprintf(`
        SELECT from_area, to_area, price_per_area, is_anchor,
               COALESCE(markup_pct, 0) AS markup_pct
        FROM %s
        WHERE %s = $1
        ORDER BY from_area
    `, table, fkColumn)

	var rows []tierRow
	if err := s.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, fmt.Errorf("failed to load tiers from %s: %w", table, err)
	}

	tiers := make([]pricing.Tier, 0, len(rows))
	for _, r := range rows {
		tiers = append(tiers, r.toTier())
	}
	return tiers, nil
}

// SaveQuote persists one computed quote and returns its ID.
func (s *PostgresStorage) SaveQuote(ctx context.Context, quote Quote) (int64, error) {
	const query = `
        INSERT INTO quotes (
            tenant_id, material_id, material_name, finish_id, product_id,
            width_mm, height_mm, quantity, area_m2, total_area_m2,
            material_cost, finish_cost, product_cost, total_price,
            is_split, total_pieces, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        RETURNING id
    `

	var quoteID int64
	err := s.db.QueryRowContext(ctx, query,
		quote.TenantID,
		quote.MaterialID,
		quote.MaterialName,
		quote.FinishID,
		quote.ProductID,
		quote.WidthMM,
		quote.HeightMM,
		quote.Quantity,
		quote.AreaM2,
		quote.TotalAreaM2,
		quote.MaterialCost,
		quote.FinishCost,
		quote.ProductCost,
		quote.TotalPrice,
		quote.IsSplit,
		quote.TotalPieces,
		quote.CreatedAt,
	).Scan(&quoteID)

	if err != nil {
		return 0, fmt.Errorf("failed to save quote: %w", err)
	}

	// Invalidate statistics cache
	s.redis.Del(ctx, "quote_stats")

	return quoteID, nil
}

// GetQuoteByID returns one persisted quote.
func (s *PostgresStorage) GetQuoteByID(ctx context.Context, quoteID int64) (*Quote, error) {
	const query = `SELECT * FROM quotes WHERE id = $1`
	var quote Quote
	err := s.db.GetContext(ctx, &quote, query, quoteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("quote %d: %w", quoteID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &quote, nil
}

type QuoteStatistics struct {
	TotalQuotes  int     `db:"total_quotes"`
	TotalValue   float64 `db:"total_value"`
	TodayQuotes  int
	TodayValue   float64
	WeekQuotes   int
	WeekValue    float64
	MonthQuotes  int
	MonthValue   float64
	SplitQuotes  int
	AverageTotal float64
}

// GetQuoteStatistics aggregates the quote log for the back office, cached
// for an hour.
func (s *PostgresStorage) GetQuoteStatistics(ctx context.Context) (*QuoteStatistics, error) {
	cacheKey := "quote_stats"

	if cached, err := s.redis.Get(ctx, cacheKey); err == nil {
		var stats QuoteStatistics
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
	}

	stats := &QuoteStatistics{}

	type countValue struct {
		Count int     `db:"count"`
		Value float64 `db:"value"`
	}

	err := s.db.GetContext(ctx, stats, `
        SELECT
            COUNT(*) as total_quotes,
            COALESCE(SUM(total_price), 0) as total_value
        FROM quotes
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote totals: %w", err)
	}

	windows := []struct {
		interval string
		count    *int
		value    *float64
	}{
		{"CURRENT_DATE", &stats.TodayQuotes, &stats.TodayValue},
		{"CURRENT_DATE - INTERVAL '7 days'", &stats.WeekQuotes, &stats.WeekValue},
		{"CURRENT_DATE - INTERVAL '30 days'", &stats.MonthQuotes, &stats.MonthValue},
	}
	for _, w := range windows {
		var cv countValue
		query := fmt.Sprintf(`
            SELECT
                COUNT(*) as count,
                COALESCE(SUM(total_price), 0) as value
            FROM quotes
            WHERE created_at >= %s
        `, w.interval)
		if err := s.db.GetContext(ctx, &cv, query); err != nil {
			return nil, fmt.Errorf("failed to get windowed quote stats: %w", err)
		}
		*w.count = cv.Count
		*w.value = cv.Value
	}

	if err := s.db.GetContext(ctx, &stats.SplitQuotes, `SELECT COUNT(*) FROM quotes WHERE is_split`); err != nil {
		return nil, fmt.Errorf("failed to get split count: %w", err)
	}

	if stats.TotalQuotes > 0 {
		stats.AverageTotal = stats.TotalValue / float64(stats.TotalQuotes)
	}

	if data, err := json.Marshal(stats); err == nil {
		s.redis.Set(ctx, cacheKey, data, 1*time.Hour)
	}

	return stats, nil
}

// CheckRateLimit counts hits per key in a rolling window. Returns true when
// the limit is exceeded.
func (s *PostgresStorage) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := s.redis.Incr(ctx, redisKey)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// Set expiry if this is the first increment
	if count == 1 {
		if _, err := s.redis.Expire(ctx, redisKey, window); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count > limit, nil
}
