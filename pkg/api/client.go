package api

// PRICING-HUB CLIENT
//
// The hosted storefront backend owns the catalog; this client pulls the
// tenant's rows so the engine can price against a local mirror.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type Tier struct {
	FromArea     float64  `json:"from_area"`
	ToArea       *float64 `json:"to_area"`
	PricePerArea float64  `json:"price_per_area"`
	IsAnchor     bool     `json:"is_anchor"`
	MarkupPct    float64  `json:"markup_pct"`
}

type Material struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Tiers                []Tier  `json:"tiers"`
	InterpolationEnabled bool    `json:"interpolation_enabled"`
	MarkupPct            float64 `json:"markup_pct"`
	MinPrice             float64 `json:"min_price"`
	MaxWidthMM           float64 `json:"max_width_mm"`
	MaxHeightMM          float64 `json:"max_height_mm"`
	AllowSplit           bool    `json:"allow_split"`
	InStock              bool    `json:"in_stock"`
}

type Finish struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	PricingMode          string  `json:"pricing_mode"`
	FixedPricePerUnit    float64 `json:"fixed_price_per_unit"`
	Tiers                []Tier  `json:"tiers"`
	InterpolationEnabled bool    `json:"interpolation_enabled"`
	MarkupPct            float64 `json:"markup_pct"`
}

type FixedPrice struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Product struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	PricingType          string       `json:"pricing_type"`
	InitialPrice         float64      `json:"initial_price"`
	PercentageMarkup     float64      `json:"percentage_markup"`
	FixedPrices          []FixedPrice `json:"fixed_prices"`
	Tiers                []Tier       `json:"tiers"`
	InterpolationEnabled bool         `json:"interpolation_enabled"`
	MarkupPct            float64      `json:"markup_pct"`
	MinPrice             float64      `json:"min_price"`
}

func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) GetMaterials(ctx context.Context, tenantID string) ([]Material, error) {
	var materials []Material
	if err := c.getJSON(ctx, "/api/pricing-hub/materials", tenantID, &materials); err != nil {
		return nil, err
	}
	return materials, nil
}

func (c *Client) GetFinishes(ctx context.Context, tenantID string) ([]Finish, error) {
	var finishes []Finish
	if err := c.getJSON(ctx, "/api/pricing-hub/finishes", tenantID, &finishes); err != nil {
		return nil, err
	}
	return finishes, nil
}

func (c *Client) GetProducts(ctx context.Context, tenantID string) ([]Product, error) {
	var products []Product
	if err := c.getJSON(ctx, "/api/pricing-hub/products", tenantID, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, path, tenantID string, dst any) error {
	u := fmt.Sprintf("%s%s?tenant=%s", c.baseURL, path, url.QueryEscape(tenantID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
