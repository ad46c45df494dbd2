package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storformat-pricing/internal/pricing"
	"storformat-pricing/internal/storage"
)

type quotePayload struct {
	TenantID   string  `json:"tenant_id"`
	MaterialID string  `json:"material_id"`
	FinishID   *string `json:"finish_id"`
	ProductID  *string `json:"product_id"`
	WidthMM    float64 `json:"width_mm"`
	HeightMM   float64 `json:"height_mm"`
	Quantity   int     `json:"quantity"`
}

type tierPayload struct {
	FromArea     float64  `json:"from_area"`
	ToArea       *float64 `json:"to_area"`
	PricePerArea float64  `json:"price_per_area"`
	IsAnchor     bool     `json:"is_anchor"`
	MarkupPct    float64  `json:"markup_pct"`
}

type finishPricePayload struct {
	PricingMode  string  `json:"pricing_mode"`
	FixedPrice   float64 `json:"fixed_price"`
	PricePerArea float64 `json:"price_per_area"`
}

type m2QuotePayload struct {
	quotePayload
	MaterialPrices []tierPayload       `json:"material_prices"`
	FinishPrice    *finishPricePayload `json:"finish_price"`
}

type splitPayload struct {
	IsSplit     bool `json:"is_split"`
	PiecesWide  int  `json:"pieces_wide"`
	PiecesHigh  int  `json:"pieces_high"`
	TotalPieces int  `json:"total_pieces"`
}

type quoteResponse struct {
	QuoteID              int64         `json:"quote_id"`
	AreaM2               float64       `json:"area_m2"`
	TotalAreaM2          float64       `json:"total_area_m2"`
	MaterialPricePerArea float64       `json:"material_price_per_area"`
	FinishPricePerArea   float64       `json:"finish_price_per_area"`
	ProductPricePerArea  float64       `json:"product_price_per_area"`
	MaterialCost         float64       `json:"material_cost"`
	FinishCost           float64       `json:"finish_cost"`
	ProductCost          float64       `json:"product_cost"`
	TotalPrice           float64       `json:"total_price"`
	SplitInfo            *splitPayload `json:"split_info"`
}

// quoteInputs are the resolved entities one quote request prices against.
type quoteInputs struct {
	tenantID string
	material *pricing.Material
	finish   *pricing.Finish
	product  *pricing.Product
	config   pricing.QuoteConfig
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var payload quotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inputs, ok := s.resolveInputs(w, r, payload)
	if !ok {
		return
	}

	result := pricing.CalculateStorformatPrice(pricing.QuoteRequest{
		WidthMM:  payload.WidthMM,
		HeightMM: payload.HeightMM,
		Quantity: payload.Quantity,
		Material: *inputs.material,
		Finish:   inputs.finish,
		Product:  inputs.product,
		Config:   inputs.config,
	})

	s.respondWithQuote(w, r, payload, inputs, result)
}

func (s *Server) handleQuoteM2(w http.ResponseWriter, r *http.Request) {
	var payload m2QuotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inputs, ok := s.resolveInputs(w, r, payload.quotePayload)
	if !ok {
		return
	}

	materialPrices := make([]pricing.Tier, 0, len(payload.MaterialPrices))
	for _, t := range payload.MaterialPrices {
		materialPrices = append(materialPrices, pricing.Tier{
			FromArea:     t.FromArea,
			ToArea:       t.ToArea,
			PricePerArea: t.PricePerArea,
			IsAnchor:     t.IsAnchor,
			MarkupPct:    t.MarkupPct,
		})
	}

	var finishPrice *pricing.FinishPriceRow
	if payload.FinishPrice != nil {
		finishPrice = &pricing.FinishPriceRow{
			PricingMode:  pricing.FinishPricingMode(payload.FinishPrice.PricingMode),
			FixedPrice:   payload.FinishPrice.FixedPrice,
			PricePerArea: payload.FinishPrice.PricePerArea,
		}
	}

	result := pricing.CalculateStorformatM2Price(pricing.QuoteRequestM2{
		WidthMM:        payload.WidthMM,
		HeightMM:       payload.HeightMM,
		Quantity:       payload.Quantity,
		Material:       *inputs.material,
		Finish:         inputs.finish,
		Product:        inputs.product,
		MaterialPrices: materialPrices,
		FinishPrice:    finishPrice,
		Config:         inputs.config,
	})

	s.respondWithQuote(w, r, payload.quotePayload, inputs, result)
}

// resolveInputs validates the payload at the system boundary and loads the
// referenced entities, so the pricing core always sees well-typed input.
func (s *Server) resolveInputs(w http.ResponseWriter, r *http.Request, payload quotePayload) (quoteInputs, bool) {
	ctx := r.Context()

	if payload.MaterialID == "" {
		s.writeError(w, http.StatusBadRequest, "material_id is required")
		return quoteInputs{}, false
	}
	if payload.WidthMM <= 0 || payload.HeightMM <= 0 {
		s.writeError(w, http.StatusBadRequest, "width_mm and height_mm must be positive")
		return quoteInputs{}, false
	}
	if payload.Quantity <= 0 {
		s.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return quoteInputs{}, false
	}

	tenantID := payload.TenantID
	if tenantID == "" {
		tenantID = s.cfg.TenantID
	}

	material, err := s.store.GetMaterial(ctx, payload.MaterialID)
	if err != nil {
		s.respondStoreError(w, "material", err)
		return quoteInputs{}, false
	}

	var finish *pricing.Finish
	if payload.FinishID != nil && *payload.FinishID != "" {
		if finish, err = s.store.GetFinish(ctx, *payload.FinishID); err != nil {
			s.respondStoreError(w, "finish", err)
			return quoteInputs{}, false
		}
	}

	var product *pricing.Product
	if payload.ProductID != nil && *payload.ProductID != "" {
		if product, err = s.store.GetProduct(ctx, *payload.ProductID); err != nil {
			s.respondStoreError(w, "product", err)
			return quoteInputs{}, false
		}
	}

	config, err := s.store.GetQuoteConfig(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to load quote config", zap.String("tenant_id", tenantID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load pricing config")
		return quoteInputs{}, false
	}

	if len(config.Quantities) > 0 && !quantityAllowed(config.Quantities, payload.Quantity) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("quantity %d is not orderable", payload.Quantity))
		return quoteInputs{}, false
	}

	return quoteInputs{
		tenantID: tenantID,
		material: material,
		finish:   finish,
		product:  product,
		config:   config,
	}, true
}

func (s *Server) respondWithQuote(w http.ResponseWriter, r *http.Request, payload quotePayload, inputs quoteInputs, result pricing.QuoteResult) {
	quote := storage.Quote{
		TenantID:     inputs.tenantID,
		MaterialID:   inputs.material.ID,
		MaterialName: inputs.material.Name,
		FinishID:     payload.FinishID,
		ProductID:    payload.ProductID,
		WidthMM:      payload.WidthMM,
		HeightMM:     payload.HeightMM,
		Quantity:     payload.Quantity,
		AreaM2:       result.AreaM2,
		TotalAreaM2:  result.TotalAreaM2,
		MaterialCost: result.MaterialCost,
		FinishCost:   result.FinishCost,
		ProductCost:  result.ProductCost,
		TotalPrice:   result.TotalPrice,
		CreatedAt:    time.Now().UTC(),
	}
	if result.Split != nil {
		quote.IsSplit = result.Split.IsSplit
		quote.TotalPieces = result.Split.TotalPieces
	}

	// The computed price is still served when the quote log is unavailable.
	quoteID, err := s.store.SaveQuote(r.Context(), quote)
	if err != nil {
		s.logger.Error("Failed to save quote", zap.String("tenant_id", inputs.tenantID), zap.Error(err))
	} else {
		quote.ID = quoteID
	}

	s.notifier.QuoteComputed(quote, result)

	resp := quoteResponse{
		QuoteID:              quote.ID,
		AreaM2:               result.AreaM2,
		TotalAreaM2:          result.TotalAreaM2,
		MaterialPricePerArea: result.MaterialPricePerArea,
		FinishPricePerArea:   result.FinishPricePerArea,
		ProductPricePerArea:  result.ProductPricePerArea,
		MaterialCost:         result.MaterialCost,
		FinishCost:           result.FinishCost,
		ProductCost:          result.ProductCost,
		TotalPrice:           result.TotalPrice,
	}
	if result.Split != nil {
		resp.SplitInfo = &splitPayload{
			IsSplit:     result.Split.IsSplit,
			PiecesWide:  result.Split.PiecesWide,
			PiecesHigh:  result.Split.PiecesHigh,
			TotalPieces: result.Split.TotalPieces,
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) respondStoreError(w http.ResponseWriter, entity string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, entity+" not found")
		return
	}
	s.logger.Error("Failed to load "+entity, zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "failed to load "+entity)
}

func quantityAllowed(allowed []int, quantity int) bool {
	for _, q := range allowed {
		if q == quantity {
			return true
		}
	}
	return false
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant")
	if tenantID == "" {
		tenantID = s.cfg.TenantID
	}

	materials, err := s.store.ListMaterials(r.Context(), tenantID)
	if err != nil {
		s.logger.Error("Failed to list materials", zap.String("tenant_id", tenantID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list materials")
		return
	}

	s.writeJSON(w, http.StatusOK, materials)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetQuoteStatistics(r.Context())
	if err != nil {
		s.logger.Error("Failed to load quote statistics", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "catalog sync is not configured")
		return
	}

	tenantID := r.URL.Query().Get("tenant")
	if tenantID == "" {
		tenantID = s.cfg.TenantID
	}

	written, err := s.syncer.Sync(r.Context(), tenantID)
	if err != nil {
		s.logger.Error("Catalog sync failed", zap.String("tenant_id", tenantID), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "catalog sync failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"rows": written})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant")
	if tenantID == "" {
		tenantID = s.cfg.TenantID
	}

	path, err := s.store.ExportQuotesToExcel(r.Context(), tenantID, s.cfg.ExportDir)
	if err != nil {
		s.logger.Error("Quote export failed", zap.String("tenant_id", tenantID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"file": path})
}
