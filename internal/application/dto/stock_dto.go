package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockEntryRequest body para POST /api/stock/entries.
// Si LotID viene, recarga ese lote; si no, crea uno nuevo con LotCode.
type StockEntryRequest struct {
	ProductID   string          `json:"product_id" validate:"required,uuid"`
	WarehouseID string          `json:"warehouse_id" validate:"required,uuid"`
	LotID       string          `json:"lot_id" validate:"omitempty,uuid"`
	LotCode     string          `json:"lot_code" validate:"omitempty,max=100"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Reference   string          `json:"reference" validate:"omitempty,max=100"`
	Notes       string          `json:"notes"`
}

// StockExitRequest body para POST /api/stock/exits (asignación FEFO).
type StockExitRequest struct {
	ProductID   string          `json:"product_id" validate:"required,uuid"`
	WarehouseID string          `json:"warehouse_id" validate:"required,uuid"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reference   string          `json:"reference" validate:"required,max=100"`
	Notes       string          `json:"notes"`
}

// QuarantineRequest body para PATCH /api/stock/lots/:id/quarantine.
type QuarantineRequest struct {
	Quarantined bool `json:"quarantined"`
}

// LotResponse salida de un lote.
type LotResponse struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"company_id"`
	ProductID      string          `json:"product_id"`
	WarehouseID    string          `json:"warehouse_id"`
	LotCode        string          `json:"lot_code"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Quarantined    bool            `json:"quarantined"`
	Reserved       bool            `json:"reserved"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AllocationStepResponse un tramo de la asignación: lote y cantidad tomada.
type AllocationStepResponse struct {
	LotID      string          `json:"lot_id"`
	LotCode    string          `json:"lot_code"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
}

// AllocationResponse resultado de una salida FEFO.
type AllocationResponse struct {
	ProductID   string                   `json:"product_id"`
	WarehouseID string                   `json:"warehouse_id"`
	Reference   string                   `json:"reference"`
	Requested   decimal.Decimal          `json:"requested"`
	Allocated   decimal.Decimal          `json:"allocated"`
	TotalCost   decimal.Decimal          `json:"total_cost"`
	Steps       []AllocationStepResponse `json:"steps"`
}

// ProductStockResponse stock de un producto en una bodega, desglosado por lote.
type ProductStockResponse struct {
	ProductID     string          `json:"product_id"`
	WarehouseID   string          `json:"warehouse_id"`
	TotalOnHand   decimal.Decimal `json:"total_on_hand"`
	TotalEligible decimal.Decimal `json:"total_eligible"`
	Lots          []LotResponse   `json:"lots"`
}

// MovementResponse salida de un movimiento del ledger.
type MovementResponse struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	LotID       *string         `json:"lot_id,omitempty"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by,omitempty"`
}

// MovementListResponse lista de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// StockErrorResponse cuerpo de error para condiciones de stock: incluye
// lo solicitado y lo disponible para que el cliente pueda reaccionar.
type StockErrorResponse struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	ProductID string          `json:"product_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}
