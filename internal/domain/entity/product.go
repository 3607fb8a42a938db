package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del inventario (multi-bodega).
// Cost es el costo promedio ponderado calculado desde las entradas; el stock
// físico vive en los lotes (StockLot), nunca aquí.
type Product struct {
	ID          string
	CompanyID   string
	SKU         string // código único por empresa
	Name        string
	Description string
	Cost        decimal.Decimal // costo promedio ponderado (inicia en 0)
	UnitMeasure string
	Perishable  bool // exige fecha de vencimiento en las entradas
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
