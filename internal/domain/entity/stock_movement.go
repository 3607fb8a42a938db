package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIN  = "IN"  // entrada: creación o recarga de un lote
	MovementTypeOUT = "OUT" // salida: un paso de asignación FEFO
)

// StockMovement es el registro inmutable de un cambio de cantidad contra un
// lote: una entrada o un paso de asignación. Forma el libro de auditoría:
// dado un Reference (id de venta/pedido) se reconstruye exactamente qué lotes
// y a qué costo cubrieron la operación.
//
// Una vez creado nunca se muta ni se borra (ledger append-only). La suma de
// salidas de un lote nunca excede la suma de sus entradas; es la misma
// invariante de cantidad no negativa del lote, vista desde el ledger.
type StockMovement struct {
	ID          string
	CompanyID   string
	ProductID   string
	WarehouseID string
	LotID       *string         // nil para entradas agregadas/legadas aún sin lote atribuido
	Type        string          // IN, OUT
	Quantity    decimal.Decimal // positivo para IN, negativo para OUT
	UnitCost    decimal.Decimal // costo del lote en el instante del movimiento
	TotalCost   decimal.Decimal
	Reference   string // factura, pedido, nota de salida manual
	Notes       string
	CreatedAt   time.Time
	CreatedBy   string // actor autenticado que disparó la operación
}
