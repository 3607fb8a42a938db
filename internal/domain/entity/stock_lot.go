package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLot representa un lote físico de un producto en una bodega: una
// recepción concreta con su propia fecha de vencimiento y costo unitario.
//
// Invariantes:
//   - QuantityOnHand >= 0 siempre, incluso bajo salidas concurrentes
//     (lo garantiza el decremento condicional del repositorio, no este struct).
//   - Un lote en cuarentena o reservado nunca es elegible para FEFO,
//     sin importar qué tan próximo esté su vencimiento.
//   - Nunca se elimina mientras QuantityOnHand > 0; se agota a cero.
type StockLot struct {
	ID             string
	CompanyID      string
	ProductID      string
	WarehouseID    string
	LotCode        string     // código legible del lote; único por producto+bodega, no global
	ExpiryDate     *time.Time // nil = sin vencimiento; ordena al final en FEFO
	QuantityOnHand decimal.Decimal
	UnitCost       decimal.Decimal // fijado al crear el lote; costea las salidas
	Quarantined    bool
	Reserved       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Eligible indica si el lote puede ser elegido por el asignador FEFO.
func (l *StockLot) Eligible() bool {
	return !l.Quarantined && !l.Reserved && l.QuantityOnHand.GreaterThan(decimal.Zero)
}
