package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationStep es un paso de asignación: cantidad tomada de un lote
// concreto al costo del lote en ese instante.
type AllocationStep struct {
	LotID      string
	LotCode    string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	ExpiryDate *time.Time
}

// AllocationResult es el resultado transitorio (no persistido) de una
// asignación FEFO: la secuencia ordenada de pasos más el residuo no cubierto.
// En una asignación exitosa Remaining es cero y Allocated == Requested.
type AllocationResult struct {
	ProductID   string
	WarehouseID string
	Reference   string
	Requested   decimal.Decimal
	Allocated   decimal.Decimal
	Remaining   decimal.Decimal
	Steps       []AllocationStep
}

// TotalCost devuelve el costo total de la asignación (suma de paso × costo).
func (r *AllocationResult) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.Steps {
		total = total.Add(s.Quantity.Mul(s.UnitCost))
	}
	return total
}
