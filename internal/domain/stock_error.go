package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StockErrorKind discrimina las condiciones de negocio del motor de stock.
type StockErrorKind string

const (
	// KindNotEnoughStock: hay lotes elegibles pero la suma no cubre lo solicitado.
	KindNotEnoughStock StockErrorKind = "NOT_ENOUGH_STOCK"
	// KindNoLotsAvailable: no existe ningún lote elegible (distinto de "insuficiente":
	// permite al caller diferenciar "agotado" de "nunca surtido / todo en cuarentena").
	KindNoLotsAvailable StockErrorKind = "NO_LOTS_AVAILABLE"
)

// StockError es la condición de negocio del asignador FEFO con su contexto.
// No es un fallo de infraestructura: el caller debe traducirla a una respuesta
// de usuario (409/422), nunca a un 5xx.
//
// Se captura amplio o estrecho vía errors.Is:
//
//	errors.Is(err, domain.ErrStock)           → cualquier condición de stock
//	errors.Is(err, domain.ErrNotEnoughStock)  → solo faltante de stock
type StockError struct {
	Kind      StockErrorKind
	ProductID string
	// Requested y Available solo aplican para KindNotEnoughStock.
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *StockError) Error() string {
	switch e.Kind {
	case KindNotEnoughStock:
		return fmt.Sprintf("stock insuficiente para producto %s: solicitado %s, disponible %s",
			e.ProductID, e.Requested.String(), e.Available.String())
	case KindNoLotsAvailable:
		return fmt.Sprintf("no hay lotes disponibles para producto %s", e.ProductID)
	}
	return fmt.Sprintf("condición de stock para producto %s", e.ProductID)
}

// Is permite errors.Is contra el sentinel amplio ErrStock y contra el
// sentinel estrecho correspondiente al Kind.
func (e *StockError) Is(target error) bool {
	if target == ErrStock {
		return true
	}
	switch e.Kind {
	case KindNotEnoughStock:
		return target == ErrNotEnoughStock
	case KindNoLotsAvailable:
		return target == ErrNoLotsAvailable
	}
	return false
}

// NewNotEnoughStock construye la condición de faltante con el contexto exacto
// (producto, solicitado, disponible) para que la capa de presentación informe
// el hueco preciso.
func NewNotEnoughStock(productID string, requested, available decimal.Decimal) *StockError {
	return &StockError{
		Kind:      KindNotEnoughStock,
		ProductID: productID,
		Requested: requested,
		Available: available,
	}
}

// NewNoLotsAvailable construye la condición "sin lotes elegibles".
func NewNoLotsAvailable(productID string) *StockError {
	return &StockError{Kind: KindNoLotsAvailable, ProductID: productID}
}
