package repository

import (
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
)

// StockLotRepository define el puerto de persistencia para lotes (DIP).
// Usado dentro de transacciones para garantizar consistencia.
type StockLotRepository interface {
	Create(lot *entity.StockLot) error
	GetByID(id string) (*entity.StockLot, error)

	// EligibleLots devuelve los lotes elegibles de un producto en una bodega
	// en orden FEFO: cantidad > 0, sin cuarentena ni reserva, ordenados por
	// vencimiento ascendente (nulos al final) y por id ascendente como
	// desempate determinista.
	EligibleLots(productID, warehouseID string) ([]*entity.StockLot, error)

	// DecrementQuantity aplica el decremento condicional atómico:
	//
	//	quantity_on_hand = quantity_on_hand - qty WHERE quantity_on_hand >= qty
	//
	// Devuelve true si afectó exactamente una fila. false no es un error:
	// señala al asignador que otro retiro ganó la carrera y debe releer o
	// saltar el lote. Es la única primitiva de seguridad concurrente; el
	// lote nunca queda negativo.
	DecrementQuantity(lotID string, qty decimal.Decimal) (bool, error)

	// IncrementQuantity suma cantidad a un lote existente (entradas).
	IncrementQuantity(lotID string, qty decimal.Decimal) (bool, error)

	// SetQuarantine marca o desmarca la cuarentena del lote.
	SetQuarantine(lotID string, quarantined bool) error

	// ListByProduct devuelve todos los lotes de un producto en una bodega
	// (incluidos los no elegibles) para consulta de stock.
	ListByProduct(productID, warehouseID string) ([]*entity.StockLot, error)
}
