package repository

import (
	"time"

	"github.com/tu-usuario/lotestock/internal/domain/entity"
)

// StockMovementRepository define el puerto del ledger de movimientos (DIP).
// Solo expone Create y lecturas: el ledger es write-once, read-many; no hay
// update ni delete.
type StockMovementRepository interface {
	Create(movement *entity.StockMovement) error
	GetByID(id string) (*entity.StockMovement, error)

	// ListByReference reconstruye una operación: todos los movimientos que
	// comparten Reference (id de venta/pedido), en orden de creación.
	ListByReference(companyID, reference string) ([]*entity.StockMovement, error)

	ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByLot(lotID string, limit, offset int) ([]*entity.StockMovement, error)
}
