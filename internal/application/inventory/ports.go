package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotestock/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Es la frontera transaccional del motor de
// stock: si fn retorna error (incluida una condición de negocio como
// *domain.StockError) la transacción completa se revierte, de modo que una
// asignación fallida no deja decrementos parciales ni movimientos huérfanos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		lotRepo repository.StockLotRepository,
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// PickListGenerator genera el documento de picking (PDF) de una asignación.
// La implementación vive en infrastructure/pdf.
type PickListGenerator interface {
	GeneratePickList(ctx context.Context, data *PickListData) ([]byte, error)
}

// PickListData datos ya resueltos para el documento de picking.
type PickListData struct {
	CompanyName string
	Reference   string
	GeneratedAt time.Time
	Lines       []PickListLine
}

// PickListLine una línea del picking: qué lote tomar y cuánto.
type PickListLine struct {
	ProductSKU  string
	ProductName string
	LotCode     string
	Quantity    decimal.Decimal
}
