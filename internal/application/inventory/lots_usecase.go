package inventory

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotestock/internal/domain"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
	"github.com/tu-usuario/lotestock/internal/domain/repository"
)

// LotsUseCase consulta de lotes y gestión de cuarentena. Opera fuera de
// transacción: son lecturas y un flag, no mueven cantidades.
type LotsUseCase struct {
	lotRepo     repository.StockLotRepository
	productRepo repository.ProductRepository
}

// NewLotsUseCase construye el caso de uso.
func NewLotsUseCase(lotRepo repository.StockLotRepository, productRepo repository.ProductRepository) *LotsUseCase {
	return &LotsUseCase{lotRepo: lotRepo, productRepo: productRepo}
}

// ProductStock stock de un producto en una bodega, desglosado por lote.
type ProductStock struct {
	ProductID     string
	WarehouseID   string
	TotalOnHand   decimal.Decimal // suma de todos los lotes
	TotalEligible decimal.Decimal // suma de lotes elegibles para FEFO
	Lots          []*entity.StockLot
}

// GetProductStock lista todos los lotes del producto en la bodega (incluidos
// cuarentena y reserva) con los totales.
func (uc *LotsUseCase) GetProductStock(ctx context.Context, companyID, productID, warehouseID string) (*ProductStock, error) {
	if productID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if product.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	lots, err := uc.lotRepo.ListByProduct(productID, warehouseID)
	if err != nil {
		return nil, err
	}
	stock := &ProductStock{
		ProductID:     productID,
		WarehouseID:   warehouseID,
		TotalOnHand:   decimal.Zero,
		TotalEligible: decimal.Zero,
		Lots:          lots,
	}
	for _, l := range lots {
		stock.TotalOnHand = stock.TotalOnHand.Add(l.QuantityOnHand)
		if l.Eligible() {
			stock.TotalEligible = stock.TotalEligible.Add(l.QuantityOnHand)
		}
	}
	return stock, nil
}

// SetQuarantine marca o desmarca la cuarentena de un lote. Un lote en
// cuarentena conserva su cantidad pero deja de ser elegible para FEFO.
func (uc *LotsUseCase) SetQuarantine(ctx context.Context, companyID, lotID string, quarantined bool) (*entity.StockLot, error) {
	if lotID == "" {
		return nil, domain.ErrInvalidInput
	}
	lot, err := uc.lotRepo.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	if lot.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if err := uc.lotRepo.SetQuarantine(lotID, quarantined); err != nil {
		return nil, err
	}
	lot.Quarantined = quarantined
	return lot, nil
}
