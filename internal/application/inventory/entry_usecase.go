package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotestock/internal/domain"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
	"github.com/tu-usuario/lotestock/internal/domain/inventory"
	"github.com/tu-usuario/lotestock/internal/domain/repository"
)

// EntryInput entrada de stock: crea un lote nuevo o recarga uno existente.
type EntryInput struct {
	CompanyID   string
	ProductID   string
	WarehouseID string
	LotID       string // si viene, recarga ese lote; si no, crea uno nuevo
	LotCode     string
	ExpiryDate  *time.Time
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal // obligatorio al crear lote; ignorado al recargar
	ActorID     string
	Reference   string
	Notes       string
}

// RegisterEntryUseCase registra entradas de stock de forma transaccional:
// lote + movimiento IN + costo promedio del producto, todo o nada.
type RegisterEntryUseCase struct {
	txRunner      TxRunner
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
}

// NewRegisterEntryUseCase construye el caso de uso.
func NewRegisterEntryUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
) *RegisterEntryUseCase {
	return &RegisterEntryUseCase{
		txRunner:      txRunner,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
	}
}

// RegisterEntry valida, y dentro de una tx: crea o recarga el lote, escribe
// el movimiento IN en el ledger y actualiza el costo promedio ponderado del
// producto. El costo unitario del lote queda fijo a su creación; las
// recargas usan el costo ya fijado del lote.
func (uc *RegisterEntryUseCase) RegisterEntry(ctx context.Context, input EntryInput) (*entity.StockLot, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	if input.ProductID == "" || input.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if input.LotID == "" {
		if input.LotCode == "" || input.UnitCost.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
	}

	product, err := uc.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if product.CompanyID != input.CompanyID {
		return nil, domain.ErrForbidden
	}
	if product.Perishable && input.LotID == "" && input.ExpiryDate == nil {
		return nil, domain.ErrInvalidInput
	}
	wh, err := uc.warehouseRepo.GetByID(input.WarehouseID)
	if err != nil {
		return nil, err
	}
	if wh == nil || wh.CompanyID != input.CompanyID {
		return nil, domain.ErrNotFound
	}

	now := time.Now()
	var lot *entity.StockLot
	err = uc.txRunner.Run(ctx, func(
		lotRepo repository.StockLotRepository,
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		var txErr error
		lot, txErr = uc.applyEntry(lotRepo, movRepo, productRepo, product, input, now)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (uc *RegisterEntryUseCase) applyEntry(
	lotRepo repository.StockLotRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	product *entity.Product,
	input EntryInput,
	now time.Time,
) (*entity.StockLot, error) {
	var lot *entity.StockLot

	if input.LotID != "" {
		existing, err := lotRepo.GetByID(input.LotID)
		if err != nil {
			return nil, err
		}
		if existing == nil || existing.ProductID != input.ProductID || existing.WarehouseID != input.WarehouseID {
			return nil, domain.ErrNotFound
		}
		ok, err := lotRepo.IncrementQuantity(existing.ID, input.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrConflict
		}
		existing.QuantityOnHand = existing.QuantityOnHand.Add(input.Quantity)
		lot = existing
	} else {
		lot = &entity.StockLot{
			ID:             uuid.New().String(),
			CompanyID:      input.CompanyID,
			ProductID:      input.ProductID,
			WarehouseID:    input.WarehouseID,
			LotCode:        input.LotCode,
			ExpiryDate:     input.ExpiryDate,
			QuantityOnHand: input.Quantity,
			UnitCost:       input.UnitCost,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := lotRepo.Create(lot); err != nil {
			return nil, err
		}
	}

	unitCost := lot.UnitCost
	lotID := lot.ID
	mov := &entity.StockMovement{
		ID:          uuid.New().String(),
		CompanyID:   input.CompanyID,
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		LotID:       &lotID,
		Type:        entity.MovementTypeIN,
		Quantity:    input.Quantity,
		UnitCost:    unitCost,
		TotalCost:   input.Quantity.Mul(unitCost),
		Reference:   input.Reference,
		Notes:       input.Notes,
		CreatedAt:   now,
		CreatedBy:   input.ActorID,
	}
	if err := movRepo.Create(mov); err != nil {
		return nil, err
	}

	// Costo promedio ponderado del producto. El stock previo a la entrada es
	// la suma de lotes menos lo recién ingresado (la tx ya lo aplicó).
	prevQty, err := totalOnHand(lotRepo, input.ProductID, input.WarehouseID)
	if err != nil {
		return nil, err
	}
	prevQty = prevQty.Sub(input.Quantity)
	newCost := inventory.WeightedAverageCost(prevQty, product.Cost, input.Quantity, unitCost)
	if err := productRepo.UpdateCost(input.ProductID, newCost); err != nil {
		return nil, err
	}
	return lot, nil
}

// totalOnHand suma el stock en lotes del producto en la bodega.
func totalOnHand(lotRepo repository.StockLotRepository, productID, warehouseID string) (decimal.Decimal, error) {
	lots, err := lotRepo.ListByProduct(productID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(l.QuantityOnHand)
	}
	return total, nil
}
