package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/lotestock/internal/domain"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
	"github.com/tu-usuario/lotestock/internal/domain/repository"
)

// MovementsUseCase consultas de auditoría sobre el ledger de movimientos y
// generación del documento de picking de una asignación.
type MovementsUseCase struct {
	movRepo     repository.StockMovementRepository
	lotRepo     repository.StockLotRepository
	productRepo repository.ProductRepository
	companyRepo repository.CompanyRepository
	pickList    PickListGenerator
}

// NewMovementsUseCase construye el caso de uso.
func NewMovementsUseCase(
	movRepo repository.StockMovementRepository,
	lotRepo repository.StockLotRepository,
	productRepo repository.ProductRepository,
	companyRepo repository.CompanyRepository,
	pickList PickListGenerator,
) *MovementsUseCase {
	return &MovementsUseCase{
		movRepo:     movRepo,
		lotRepo:     lotRepo,
		productRepo: productRepo,
		companyRepo: companyRepo,
		pickList:    pickList,
	}
}

// ListByReference reconstruye una operación: todos los movimientos que
// comparten la referencia (id de venta/pedido), con qué lotes y a qué costo.
func (uc *MovementsUseCase) ListByReference(ctx context.Context, companyID, reference string) ([]*entity.StockMovement, error) {
	if reference == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.movRepo.ListByReference(companyID, reference)
}

// ListByProduct lista movimientos de un producto en un rango de fechas.
func (uc *MovementsUseCase) ListByProduct(ctx context.Context, companyID, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
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
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.movRepo.ListByProduct(productID, from, to, limit, offset)
}

// ListByLot lista el historial completo de un lote (entradas y salidas).
func (uc *MovementsUseCase) ListByLot(ctx context.Context, companyID, lotID string, limit, offset int) ([]*entity.StockMovement, error) {
	lot, err := uc.lotRepo.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	product, err := uc.productRepo.GetByID(lot.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.movRepo.ListByLot(lotID, limit, offset)
}

// DownloadPickList genera el PDF de picking de una referencia: las salidas
// (OUT) con su lote, producto y cantidad a recoger.
//
// Retorna (pdfBytes, filename, nil), o domain.ErrNotFound si la referencia
// no tiene salidas registradas.
func (uc *MovementsUseCase) DownloadPickList(ctx context.Context, companyID, reference string) ([]byte, string, error) {
	if reference == "" {
		return nil, "", domain.ErrInvalidInput
	}
	movs, err := uc.movRepo.ListByReference(companyID, reference)
	if err != nil {
		return nil, "", fmt.Errorf("picking: listar movimientos: %w", err)
	}

	company, err := uc.companyRepo.GetByID(companyID)
	if err != nil {
		return nil, "", err
	}
	companyName := ""
	if company != nil {
		companyName = company.Name
	}

	data := &PickListData{
		CompanyName: companyName,
		Reference:   reference,
		GeneratedAt: time.Now(),
	}
	products := map[string]*entity.Product{}
	for _, m := range movs {
		if m.Type != entity.MovementTypeOUT || m.LotID == nil {
			continue
		}
		lot, err := uc.lotRepo.GetByID(*m.LotID)
		if err != nil {
			return nil, "", err
		}
		product, ok := products[m.ProductID]
		if !ok {
			if product, err = uc.productRepo.GetByID(m.ProductID); err != nil {
				return nil, "", err
			}
			products[m.ProductID] = product
		}
		line := PickListLine{Quantity: m.Quantity.Neg()}
		if lot != nil {
			line.LotCode = lot.LotCode
		}
		if product != nil {
			line.ProductSKU = product.SKU
			line.ProductName = product.Name
		}
		data.Lines = append(data.Lines, line)
	}
	if len(data.Lines) == 0 {
		return nil, "", domain.ErrNotFound
	}

	pdf, err := uc.pickList.GeneratePickList(ctx, data)
	if err != nil {
		return nil, "", fmt.Errorf("picking: generar PDF: %w", err)
	}
	return pdf, fmt.Sprintf("picking_%s.pdf", reference), nil
}
