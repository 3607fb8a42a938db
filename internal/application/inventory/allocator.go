package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotestock/internal/domain"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
	"github.com/tu-usuario/lotestock/internal/domain/repository"
)

// AllocatorConfig parámetros del asignador. Se inyecta explícitamente:
// nada de estado global ni singletons de proceso.
type AllocatorConfig struct {
	// MaxDecrementRetries acota los reintentos del decremento condicional
	// sobre un mismo lote cuando otro retiro gana la carrera. Agotados los
	// reintentos el lote se trata como exhausto y se pasa al siguiente.
	MaxDecrementRetries int
}

// DefaultAllocatorConfig valores por defecto.
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{MaxDecrementRetries: 3}
}

// AllocateInput entrada para una asignación FEFO.
type AllocateInput struct {
	CompanyID   string
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	ActorID     string // principal ya autenticado; queda en el ledger
	Reference   string // id de venta/pedido o motivo de la salida manual
	Notes       string
}

// FEFOAllocator descompone una cantidad solicitada en una secuencia de
// retiros por lote en orden FEFO (primero en vencer, primero en salir).
//
// La seguridad concurrente no usa locks de aplicación: descansa por completo
// en el decremento condicional atómico del repositorio de lotes. Una carrera
// entre dos retiros se convierte en una secuencia de updates condicionales
// independientes; quien pierde relee la cifra actual y reintenta con el
// monto reducido, acotado por MaxDecrementRetries.
type FEFOAllocator struct {
	txRunner      TxRunner
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	cfg           AllocatorConfig
}

// NewFEFOAllocator construye el asignador.
func NewFEFOAllocator(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	cfg AllocatorConfig,
) *FEFOAllocator {
	if cfg.MaxDecrementRetries <= 0 {
		cfg.MaxDecrementRetries = DefaultAllocatorConfig().MaxDecrementRetries
	}
	return &FEFOAllocator{
		txRunner:      txRunner,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		cfg:           cfg,
	}
}

// Allocate ejecuta una asignación completa dentro de una transacción.
//
// Valida la entrada, recorre los lotes elegibles en orden FEFO y registra un
// movimiento OUT por cada paso, en la misma tx que el decremento. Si al
// agotar los lotes queda residuo, retorna *domain.StockError
// (KindNotEnoughStock) y el TxRunner revierte todo: para el caller la
// llamada es todo-o-nada.
//
// Errores:
//   - domain.ErrInvalidInput  cantidad no positiva (contrato del caller)
//   - domain.ErrNotFound      producto o bodega inexistente
//   - domain.ErrForbidden     producto/bodega de otra empresa
//   - *domain.StockError      NoLotsAvailable o NotEnoughStock
func (uc *FEFOAllocator) Allocate(ctx context.Context, input AllocateInput) (*entity.AllocationResult, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	if input.ProductID == "" || input.WarehouseID == "" || input.Reference == "" {
		return nil, domain.ErrInvalidInput
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
	wh, err := uc.warehouseRepo.GetByID(input.WarehouseID)
	if err != nil {
		return nil, err
	}
	if wh == nil || wh.CompanyID != input.CompanyID {
		return nil, domain.ErrNotFound
	}

	var result *entity.AllocationResult
	err = uc.txRunner.Run(ctx, func(
		lotRepo repository.StockLotRepository,
		movRepo repository.StockMovementRepository,
		_ repository.ProductRepository,
	) error {
		var txErr error
		result, txErr = uc.AllocateInTx(lotRepo, movRepo, input, time.Now())
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AllocateInTx ejecuta la asignación usando los repositorios del caller
// (misma transacción). Pensado para casos de uso que componen una tx mayor
// (creación de pedido, venta POS): si retorna error el caller debe hacer
// rollback; el contrato todo-o-nada depende de esa frontera.
//
// Garantía propia del algoritmo, con o sin rollback: nunca reporta en los
// pasos más cantidad de la realmente decrementada, y ningún lote queda
// negativo.
func (uc *FEFOAllocator) AllocateInTx(
	lotRepo repository.StockLotRepository,
	movRepo repository.StockMovementRepository,
	input AllocateInput,
	now time.Time,
) (*entity.AllocationResult, error) {
	lots, err := lotRepo.EligibleLots(input.ProductID, input.WarehouseID)
	if err != nil {
		return nil, err
	}
	if len(lots) == 0 {
		return nil, domain.NewNoLotsAvailable(input.ProductID)
	}

	result := &entity.AllocationResult{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		Reference:   input.Reference,
		Requested:   input.Quantity,
		Allocated:   decimal.Zero,
		Remaining:   input.Quantity,
	}

	for _, lot := range lots {
		if result.Remaining.IsZero() {
			break
		}
		if err := uc.drainLot(lotRepo, movRepo, lot, input, now, result); err != nil {
			return nil, err
		}
	}

	if result.Remaining.GreaterThan(decimal.Zero) {
		// Lo observado como disponible es exactamente lo que se alcanzó a
		// decrementar; el rollback de la tx lo devuelve a los lotes.
		return nil, domain.NewNotEnoughStock(input.ProductID, input.Quantity, result.Allocated)
	}
	return result, nil
}

// drainLot intenta cubrir el residuo con un lote: take = min(remaining,
// observado) y decremento condicional. Si el decremento falla (otro retiro
// redujo el lote entre lectura y escritura) relee la cifra y reintenta con el
// monto reducido, hasta MaxDecrementRetries; agotados, el lote se da por
// exhausto y se continúa con el siguiente.
func (uc *FEFOAllocator) drainLot(
	lotRepo repository.StockLotRepository,
	movRepo repository.StockMovementRepository,
	lot *entity.StockLot,
	input AllocateInput,
	now time.Time,
	result *entity.AllocationResult,
) error {
	observed := lot.QuantityOnHand
	for attempt := 0; attempt < uc.cfg.MaxDecrementRetries; attempt++ {
		if !observed.GreaterThan(decimal.Zero) {
			return nil
		}
		take := decimal.Min(result.Remaining, observed)

		ok, err := lotRepo.DecrementQuantity(lot.ID, take)
		if err != nil {
			return err
		}
		if ok {
			// Timestamp monotónico por paso: los pasos de una misma
			// asignación comparten el mismo `now` base, y el ledger ordena
			// por created_at; sin el desplazamiento la reconstrucción del
			// orden FEFO por referencia sería ambigua.
			stepAt := now.Add(time.Duration(len(result.Steps)) * time.Microsecond)
			if err := uc.recordStep(movRepo, lot, take, input, stepAt); err != nil {
				return err
			}
			result.Steps = append(result.Steps, entity.AllocationStep{
				LotID:      lot.ID,
				LotCode:    lot.LotCode,
				Quantity:   take,
				UnitCost:   lot.UnitCost,
				ExpiryDate: lot.ExpiryDate,
			})
			result.Allocated = result.Allocated.Add(take)
			result.Remaining = result.Remaining.Sub(take)
			return nil
		}

		// Perdió la carrera: releer la cantidad vigente del lote.
		fresh, err := lotRepo.GetByID(lot.ID)
		if err != nil {
			return err
		}
		if fresh == nil || !fresh.Eligible() {
			return nil
		}
		observed = fresh.QuantityOnHand
	}
	return nil
}

// recordStep escribe el movimiento OUT del paso en el ledger, en la misma tx
// que el decremento, capturando el costo del lote en este instante.
func (uc *FEFOAllocator) recordStep(
	movRepo repository.StockMovementRepository,
	lot *entity.StockLot,
	take decimal.Decimal,
	input AllocateInput,
	at time.Time,
) error {
	lotID := lot.ID
	mov := &entity.StockMovement{
		ID:          uuid.New().String(),
		CompanyID:   input.CompanyID,
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		LotID:       &lotID,
		Type:        entity.MovementTypeOUT,
		Quantity:    take.Neg(),
		UnitCost:    lot.UnitCost,
		TotalCost:   take.Neg().Mul(lot.UnitCost),
		Reference:   input.Reference,
		Notes:       input.Notes,
		CreatedAt:   at,
		CreatedBy:   input.ActorID,
	}
	return movRepo.Create(mov)
}
