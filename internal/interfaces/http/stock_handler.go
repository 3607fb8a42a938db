package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/lotestock/internal/application/dto"
	"github.com/tu-usuario/lotestock/internal/application/inventory"
	"github.com/tu-usuario/lotestock/internal/domain"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
)

// StockHandler maneja entradas, salidas FEFO y consulta de lotes (protegido).
type StockHandler struct {
	entries   *inventory.RegisterEntryUseCase
	allocator *inventory.FEFOAllocator
	lots      *inventory.LotsUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(
	entries *inventory.RegisterEntryUseCase,
	allocator *inventory.FEFOAllocator,
	lots *inventory.LotsUseCase,
) *StockHandler {
	return &StockHandler{entries: entries, allocator: allocator, lots: lots}
}

// RegisterEntry godoc
// @Summary      Registrar entrada de stock
// @Description  Crea un lote nuevo (lot_code + unit_cost) o recarga uno existente (lot_id).
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockEntryRequest  true  "Datos de la entrada"
// @Success      201   {object}  dto.LotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/entries [post]
func (h *StockHandler) RegisterEntry(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.StockEntryRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lot, err := h.entries.RegisterEntry(c.Context(), inventory.EntryInput{
		CompanyID:   companyID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		LotID:       in.LotID,
		LotCode:     in.LotCode,
		ExpiryDate:  in.ExpiryDate,
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		ActorID:     userID,
		Reference:   in.Reference,
		Notes:       in.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto, bodega o lote no encontrado"})
		case errors.Is(err, domain.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
		case errors.Is(err, domain.ErrDuplicate):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el código de lote ya existe para ese producto y bodega"})
		case errors.Is(err, domain.ErrConflict):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "el lote cambió durante la operación"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(toLotResponse(lot))
}

// RegisterExit godoc
// @Summary      Registrar salida de stock (FEFO)
// @Description  Asigna la cantidad solicitada contra los lotes elegibles en orden
//
//	de vencimiento (primero en vencer, primero en salir). Todo-o-nada:
//	si el stock no alcanza, no se descuenta nada.
//
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockExitRequest  true  "product_id, warehouse_id, quantity, reference"
// @Success      201   {object}  dto.AllocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.StockErrorResponse
// @Failure      422   {object}  dto.StockErrorResponse
// @Router       /api/stock/exits [post]
func (h *StockHandler) RegisterExit(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.StockExitRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.allocator.Allocate(c.Context(), inventory.AllocateInput{
		CompanyID:   companyID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		ActorID:     userID,
		Reference:   in.Reference,
		Notes:       in.Notes,
	})
	if err != nil {
		var stockErr *domain.StockError
		if errors.As(err, &stockErr) {
			return writeStockError(c, stockErr)
		}
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto o bodega no encontrado"})
		case errors.Is(err, domain.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(toAllocationResponse(result))
}

// GetProductStock godoc
// @Summary      Stock de un producto por lote
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true  "ID del producto"
// @Param        warehouse_id  query  string  true  "ID de la bodega"
// @Success      200  {object}  dto.ProductStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{product_id} [get]
func (h *StockHandler) GetProductStock(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	productID := c.Params("product_id")
	warehouseID := c.Query("warehouse_id")
	stock, err := h.lots.GetProductStock(c.Context(), companyID, productID, warehouseID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "product_id y warehouse_id son requeridos"})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto no encontrado"})
		case errors.Is(err, domain.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := dto.ProductStockResponse{
		ProductID:     stock.ProductID,
		WarehouseID:   stock.WarehouseID,
		TotalOnHand:   stock.TotalOnHand,
		TotalEligible: stock.TotalEligible,
		Lots:          make([]dto.LotResponse, 0, len(stock.Lots)),
	}
	for _, l := range stock.Lots {
		out.Lots = append(out.Lots, *toLotResponse(l))
	}
	return c.JSON(out)
}

// SetQuarantine godoc
// @Summary      Marcar o desmarcar cuarentena de un lote
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del lote"
// @Param        body  body  dto.QuarantineRequest  true  "quarantined: true|false"
// @Success      200   {object}  dto.LotResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/lots/{id}/quarantine [patch]
func (h *StockHandler) SetQuarantine(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	lotID := c.Params("id")
	var in dto.QuarantineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lot, err := h.lots.SetQuarantine(c.Context(), companyID, lotID, in.Quarantined)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id del lote es requerido"})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "lote no encontrado"})
		case errors.Is(err, domain.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(toLotResponse(lot))
}

// writeStockError traduce una condición de stock a su respuesta HTTP:
// 409 para faltante (hay lotes pero no alcanzan), 422 para sin lotes.
func writeStockError(c *fiber.Ctx, e *domain.StockError) error {
	body := dto.StockErrorResponse{
		Code:      string(e.Kind),
		Message:   e.Error(),
		ProductID: e.ProductID,
		Requested: e.Requested,
		Available: e.Available,
	}
	if e.Kind == domain.KindNoLotsAvailable {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
	}
	return c.Status(fiber.StatusConflict).JSON(body)
}

func toLotResponse(l *entity.StockLot) *dto.LotResponse {
	if l == nil {
		return nil
	}
	return &dto.LotResponse{
		ID:             l.ID,
		CompanyID:      l.CompanyID,
		ProductID:      l.ProductID,
		WarehouseID:    l.WarehouseID,
		LotCode:        l.LotCode,
		ExpiryDate:     l.ExpiryDate,
		QuantityOnHand: l.QuantityOnHand,
		UnitCost:       l.UnitCost,
		Quarantined:    l.Quarantined,
		Reserved:       l.Reserved,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func toAllocationResponse(r *entity.AllocationResult) dto.AllocationResponse {
	out := dto.AllocationResponse{
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		Reference:   r.Reference,
		Requested:   r.Requested,
		Allocated:   r.Allocated,
		TotalCost:   r.TotalCost(),
		Steps:       make([]dto.AllocationStepResponse, 0, len(r.Steps)),
	}
	for _, s := range r.Steps {
		out.Steps = append(out.Steps, dto.AllocationStepResponse{
			LotID:      s.LotID,
			LotCode:    s.LotCode,
			Quantity:   s.Quantity,
			UnitCost:   s.UnitCost,
			ExpiryDate: s.ExpiryDate,
		})
	}
	return out
}
