package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/lotestock/internal/application/auth"
	"github.com/tu-usuario/lotestock/internal/application/inventory"
	"github.com/tu-usuario/lotestock/internal/application/usecase"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CompanyUC   *usecase.CompanyUseCase
	WarehouseUC *usecase.WarehouseUseCase
	ProductUC   *usecase.ProductUseCase
	EntryUC     *inventory.RegisterEntryUseCase
	Allocator   *inventory.FEFOAllocator
	LotsUC      *inventory.LotsUseCase
	MovementsUC *inventory.MovementsUseCase
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Companies (público por ahora; se puede proteger con AuthMiddleware(deps.JWTSecret))
	companies := api.Group("/companies")
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	companies.Get("/", companyHandler.List)
	companies.Post("/", companyHandler.Create)
	companies.Get("/:id", companyHandler.GetByID)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Users (protegido)
	users := protected.Group("/users")
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/me", userHandler.Me)

	// Warehouses (protegido)
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)

	// Products (protegido)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)

	// Stock: entradas, salidas FEFO, lotes (protegido).
	// Las escrituras exigen rol de bodega; los vendedores pueden registrar salidas.
	stock := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.EntryUC, deps.Allocator, deps.LotsUC)
	stock.Post("/entries", RequireRole(entity.RoleAdmin, entity.RoleBodeguero), stockHandler.RegisterEntry)
	stock.Post("/exits", RequireRole(entity.RoleAdmin, entity.RoleBodeguero, entity.RoleVendedor), stockHandler.RegisterExit)
	stock.Get("/products/:product_id", stockHandler.GetProductStock)
	stock.Patch("/lots/:id/quarantine", RequireRole(entity.RoleAdmin, entity.RoleBodeguero), stockHandler.SetQuarantine)

	// Movements: auditoría del ledger y picking (protegido)
	movements := protected.Group("/movements")
	movementHandler := NewMovementHandler(deps.MovementsUC)
	movements.Get("/reference/:reference", movementHandler.ListByReference)
	movements.Get("/reference/:reference/picking", movementHandler.DownloadPickList)
	movements.Get("/product/:product_id", movementHandler.ListByProduct)
	movements.Get("/lot/:lot_id", movementHandler.ListByLot)
}
