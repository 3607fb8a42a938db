package inventory_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/lotestock/internal/application/inventory"
	"github.com/tu-usuario/lotestock/internal/domain"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
	"github.com/tu-usuario/lotestock/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
//
// Reproducen el contrato del repositorio PostgreSQL que importa al asignador:
// DecrementQuantity es condicional y atómico (protegido por mutex aquí, por
// el UPDATE ... WHERE quantity_on_hand >= qty en producción) y EligibleLots
// devuelve copias en orden FEFO, como lo haría un SELECT.
// ──────────────────────────────────────────────────────────────────────────────

type memLotRepo struct {
	mu   sync.Mutex
	lots map[string]*entity.StockLot
}

func newMemLotRepo(lots ...*entity.StockLot) *memLotRepo {
	r := &memLotRepo{lots: make(map[string]*entity.StockLot)}
	for _, l := range lots {
		cp := *l
		r.lots[l.ID] = &cp
	}
	return r
}

func (r *memLotRepo) Create(lot *entity.StockLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lot
	r.lots[lot.ID] = &cp
	return nil
}

func (r *memLotRepo) GetByID(id string) (*entity.StockLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lots[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memLotRepo) EligibleLots(productID, warehouseID string) ([]*entity.StockLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.StockLot
	for _, l := range r.lots {
		if l.ProductID == productID && l.WarehouseID == warehouseID && l.Eligible() {
			cp := *l
			out = append(out, &cp)
		}
	}
	// Orden FEFO: vencimiento ascendente, nulos al final, id como desempate.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.ID < b.ID
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ID < b.ID
		default:
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	})
	return out, nil
}

func (r *memLotRepo) DecrementQuantity(lotID string, qty decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lots[lotID]
	if !ok || l.QuantityOnHand.LessThan(qty) {
		return false, nil
	}
	l.QuantityOnHand = l.QuantityOnHand.Sub(qty)
	return true, nil
}

func (r *memLotRepo) IncrementQuantity(lotID string, qty decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lots[lotID]
	if !ok {
		return false, nil
	}
	l.QuantityOnHand = l.QuantityOnHand.Add(qty)
	return true, nil
}

func (r *memLotRepo) SetQuarantine(lotID string, quarantined bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lots[lotID]; ok {
		l.Quarantined = quarantined
	}
	return nil
}

func (r *memLotRepo) ListByProduct(productID, warehouseID string) ([]*entity.StockLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.StockLot
	for _, l := range r.lots {
		if l.ProductID == productID && l.WarehouseID == warehouseID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memLotRepo) quantity(t *testing.T, lotID string) decimal.Decimal {
	t.Helper()
	l, err := r.GetByID(lotID)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l.QuantityOnHand
}

func (r *memLotRepo) snapshot() map[string]entity.StockLot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[string]entity.StockLot, len(r.lots))
	for id, l := range r.lots {
		snap[id] = *l
	}
	return snap
}

func (r *memLotRepo) restore(snap map[string]entity.StockLot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots = make(map[string]*entity.StockLot, len(snap))
	for id, l := range snap {
		cp := l
		r.lots[id] = &cp
	}
}

type memMovementRepo struct {
	mu        sync.Mutex
	movements []*entity.StockMovement
}

func (r *memMovementRepo) Create(m *entity.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *memMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memMovementRepo) ListByReference(companyID, reference string) ([]*entity.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range r.movements {
		if m.CompanyID == companyID && m.Reference == reference {
			cp := *m
			out = append(out, &cp)
		}
	}
	// Mismo orden que el adaptador SQL: created_at ASC, id ASC.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memMovementRepo) ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range r.movements {
		if m.ProductID != productID {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && m.CreatedAt.After(*to) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memMovementRepo) ListByLot(lotID string, limit, offset int) ([]*entity.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range r.movements {
		if m.LotID != nil && *m.LotID == lotID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memMovementRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.movements)
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]*entity.Product
}

func newMemProductRepo(products ...*entity.Product) *memProductRepo {
	r := &memProductRepo{products: make(map[string]*entity.Product)}
	for _, p := range products {
		cp := *p
		r.products[p.ID] = &cp
	}
	return r
}

func (r *memProductRepo) Create(p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memProductRepo) GetByID(id string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) GetByCompanyAndSKU(companyID, sku string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.CompanyID == companyID && p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memProductRepo) Update(p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memProductRepo) UpdateCost(productID string, cost decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[productID]; ok {
		p.Cost = cost
	}
	return nil
}

func (r *memProductRepo) ListByCompany(companyID string, limit, offset int) ([]*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Product
	for _, p := range r.products {
		if p.CompanyID == companyID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memWarehouseRepo struct {
	warehouses map[string]*entity.Warehouse
}

func newMemWarehouseRepo(whs ...*entity.Warehouse) *memWarehouseRepo {
	r := &memWarehouseRepo{warehouses: make(map[string]*entity.Warehouse)}
	for _, w := range whs {
		cp := *w
		r.warehouses[w.ID] = &cp
	}
	return r
}

func (r *memWarehouseRepo) Create(w *entity.Warehouse) error {
	cp := *w
	r.warehouses[w.ID] = &cp
	return nil
}

func (r *memWarehouseRepo) GetByID(id string) (*entity.Warehouse, error) {
	w, ok := r.warehouses[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *memWarehouseRepo) Update(w *entity.Warehouse) error { return r.Create(w) }

func (r *memWarehouseRepo) ListByCompany(companyID string, limit, offset int) ([]*entity.Warehouse, error) {
	var out []*entity.Warehouse
	for _, w := range r.warehouses {
		if w.CompanyID == companyID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memWarehouseRepo) Delete(id string) error {
	delete(r.warehouses, id)
	return nil
}

// rollbackTxRunner emula la frontera transaccional: toma una instantánea de
// los lotes y movimientos antes de ejecutar fn y la restaura si fn falla.
// Solo es válido en tests secuenciales (una instantánea global no compone
// con transacciones concurrentes).
type rollbackTxRunner struct {
	lots *memLotRepo
	movs *memMovementRepo
	prds *memProductRepo
}

func (tx *rollbackTxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.StockLotRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	lotSnap := tx.lots.snapshot()
	tx.movs.mu.Lock()
	movSnap := len(tx.movs.movements)
	tx.movs.mu.Unlock()

	if err := fn(tx.lots, tx.movs, tx.prds); err != nil {
		tx.lots.restore(lotSnap)
		tx.movs.mu.Lock()
		tx.movs.movements = tx.movs.movements[:movSnap]
		tx.movs.mu.Unlock()
		return err
	}
	return nil
}

// directTxRunner pasa los repos sin frontera transaccional. Para el test
// concurrente: ahí lo que se verifica es el decremento condicional, y las
// asignaciones fallidas no alcanzan a decrementar nada que revertir.
type directTxRunner struct {
	lots *memLotRepo
	movs *memMovementRepo
	prds *memProductRepo
}

func (tx *directTxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.StockLotRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	return fn(tx.lots, tx.movs, tx.prds)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCompanyID   = "11111111-1111-1111-1111-111111111111"
	testProductID   = "22222222-2222-2222-2222-222222222222"
	testWarehouseID = "33333333-3333-3333-3333-333333333333"
	testActorID     = "44444444-4444-4444-4444-444444444444"
)

func dateAt(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func testProduct() *entity.Product {
	return &entity.Product{
		ID:          testProductID,
		CompanyID:   testCompanyID,
		SKU:         "SKU-001",
		Name:        "Leche entera 1L",
		Cost:        decimal.Zero,
		UnitMeasure: "94",
		Perishable:  true,
	}
}

func testWarehouse() *entity.Warehouse {
	return &entity.Warehouse{
		ID:        testWarehouseID,
		CompanyID: testCompanyID,
		Name:      "Bodega principal",
	}
}

func testLot(id, code string, expiry *time.Time, quantity int64) *entity.StockLot {
	return &entity.StockLot{
		ID:             id,
		CompanyID:      testCompanyID,
		ProductID:      testProductID,
		WarehouseID:    testWarehouseID,
		LotCode:        code,
		ExpiryDate:     expiry,
		QuantityOnHand: qty(quantity),
		UnitCost:       decimal.NewFromInt(3500),
	}
}

func exitInput(quantity int64) inventory.AllocateInput {
	return inventory.AllocateInput{
		CompanyID:   testCompanyID,
		ProductID:   testProductID,
		WarehouseID: testWarehouseID,
		Quantity:    qty(quantity),
		ActorID:     testActorID,
		Reference:   "PED-0001",
	}
}

func buildAllocator(lots *memLotRepo, movs *memMovementRepo) (*inventory.FEFOAllocator, *memProductRepo) {
	products := newMemProductRepo(testProduct())
	warehouses := newMemWarehouseRepo(testWarehouse())
	tx := &rollbackTxRunner{lots: lots, movs: movs, prds: products}
	return inventory.NewFEFOAllocator(tx, products, warehouses, inventory.DefaultAllocatorConfig()), products
}

// ──────────────────────────────────────────────────────────────────────────────
// Asignación FEFO: casos funcionales
// ──────────────────────────────────────────────────────────────────────────────

// Dos lotes (vence 2026-06-01 con 100, vence 2026-09-01 con 50) y una salida
// de 120: debe drenar el primero completo y tomar 20 del segundo.
func TestAllocate_RepartoEntreDosLotesEnOrdenDeVencimiento(t *testing.T) {
	lots := newMemLotRepo(
		testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 100),
		testLot("lot-b", "LOT-B", dateAt(2026, time.September, 1), 50),
	)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	result, err := allocator.Allocate(context.Background(), exitInput(120))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, result.Steps, 2, "la asignación debe repartirse en dos pasos")
	assert.Equal(t, "lot-a", result.Steps[0].LotID, "el lote que vence primero sale primero")
	assert.True(t, result.Steps[0].Quantity.Equal(qty(100)), "el primer lote se drena completo")
	assert.Equal(t, "lot-b", result.Steps[1].LotID)
	assert.True(t, result.Steps[1].Quantity.Equal(qty(20)))

	assert.True(t, result.Allocated.Equal(qty(120)))
	assert.True(t, result.Remaining.IsZero())

	assert.True(t, lots.quantity(t, "lot-a").IsZero(), "lot-a debe quedar en cero")
	assert.True(t, lots.quantity(t, "lot-b").Equal(qty(30)), "lot-b debe quedar con 30")

	assert.Equal(t, 2, movs.count(), "un movimiento OUT por paso")
}

// Stock total 150 y salida de 200: condición de faltante con el hueco exacto,
// y rollback completo (el stock queda intacto, el ledger vacío).
func TestAllocate_StockInsuficienteRevierteTodo(t *testing.T) {
	lots := newMemLotRepo(
		testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 100),
		testLot("lot-b", "LOT-B", dateAt(2026, time.September, 1), 50),
	)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	result, err := allocator.Allocate(context.Background(), exitInput(200))
	require.Error(t, err)
	assert.Nil(t, result)

	assert.True(t, errors.Is(err, domain.ErrNotEnoughStock), "debe señalar faltante de stock")
	assert.True(t, errors.Is(err, domain.ErrStock), "el sentinel amplio también debe capturarlo")

	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, domain.KindNotEnoughStock, stockErr.Kind)
	assert.Equal(t, testProductID, stockErr.ProductID)
	assert.True(t, stockErr.Requested.Equal(qty(200)))
	assert.True(t, stockErr.Available.Equal(qty(150)), "lo disponible es lo que se alcanzó a asignar")

	assert.True(t, lots.quantity(t, "lot-a").Equal(qty(100)), "rollback: lot-a intacto")
	assert.True(t, lots.quantity(t, "lot-b").Equal(qty(50)), "rollback: lot-b intacto")
	assert.Equal(t, 0, movs.count(), "rollback: ledger sin movimientos")
}

// Un único lote con stock pero en cuarentena: no hay lotes elegibles.
func TestAllocate_LoteEnCuarentenaNoEsElegible(t *testing.T) {
	quarantined := testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 100)
	quarantined.Quarantined = true
	lots := newMemLotRepo(quarantined)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	_, err := allocator.Allocate(context.Background(), exitInput(10))
	require.Error(t, err)

	assert.True(t, errors.Is(err, domain.ErrNoLotsAvailable))
	assert.True(t, errors.Is(err, domain.ErrStock))

	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, domain.KindNoLotsAvailable, stockErr.Kind)

	assert.True(t, lots.quantity(t, "lot-a").Equal(qty(100)), "la cuarentena no toca la cantidad")
	assert.Equal(t, 0, movs.count())
}

// Un lote reservado tampoco es elegible aunque venza primero.
func TestAllocate_LoteReservadoSeSalta(t *testing.T) {
	reserved := testLot("lot-a", "LOT-A", dateAt(2026, time.March, 1), 100)
	reserved.Reserved = true
	lots := newMemLotRepo(
		reserved,
		testLot("lot-b", "LOT-B", dateAt(2026, time.September, 1), 50),
	)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	result, err := allocator.Allocate(context.Background(), exitInput(30))
	require.NoError(t, err)

	require.Len(t, result.Steps, 1)
	assert.Equal(t, "lot-b", result.Steps[0].LotID, "el reservado se ignora aunque venza antes")
	assert.True(t, lots.quantity(t, "lot-a").Equal(qty(100)))
	assert.True(t, lots.quantity(t, "lot-b").Equal(qty(20)))
}

// Solicitud exactamente igual a la suma disponible: éxito y todo en cero.
func TestAllocate_SumaExactaAgotaTodosLosLotes(t *testing.T) {
	lots := newMemLotRepo(
		testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 100),
		testLot("lot-b", "LOT-B", dateAt(2026, time.September, 1), 50),
	)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	result, err := allocator.Allocate(context.Background(), exitInput(150))
	require.NoError(t, err)
	assert.True(t, result.Allocated.Equal(qty(150)))
	assert.True(t, lots.quantity(t, "lot-a").IsZero())
	assert.True(t, lots.quantity(t, "lot-b").IsZero())
}

// Una unidad por encima de la suma disponible: faltante.
func TestAllocate_UnaUnidadPorEncimaDeLaSumaFalla(t *testing.T) {
	lots := newMemLotRepo(
		testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 100),
		testLot("lot-b", "LOT-B", dateAt(2026, time.September, 1), 50),
	)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	_, err := allocator.Allocate(context.Background(), exitInput(151))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotEnoughStock))
	assert.True(t, lots.quantity(t, "lot-a").Equal(qty(100)), "rollback del paso parcial")
	assert.True(t, lots.quantity(t, "lot-b").Equal(qty(50)))
}

// Lotes sin fecha de vencimiento ordenan después de cualquier lote con fecha.
func TestAllocate_LoteSinVencimientoSaleDeUltimo(t *testing.T) {
	lots := newMemLotRepo(
		testLot("lot-nofecha", "LOT-N", nil, 100),
		testLot("lot-b", "LOT-B", dateAt(2027, time.December, 31), 50),
	)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	result, err := allocator.Allocate(context.Background(), exitInput(60))
	require.NoError(t, err)

	require.Len(t, result.Steps, 2)
	assert.Equal(t, "lot-b", result.Steps[0].LotID, "con fecha sale antes que sin fecha")
	assert.Equal(t, "lot-nofecha", result.Steps[1].LotID)
	assert.True(t, result.Steps[1].Quantity.Equal(qty(10)))
}

// Mismo vencimiento: desempate determinista por id ascendente.
func TestAllocate_EmpateDeVencimientoDesempataPorID(t *testing.T) {
	sameDay := dateAt(2026, time.June, 1)
	lots := newMemLotRepo(
		testLot("lot-02", "LOT-02", sameDay, 50),
		testLot("lot-01", "LOT-01", sameDay, 50),
	)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	result, err := allocator.Allocate(context.Background(), exitInput(60))
	require.NoError(t, err)

	require.Len(t, result.Steps, 2)
	assert.Equal(t, "lot-01", result.Steps[0].LotID)
	assert.Equal(t, "lot-02", result.Steps[1].LotID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación de entrada y tenencia
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocate_CantidadNoPositivaEsInvalida(t *testing.T) {
	lots := newMemLotRepo(testLot("lot-a", "LOT-A", nil, 100))
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	for _, quantity := range []int64{0, -5} {
		_, err := allocator.Allocate(context.Background(), exitInput(quantity))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "cantidad %d debe rechazarse", quantity)
	}
	assert.Equal(t, 0, movs.count())
}

func TestAllocate_ReferenciaVaciaEsInvalida(t *testing.T) {
	lots := newMemLotRepo(testLot("lot-a", "LOT-A", nil, 100))
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	in := exitInput(10)
	in.Reference = ""
	_, err := allocator.Allocate(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAllocate_ProductoInexistenteRetornaNotFound(t *testing.T) {
	lots := newMemLotRepo()
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	in := exitInput(10)
	in.ProductID = uuid.New().String()
	_, err := allocator.Allocate(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllocate_ProductoDeOtraEmpresaRetornaForbidden(t *testing.T) {
	lots := newMemLotRepo(testLot("lot-a", "LOT-A", nil, 100))
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	in := exitInput(10)
	in.CompanyID = uuid.New().String()
	_, err := allocator.Allocate(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ──────────────────────────────────────────────────────────────────────────────
// Contenido del ledger
// ──────────────────────────────────────────────────────────────────────────────

// Cada paso debe quedar en el ledger como OUT con cantidad negativa, el costo
// del lote y la referencia de la operación.
func TestAllocate_MovimientosDelLedger(t *testing.T) {
	lotA := testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 100)
	lotA.UnitCost = decimal.NewFromInt(2000)
	lotB := testLot("lot-b", "LOT-B", dateAt(2026, time.September, 1), 50)
	lotB.UnitCost = decimal.NewFromInt(3000)
	lots := newMemLotRepo(lotA, lotB)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	result, err := allocator.Allocate(context.Background(), exitInput(120))
	require.NoError(t, err)

	recorded, err := movs.ListByReference(testCompanyID, "PED-0001")
	require.NoError(t, err)
	require.Len(t, recorded, 2)

	first := recorded[0]
	assert.Equal(t, entity.MovementTypeOUT, first.Type)
	require.NotNil(t, first.LotID)
	assert.Equal(t, "lot-a", *first.LotID)
	assert.True(t, first.Quantity.Equal(qty(-100)), "las salidas se registran en negativo")
	assert.True(t, first.UnitCost.Equal(decimal.NewFromInt(2000)), "al costo del lote, no al promedio")
	assert.Equal(t, testActorID, first.CreatedBy)

	second := recorded[1]
	require.NotNil(t, second.LotID)
	assert.Equal(t, "lot-b", *second.LotID)
	assert.True(t, second.Quantity.Equal(qty(-20)))

	// El costo total de la asignación combina ambos costos de lote.
	expected := decimal.NewFromInt(100*2000 + 20*3000)
	assert.True(t, result.TotalCost().Equal(expected))
}

// Los pasos de una misma asignación llevan timestamps estrictamente
// crecientes: leer la referencia ordenada por created_at reconstruye el
// orden FEFO exacto en que se consumieron los lotes.
func TestAllocate_LedgerReproduceElOrdenDeLosPasos(t *testing.T) {
	lots := newMemLotRepo(
		testLot("lot-c", "LOT-C", dateAt(2026, time.March, 1), 10),
		testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 10),
		testLot("lot-b", "LOT-B", dateAt(2026, time.September, 1), 10),
	)
	movs := &memMovementRepo{}
	allocator, _ := buildAllocator(lots, movs)

	_, err := allocator.Allocate(context.Background(), exitInput(30))
	require.NoError(t, err)

	recorded, err := movs.ListByReference(testCompanyID, "PED-0001")
	require.NoError(t, err)
	require.Len(t, recorded, 3)

	wantLots := []string{"lot-c", "lot-a", "lot-b"}
	for i, m := range recorded {
		require.NotNil(t, m.LotID)
		assert.Equal(t, wantLots[i], *m.LotID, "paso %d fuera de orden FEFO", i)
		if i > 0 {
			assert.True(t, recorded[i-1].CreatedAt.Before(m.CreatedAt),
				"los timestamps de los pasos deben ser estrictamente crecientes")
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Carreras sobre el decremento condicional
// ──────────────────────────────────────────────────────────────────────────────

// racingLotRepo fuerza una carrera perdida: la primera llamada a
// DecrementQuantity falla y, como un retiro competidor, reduce el lote.
type racingLotRepo struct {
	*memLotRepo
	raced     bool
	stolenQty decimal.Decimal
}

func (r *racingLotRepo) DecrementQuantity(lotID string, qty decimal.Decimal) (bool, error) {
	if !r.raced {
		r.raced = true
		// El competidor se lleva su parte antes que nosotros.
		if _, err := r.memLotRepo.DecrementQuantity(lotID, r.stolenQty); err != nil {
			return false, err
		}
		return false, nil
	}
	return r.memLotRepo.DecrementQuantity(lotID, qty)
}

// Perder la carrera no aborta la asignación: se relee la cifra vigente y se
// reintenta con el monto reducido, cubriendo el resto con el siguiente lote.
func TestAllocate_CarreraPerdidaReleeYContinua(t *testing.T) {
	base := newMemLotRepo(
		testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 100),
		testLot("lot-b", "LOT-B", dateAt(2026, time.September, 1), 50),
	)
	racing := &racingLotRepo{memLotRepo: base, stolenQty: qty(40)}
	movs := &memMovementRepo{}
	products := newMemProductRepo(testProduct())
	warehouses := newMemWarehouseRepo(testWarehouse())

	allocator := inventory.NewFEFOAllocator(
		&racingDirectTxRunner{lots: racing, movs: movs, prds: products},
		products, warehouses, inventory.DefaultAllocatorConfig(),
	)

	result, err := allocator.Allocate(context.Background(), exitInput(100))
	require.NoError(t, err)

	// El competidor se llevó 40 de lot-a; nuestra asignación toma los 60
	// restantes y 40 de lot-b.
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "lot-a", result.Steps[0].LotID)
	assert.True(t, result.Steps[0].Quantity.Equal(qty(60)), "reintento con el monto releído")
	assert.Equal(t, "lot-b", result.Steps[1].LotID)
	assert.True(t, result.Steps[1].Quantity.Equal(qty(40)))
	assert.True(t, result.Allocated.Equal(qty(100)))

	assert.True(t, base.quantity(t, "lot-a").IsZero())
	assert.True(t, base.quantity(t, "lot-b").Equal(qty(10)))
}

type racingDirectTxRunner struct {
	lots *racingLotRepo
	movs *memMovementRepo
	prds *memProductRepo
}

func (tx *racingDirectTxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.StockLotRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	return fn(tx.lots, tx.movs, tx.prds)
}

// 15 retiros concurrentes de 10 unidades contra un único lote de 100: deben
// tener éxito exactamente 10; los 5 restantes fallan con condición de stock y
// el lote termina en cero, nunca negativo.
func TestAllocate_RetirosConcurrentesNuncaSobregiran(t *testing.T) {
	lots := newMemLotRepo(testLot("lot-a", "LOT-A", dateAt(2026, time.June, 1), 100))
	movs := &memMovementRepo{}
	products := newMemProductRepo(testProduct())
	warehouses := newMemWarehouseRepo(testWarehouse())
	tx := &directTxRunner{lots: lots, movs: movs, prds: products}
	allocator := inventory.NewFEFOAllocator(tx, products, warehouses, inventory.DefaultAllocatorConfig())

	const withdrawals = 15
	var wg sync.WaitGroup
	errs := make([]error, withdrawals)
	results := make([]*entity.AllocationResult, withdrawals)

	for i := 0; i < withdrawals; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = allocator.Allocate(context.Background(), exitInput(10))
		}(i)
	}
	wg.Wait()

	var ok, failed int
	totalAllocated := decimal.Zero
	for i := 0; i < withdrawals; i++ {
		if errs[i] == nil {
			ok++
			require.NotNil(t, results[i])
			totalAllocated = totalAllocated.Add(results[i].Allocated)
		} else {
			failed++
			// El perdedor tardío puede ver el lote ya en cero (sin lotes) o
			// encontrarlo a mitad de camino (insuficiente); ambos son
			// condiciones de stock.
			assert.True(t, errors.Is(errs[i], domain.ErrStock),
				"los fallos deben ser condiciones de stock, no errores de infraestructura: %v", errs[i])
		}
	}

	assert.Equal(t, 10, ok, "con 100 unidades y retiros de 10, exactamente 10 tienen éxito")
	assert.Equal(t, 5, failed)
	assert.True(t, totalAllocated.Equal(qty(100)), "lo asignado en total es exactamente el stock inicial")

	final := lots.quantity(t, "lot-a")
	assert.True(t, final.IsZero(), "el lote termina exactamente en cero, quedó %s", final)
	assert.False(t, final.IsNegative(), "el lote jamás queda negativo")
}
