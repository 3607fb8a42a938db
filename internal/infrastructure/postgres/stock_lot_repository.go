package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotestock/internal/domain"
	"github.com/tu-usuario/lotestock/internal/domain/entity"
	"github.com/tu-usuario/lotestock/internal/domain/repository"
)

var _ repository.StockLotRepository = (*StockLotRepo)(nil)

const lotColumns = `id, company_id, product_id, warehouse_id, lot_code, expiry_date, quantity_on_hand, unit_cost, quarantined, reserved, created_at, updated_at`

// StockLotRepo implementación del puerto StockLotRepository sobre PostgreSQL
// (usable con pool o tx).
type StockLotRepo struct {
	q Querier
}

// NewStockLotRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewStockLotRepository(q Querier) *StockLotRepo {
	return &StockLotRepo{q: q}
}

// Create persiste un lote nuevo.
func (r *StockLotRepo) Create(lot *entity.StockLot) error {
	query := `
		INSERT INTO stock_lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(context.Background(), query,
		lot.ID, lot.CompanyID, lot.ProductID, lot.WarehouseID, lot.LotCode,
		lot.ExpiryDate, lot.QuantityOnHand, lot.UnitCost, lot.Quarantined, lot.Reserved,
		lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert stock lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *StockLotRepo) GetByID(id string) (*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots WHERE id = $1`
	lot, err := scanLot(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock lot: %w", err)
	}
	return lot, nil
}

// EligibleLots devuelve los lotes elegibles en orden FEFO: vencimiento
// ascendente con nulos al final, e id ascendente como desempate determinista.
// No toma locks: el decremento condicional posterior es quien serializa.
func (r *StockLotRepo) EligibleLots(productID, warehouseID string) ([]*entity.StockLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM stock_lots
		WHERE product_id = $1 AND warehouse_id = $2
		  AND quantity_on_hand > 0 AND quarantined = false AND reserved = false
		ORDER BY expiry_date ASC NULLS LAST, id ASC`
	return r.queryLots(query, productID, warehouseID)
}

// DecrementQuantity aplica el decremento condicional atómico. Devuelve true
// solo si afectó exactamente una fila: la condición quantity_on_hand >= qty
// garantiza que el lote jamás queda negativo, sin locks de aplicación.
func (r *StockLotRepo) DecrementQuantity(lotID string, qty decimal.Decimal) (bool, error) {
	cmd, err := r.q.Exec(context.Background(), `
		UPDATE stock_lots
		SET quantity_on_hand = quantity_on_hand - $2, updated_at = now()
		WHERE id = $1 AND quantity_on_hand >= $2`,
		lotID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock lot: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// IncrementQuantity suma cantidad a un lote existente.
func (r *StockLotRepo) IncrementQuantity(lotID string, qty decimal.Decimal) (bool, error) {
	cmd, err := r.q.Exec(context.Background(), `
		UPDATE stock_lots
		SET quantity_on_hand = quantity_on_hand + $2, updated_at = now()
		WHERE id = $1`,
		lotID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("increment stock lot: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// SetQuarantine marca o desmarca la cuarentena del lote.
func (r *StockLotRepo) SetQuarantine(lotID string, quarantined bool) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE stock_lots SET quarantined = $2, updated_at = now() WHERE id = $1`,
		lotID, quarantined,
	)
	if err != nil {
		return fmt.Errorf("set quarantine: %w", err)
	}
	return nil
}

// ListByProduct devuelve todos los lotes del producto en la bodega, elegibles
// o no, en el mismo orden FEFO para consulta.
func (r *StockLotRepo) ListByProduct(productID, warehouseID string) ([]*entity.StockLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM stock_lots
		WHERE product_id = $1 AND warehouse_id = $2
		ORDER BY expiry_date ASC NULLS LAST, id ASC`
	return r.queryLots(query, productID, warehouseID)
}

func (r *StockLotRepo) queryLots(query string, args ...any) ([]*entity.StockLot, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stock lots: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock lot: %w", err)
		}
		list = append(list, lot)
	}
	return list, rows.Err()
}

func scanLot(row pgx.Row) (*entity.StockLot, error) {
	var l entity.StockLot
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.ProductID, &l.WarehouseID, &l.LotCode,
		&l.ExpiryDate, &l.QuantityOnHand, &l.UnitCost, &l.Quarantined, &l.Reserved,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
