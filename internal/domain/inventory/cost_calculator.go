package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
//
// El costo de los lotes no cambia nunca; este promedio es solo el costo
// contable del producto, actualizado en cada entrada.
func WeightedAverageCost(currentQty, currentCost, entryQty, entryCost decimal.Decimal) decimal.Decimal {
	sum := currentQty.Add(entryQty)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := currentQty.Mul(currentCost).Add(entryQty.Mul(entryCost))
	return num.Div(sum)
}
