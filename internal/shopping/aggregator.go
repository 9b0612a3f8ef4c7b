package shopping

import (
	"sort"

	"github.com/shopspring/decimal"
)

type demandKey struct {
	ingredientID int64
	unitID       int64
}

// ComputeShortfalls nets a week's ingredient demand against current pantry
// supply and returns the strictly positive gaps.
//
// Demand is accumulated per (ingredient, unit) pair exactly as the recipe
// pivots specify it; supply is accumulated per ingredient across all units.
// The asymmetry means a unit-mismatched pantry row still counts toward
// availability. There is no conversion table, so this cannot be "fixed" here
// without inventing one; callers relying on mixed units get the inherited
// behavior.
//
// Output is ordered by ingredient id, then unit id, so two runs over the same
// state produce identical item sequences.
func ComputeShortfalls(demand []DemandRow, supply []SupplyRow) []Shortfall {
	needed := make(map[demandKey]decimal.Decimal)
	for _, d := range demand {
		k := demandKey{d.IngredientID, d.UnitID}
		needed[k] = needed[k].Add(d.Quantity)
	}

	available := make(map[int64]decimal.Decimal)
	for _, s := range supply {
		available[s.IngredientID] = available[s.IngredientID].Add(s.Quantity)
	}

	shortfalls := make([]Shortfall, 0, len(needed))
	for k, n := range needed {
		gap := n.Sub(available[k.ingredientID])
		if gap.Sign() > 0 {
			shortfalls = append(shortfalls, Shortfall{
				IngredientID: k.ingredientID,
				UnitID:       k.unitID,
				Quantity:     gap,
			})
		}
	}

	sort.Slice(shortfalls, func(i, j int) bool {
		if shortfalls[i].IngredientID != shortfalls[j].IngredientID {
			return shortfalls[i].IngredientID < shortfalls[j].IngredientID
		}
		return shortfalls[i].UnitID < shortfalls[j].UnitID
	})
	return shortfalls
}
