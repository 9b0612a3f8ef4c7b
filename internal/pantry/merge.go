package pantry

import "github.com/shopspring/decimal"

// MergePlan describes how to collapse duplicate pantry rows: each surviving
// row that absorbed duplicates gets a new quantity, and every absorbed row is
// deleted. Applying the plan and re-planning yields an empty plan.
type MergePlan struct {
	// Updates maps surviving row id to its summed quantity. Rows without
	// duplicates do not appear.
	Updates map[int64]decimal.Decimal
	// Deletes lists the absorbed row ids.
	Deletes []int64
	// Groups is the number of distinct identity tuples seen.
	Groups int
}

// PlanMerge groups items by their identity tuple, keeping the first row of
// each group and summing the rest into it. Input order decides which row
// survives.
func PlanMerge(items []Item) MergePlan {
	plan := MergePlan{Updates: make(map[int64]decimal.Decimal)}
	first := make(map[Key]int64)
	totals := make(map[int64]decimal.Decimal)

	for _, it := range items {
		k := KeyOf(it)
		if keeper, ok := first[k]; ok {
			totals[keeper] = totals[keeper].Add(it.Quantity)
			plan.Deletes = append(plan.Deletes, it.ID)
			plan.Updates[keeper] = totals[keeper]
		} else {
			first[k] = it.ID
			totals[it.ID] = it.Quantity
		}
	}

	plan.Groups = len(first)
	return plan
}
