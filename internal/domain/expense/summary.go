package expense

// TotalBalance sums the amounts of the given expenses. Empty input is 0.
func TotalBalance(expenses []Expense) float64 {
	var total float64

	for _, e := range expenses {
		total += e.Amount
	}

	return total
}

// GroupByCategory sums amounts per category. Categories without expenses
// are absent from the result, so empty input yields an empty map and the
// caller renders "no data" rather than a row of zeroes.
func GroupByCategory(expenses []Expense) map[Category]float64 {
	out := make(map[Category]float64, 4)

	for _, e := range expenses {
		out[e.Category] += e.Amount
	}

	return out
}
