package scheduler

import "gridloop/internal/activity"

// Rebalance rewrites rows after currentRow for a membership change. Rows at
// or before currentRow are returned untouched.
//
// One leave plus one join swaps the joiner into the leaver's future rows.
// Anything else re-tiles the future over the survivors in the order they
// were about to play, with a joiner placed ahead of the first survivor who
// already had a turn in this game.
func Rebalance(rows []string, currentRow int, change activity.Change) []string {
	out := append([]string(nil), rows...)
	start := currentRow + 1
	if start < 0 {
		start = 0
	}
	if start >= len(out) {
		return out
	}

	if len(change.Removed) == 1 && change.Added != "" {
		removed := change.Removed[0]
		for i := start; i < len(out); i++ {
			if out[i] == removed {
				out[i] = change.Added
			}
		}
		return out
	}

	active := make(map[string]bool, len(change.Active))
	for _, id := range change.Active {
		active[id] = true
	}
	order := upcomingOrder(rows, start, active)
	if change.Added != "" && !contains(order, change.Added) {
		order = insertJoiner(order, rows, currentRow, change.Added)
	}
	if len(order) == 0 {
		order = change.Active
	}
	if len(order) == 0 {
		return out
	}

	for i, j := start, 0; i < len(out); i, j = i+1, j+1 {
		out[i] = order[j%len(order)]
	}
	return out
}

// upcomingOrder scans every row starting at start, wrapping around, and
// collects each still-active owner the first time it appears
func upcomingOrder(rows []string, start int, active map[string]bool) []string {
	n := len(rows)
	seen := make(map[string]bool, n)
	var order []string
	for i := 0; i < n; i++ {
		id := rows[(start+i)%n]
		if !active[id] || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}
	return order
}

// insertJoiner places joiner before the first client in order who already
// owned a row at or before currentRow
func insertJoiner(order, rows []string, currentRow int, joiner string) []string {
	for i, id := range order {
		if first := indexOf(rows, id); first >= 0 && first <= currentRow {
			out := make([]string, 0, len(order)+1)
			out = append(out, order[:i]...)
			out = append(out, joiner)
			return append(out, order[i:]...)
		}
	}
	return append(order, joiner)
}

func indexOf(rows []string, id string) int {
	for i, r := range rows {
		if r == id {
			return i
		}
	}
	return -1
}

func contains(ids []string, id string) bool {
	return indexOf(ids, id) >= 0
}
