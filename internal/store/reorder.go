package store

import (
	"errors"
	"sort"
	"strings"

	"daylist-cli/internal/model"
)

// KeyPlan describes the order key updates needed to place a contiguous run of todos.
// OrderByID includes only todos whose keys should change.
type KeyPlan struct {
	OrderByID    map[string]string
	WindowIDs    []string // IDs whose keys were (re)assigned in the fallback path (in final order)
	UsedFallback bool
}

// SortTodos sorts todos in place: order key (lexicographic), then CreatedAt, then ID.
func SortTodos(todos []*model.Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		return compareTodos(todos[i], todos[j]) < 0
	})
}

func compareTodos(a, b *model.Todo) int {
	ra := strings.TrimSpace(a.Order)
	rb := strings.TrimSpace(b.Order)
	if ra != rb {
		// Missing keys sort first so legacy rows surface instead of vanishing at the end.
		if ra == "" {
			return -1
		}
		if rb == "" {
			return 1
		}
		if ra < rb {
			return -1
		}
		return 1
	}
	// Deterministic tie-break: equal keys must still produce a stable ordering between reads.
	if a.CreatedAt.Before(b.CreatedAt) {
		return -1
	}
	if a.CreatedAt.After(b.CreatedAt) {
		return 1
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}

// PlanBlockKeys plans order keys for final[start : start+n], a run that has just been
// placed into the final sequence (every other todo keeps its position).
//
// Behavior:
//   - Prefer assigning fresh keys to the run only, between its immediate neighbors.
//   - If the neighbor bounds are not usable (duplicate keys, prefix-adjacent legacy keys),
//     rebalance keys for the smallest contiguous window around the run that yields valid
//     outer bounds.
func PlanBlockKeys(final []*model.Todo, start, n int) (KeyPlan, error) {
	if n <= 0 {
		return KeyPlan{OrderByID: map[string]string{}}, nil
	}
	if start < 0 || start+n > len(final) {
		return KeyPlan{}, errors.New("block out of range")
	}
	end := start + n - 1

	excl := map[string]bool{}
	for i := start; i <= end; i++ {
		excl[final[i].ID] = true
	}
	existing := existingKeysExcluding(final, excl)

	lower, upper := outerBounds(final, start, end)
	if keys, err := KeysBetween(lower, upper, n); err == nil && !anyTaken(existing, keys) {
		plan := KeyPlan{OrderByID: map[string]string{}}
		for i, k := range keys {
			t := final[start+i]
			if normalizeRank(t.Order) != k {
				plan.OrderByID[t.ID] = k
			}
		}
		return plan, nil
	}

	lo, hi := minimalValidWindow(final, start, end)
	lower, upper = outerBounds(final, lo, hi)

	excl = map[string]bool{}
	for i := lo; i <= hi; i++ {
		excl[final[i].ID] = true
	}
	existing = existingKeysExcluding(final, excl)

	plan := KeyPlan{
		OrderByID:    map[string]string{},
		WindowIDs:    make([]string, 0, hi-lo+1),
		UsedFallback: true,
	}
	curLower := lower
	for i := lo; i <= hi; i++ {
		r, err := KeyBetweenUnique(existing, curLower, upper)
		if err != nil {
			return KeyPlan{}, err
		}
		existing[r] = true
		plan.OrderByID[final[i].ID] = r
		plan.WindowIDs = append(plan.WindowIDs, final[i].ID)
		curLower = r
	}
	return plan, nil
}

// AppendKeys returns n ascending keys that sort after every key in todos.
func AppendKeys(todos []*model.Todo, n int) ([]string, error) {
	last := ""
	for _, t := range todos {
		if k := normalizeRank(t.Order); k > last {
			last = k
		}
	}
	return KeysBetween(last, "", n)
}

func outerBounds(final []*model.Todo, lo, hi int) (lower, upper string) {
	if lo > 0 {
		lower = normalizeRank(final[lo-1].Order)
	}
	if hi+1 < len(final) {
		upper = normalizeRank(final[hi+1].Order)
	}
	return lower, upper
}

func existingKeysExcluding(todos []*model.Todo, excludeIDs map[string]bool) map[string]bool {
	existing := map[string]bool{}
	for _, t := range todos {
		if t == nil || excludeIDs[t.ID] {
			continue
		}
		if k := normalizeRank(t.Order); k != "" {
			existing[k] = true
		}
	}
	return existing
}

func anyTaken(existing map[string]bool, keys []string) bool {
	for _, k := range keys {
		if existing[k] {
			return true
		}
	}
	return false
}

// minimalValidWindow finds the smallest window [lo, hi] containing [start, end] whose outer
// bounds are open-ended or strictly increasing with room between them. Growth alternates
// right then left so displaced neighbors after the run are preferred.
func minimalValidWindow(final []*model.Todo, start, end int) (lo, hi int) {
	valid := func(lo, hi int) bool {
		lower, upper := outerBounds(final, lo, hi)
		if checkRank(lower) != nil || checkRank(upper) != nil {
			return false
		}
		if upper == "" {
			return true
		}
		if !(lower < upper) {
			return false
		}
		_, err := KeysBetween(lower, upper, hi-lo+1)
		return err == nil
	}

	lo, hi = start, end
	for {
		if valid(lo, hi) {
			return lo, hi
		}
		if lo == 0 && hi == len(final)-1 {
			return lo, hi
		}
		if hi < len(final)-1 {
			hi++
			if valid(lo, hi) {
				return lo, hi
			}
		}
		if lo > 0 {
			lo--
		}
	}
}
