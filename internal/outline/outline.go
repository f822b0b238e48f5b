// Package outline derives tree structure from a page's flat, order-sorted todo list.
//
// The list is authoritative: each todo carries an explicit level, and parents, siblings
// and blocks (a todo plus its contiguous deeper run) are computed from position alone.
package outline

import (
	"errors"
	"fmt"

	"daylist-cli/internal/model"
)

var (
	ErrDuplicateOrder = errors.New("duplicate order key")
	ErrUnsorted       = errors.New("todos not sorted by order key")
	ErrOrphan         = errors.New("todo has no parent at level-1")
	ErrTooDeep        = errors.New("todo level out of range")
)

// ParentIndex returns the index of items[i]'s parent, or -1 for roots and orphans.
//
// The scan walks backward to the first item shallower than items[i]; that item is the
// parent only when it sits exactly one level up. Anything else means a gap (orphan).
func ParentIndex(items []*model.Todo, i int) int {
	if i <= 0 || i >= len(items) {
		return -1
	}
	lvl := items[i].Level
	if lvl <= 0 {
		return -1
	}
	for j := i - 1; j >= 0; j-- {
		if items[j].Level < lvl {
			if items[j].Level == lvl-1 {
				return j
			}
			return -1
		}
	}
	return -1
}

// Parents computes ParentIndex for every item in one pass.
func Parents(items []*model.Todo) []int {
	out := make([]int, len(items))
	// stack[d] is the index of the most recent item at level d.
	var stack []int
	for i, it := range items {
		lvl := it.Level
		for len(stack) > 0 && items[stack[len(stack)-1]].Level >= lvl {
			stack = stack[:len(stack)-1]
		}
		out[i] = -1
		if lvl > 0 && len(stack) > 0 && items[stack[len(stack)-1]].Level == lvl-1 {
			out[i] = stack[len(stack)-1]
		}
		stack = append(stack, i)
	}
	return out
}

// Ancestors returns the parent chain of items[i], nearest first.
func Ancestors(items []*model.Todo, i int) []int {
	var out []int
	for p := ParentIndex(items, i); p >= 0; p = ParentIndex(items, p) {
		out = append(out, p)
	}
	return out
}

// BlockEnd returns the last index of the block rooted at i: the maximal run after i
// whose items are all deeper than items[i].
func BlockEnd(items []*model.Todo, i int) int {
	if i < 0 || i >= len(items) {
		return i
	}
	j := i
	for j+1 < len(items) && items[j+1].Level > items[i].Level {
		j++
	}
	return j
}

// MaxRelativeDepth is the deepest level offset below items[i] within [i, j].
func MaxRelativeDepth(items []*model.Todo, i, j int) int {
	max := 0
	for k := i + 1; k <= j && k < len(items); k++ {
		if d := items[k].Level - items[i].Level; d > max {
			max = d
		}
	}
	return max
}

// Siblings returns the indexes of items sharing items[i]'s parent and level, in order
// (items[i] included).
func Siblings(items []*model.Todo, i int) []int {
	if i < 0 || i >= len(items) {
		return nil
	}
	parents := Parents(items)
	var out []int
	for k := range items {
		if parents[k] == parents[i] && items[k].Level == items[i].Level {
			out = append(out, k)
		}
	}
	return out
}

// Validate checks the order and depth-parent invariants of a sorted page.
func Validate(items []*model.Todo) error {
	seen := map[string]string{}
	for i, it := range items {
		if it.Level < 0 || it.Level > model.MaxDepth {
			return fmt.Errorf("%w: %s at level %d", ErrTooDeep, it.ID, it.Level)
		}
		if other, ok := seen[it.Order]; ok {
			return fmt.Errorf("%w: %q (%s, %s)", ErrDuplicateOrder, it.Order, other, it.ID)
		}
		seen[it.Order] = it.ID
		if i > 0 && !(items[i-1].Order < it.Order) {
			return fmt.Errorf("%w: %s before %s", ErrUnsorted, items[i-1].ID, it.ID)
		}
		if it.Level > 0 && ParentIndex(items, i) < 0 {
			return fmt.Errorf("%w: %s at level %d", ErrOrphan, it.ID, it.Level)
		}
	}
	return nil
}

// Repair clamps every level into [0, min(prev.Level+1, MaxDepth)], which removes orphans
// while keeping relative structure where possible. It returns the touched indexes.
func Repair(items []*model.Todo) []int {
	var touched []int
	for i, it := range items {
		max := model.MaxDepth
		if i == 0 {
			max = 0
		} else if p := items[i-1].Level + 1; p < max {
			max = p
		}
		lvl := it.Level
		if lvl > max {
			lvl = max
		}
		if lvl < 0 {
			lvl = 0
		}
		if lvl != it.Level {
			it.Level = lvl
			touched = append(touched, i)
		}
	}
	return touched
}

// AssignParentIDs recomputes ParentID for every item and returns the indexes that changed.
func AssignParentIDs(items []*model.Todo) []int {
	parents := Parents(items)
	var changed []int
	for i, it := range items {
		var next *string
		if parents[i] >= 0 {
			pid := items[parents[i]].ID
			next = &pid
		}
		if !sameParent(it.ParentID, next) {
			it.ParentID = next
			changed = append(changed, i)
		}
	}
	return changed
}

func sameParent(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// IndexOf returns the position of id in items, or -1.
func IndexOf(items []*model.Todo, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
