// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package csvstore

import (
	ferrors "grimm.is/firelet/internal/errors"
)

// Table is an ordered, index-addressable collection of rows of one entity
// kind: load from the repository, iterate in order, insert/delete at a
// position, reorder by adjacent swap.
type Table[T any] struct {
	Rows     []T
	comments []string
}

// Len returns the number of rows.
func (t *Table[T]) Len() int { return len(t.Rows) }

// Get returns the row at i.
func (t *Table[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(t.Rows) {
		return zero, ferrors.Errorf(ferrors.KindOutOfRange, "index %d out of range (len %d)", i, len(t.Rows))
	}
	return t.Rows[i], nil
}

// Insert places row at position i, shifting subsequent rows down. i ==
// Len() appends.
func (t *Table[T]) Insert(i int, row T) error {
	if i < 0 || i > len(t.Rows) {
		return ferrors.Errorf(ferrors.KindOutOfRange, "insert index %d out of range (len %d)", i, len(t.Rows))
	}
	t.Rows = append(t.Rows, row)
	copy(t.Rows[i+1:], t.Rows[i:])
	t.Rows[i] = row
	return nil
}

// Delete removes the row at position i.
func (t *Table[T]) Delete(i int) error {
	if i < 0 || i >= len(t.Rows) {
		return ferrors.Errorf(ferrors.KindOutOfRange, "delete index %d out of range (len %d)", i, len(t.Rows))
	}
	t.Rows = append(t.Rows[:i], t.Rows[i+1:]...)
	return nil
}

// Swap exchanges the rows at i and j; used to move a row up or down one
// position at a time.
func (t *Table[T]) Swap(i, j int) error {
	if i < 0 || i >= len(t.Rows) || j < 0 || j >= len(t.Rows) {
		return ferrors.Errorf(ferrors.KindOutOfRange, "swap indices (%d, %d) out of range (len %d)", i, j, len(t.Rows))
	}
	t.Rows[i], t.Rows[j] = t.Rows[j], t.Rows[i]
	return nil
}

// MoveUp swaps row i with its predecessor.
func (t *Table[T]) MoveUp(i int) error {
	if i <= 0 {
		return ferrors.Errorf(ferrors.KindOutOfRange, "cannot move row %d up", i)
	}
	return t.Swap(i, i-1)
}

// MoveDown swaps row i with its successor.
func (t *Table[T]) MoveDown(i int) error {
	if i < 0 || i >= len(t.Rows)-1 {
		return ferrors.Errorf(ferrors.KindOutOfRange, "cannot move row %d down", i)
	}
	return t.Swap(i, i+1)
}
