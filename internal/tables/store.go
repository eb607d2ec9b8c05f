package tables

import "fmt"

// Store owns the decoded raw rows until the resolution pass takes them.
// Each table can be taken exactly once.
type Store struct {
	Header Header
	Layout *Layout

	rows    [Count][]Row
	present [Count]bool
	taken   [Count]bool
}

// Rows returns the declared row count of t, even after t was taken.
func (s *Store) Rows(t Table) uint32 {
	if !t.Valid() {
		return 0
	}
	return s.Layout.Rows[t]
}

// Take detaches the rows of t, transferring ownership to the caller.
// An absent table yields nil rows. Taking a table twice is an error.
func (s *Store) Take(t Table) ([]Row, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedTable, t)
	}
	if s.taken[t] {
		return nil, fmt.Errorf("%w: %s", ErrConsumed, t)
	}
	rows := s.rows[t]
	s.rows[t] = nil
	s.taken[t] = true
	return rows, nil
}

// Taken reports whether t has been detached.
func (s *Store) Taken(t Table) bool {
	return t.Valid() && s.taken[t]
}

// Remaining lists the decoded tables that have not been taken yet.
func (s *Store) Remaining() []Table {
	var out []Table
	for i := 0; i < Count; i++ {
		if s.present[i] && !s.taken[i] {
			out = append(out, Table(i))
		}
	}
	return out
}
