package engine

import "fmt"

// ToStorageIndex maps a public row index to its slot in the generated-row
// list. Row 1 is the first generated row; rows <= 0 are the implicit safe
// strip and have no slot.
func ToStorageIndex(row int) int {
	return row - 1
}

// Timeline is the append-only sequence of generated rows. It keeps a live
// window of rows starting at first; rows evicted from the window are
// regenerated on demand and returned frozen until Readmit brings them back.
type Timeline struct {
	gen          *RowGenerator
	batchSize    int
	retainBehind int

	rows      []Row // rows[i].Index == first+i
	first     int
	generated int
}

// NewTimeline creates an empty timeline. retainBehind <= 0 keeps every row.
func NewTimeline(gen *RowGenerator, batchSize, retainBehind int) *Timeline {
	return &Timeline{
		gen:          gen,
		batchSize:    batchSize,
		retainBehind: retainBehind,
		first:        1,
	}
}

// Generated returns the number of rows generated so far (the highest index)
func (t *Timeline) Generated() int {
	return t.generated
}

// Retained returns the number of rows in the live window
func (t *Timeline) Retained() int {
	return len(t.rows)
}

// EnsureAhead appends one batch when currentRow is within lookahead rows of
// the end of the timeline. It reports whether a batch was appended.
func (t *Timeline) EnsureAhead(currentRow, lookahead int) (bool, error) {
	if currentRow <= t.generated-lookahead {
		return false, nil
	}
	if err := t.appendBatch(); err != nil {
		return false, err
	}
	return true, nil
}

// EnsureCovers appends batches until row has been generated
func (t *Timeline) EnsureCovers(row int) error {
	for t.generated < row {
		if err := t.appendBatch(); err != nil {
			return err
		}
	}
	return nil
}

// appendBatch generates batchSize rows and appends them all, or none
func (t *Timeline) appendBatch() error {
	batch := make([]Row, 0, t.batchSize)
	for i := 1; i <= t.batchSize; i++ {
		row, err := t.gen.Generate(t.generated + i)
		if err != nil {
			return fmt.Errorf("timeline batch: %w", err)
		}
		batch = append(batch, row)
	}
	t.rows = append(t.rows, batch...)
	t.generated += len(batch)
	return nil
}

func (t *Timeline) slot(row int) int {
	return ToStorageIndex(row) - ToStorageIndex(t.first)
}

// RowAt returns the row at a public index. It returns false for the safe
// strip (index <= 0) and for rows not generated yet.
func (t *Timeline) RowAt(index int) (*Row, bool) {
	if index <= 0 || index > t.generated {
		return nil, false
	}
	if index < t.first {
		row, err := t.gen.Generate(index)
		if err != nil {
			return nil, false
		}
		row.Frozen = true
		return &row, true
	}
	return &t.rows[t.slot(index)], true
}

// Prune evicts rows more than retainBehind rows behind currentRow
func (t *Timeline) Prune(currentRow int) int {
	if t.retainBehind <= 0 {
		return 0
	}
	keepFrom := currentRow - t.retainBehind
	if keepFrom <= t.first {
		return 0
	}
	n := t.slot(keepFrom)
	if n > len(t.rows) {
		n = len(t.rows)
	}
	t.rows = append([]Row(nil), t.rows[n:]...)
	t.first += n
	return n
}

// Readmit regenerates the evicted rows from row up to the live window and
// puts them back into it, so traffic on them is simulated again. Readmitted
// rows restart from their generated offsets. It returns the number of rows
// readmitted.
func (t *Timeline) Readmit(row int) (int, error) {
	if row < 1 {
		row = 1
	}
	if row >= t.first {
		return 0, nil
	}
	back := make([]Row, 0, t.first-row)
	for i := row; i < t.first; i++ {
		r, err := t.gen.Generate(i)
		if err != nil {
			return 0, fmt.Errorf("timeline readmit: %w", err)
		}
		back = append(back, r)
	}
	t.rows = append(back, t.rows...)
	t.first = row
	return len(back), nil
}

// Rows returns copies of the rows in [from, to], clamped to what exists
func (t *Timeline) Rows(from, to int) []Row {
	if from < 1 {
		from = 1
	}
	if to > t.generated {
		to = t.generated
	}
	var out []Row
	for i := from; i <= to; i++ {
		if row, ok := t.RowAt(i); ok {
			out = append(out, row.clone())
		}
	}
	return out
}

// live returns the window the traffic step simulates
func (t *Timeline) live() []Row {
	return t.rows
}
