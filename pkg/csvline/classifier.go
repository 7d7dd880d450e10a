package csvline

import "github.com/ajitpratap0/cellbind/pkg/config"

// RowKind is the role of a row within a pass.
type RowKind int

const (
	// RowSkipped rows are read and discarded
	RowSkipped RowKind = iota
	// RowHeader rows feed header resolution
	RowHeader
	// RowData rows produce records
	RowData
	// RowDone means the limit was reached and no further row is needed
	RowDone
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowData:
		return "data"
	case RowDone:
		return "done"
	}
	return "skipped"
}

// Classifier assigns a RowKind to each row index.
type Classifier struct {
	HeaderStart int
	HeaderCount int
	Skip        int
	Limit       int

	emitted int
}

// NewClassifier builds a Classifier from pass options.
func NewClassifier(opts *config.Options) *Classifier {
	return &Classifier{
		HeaderStart: opts.HeaderStart,
		HeaderCount: opts.HeaderCount,
		Skip:        opts.Skip,
		Limit:       opts.Limit,
	}
}

// Classify returns the role of row.
func (c *Classifier) Classify(row int) RowKind {
	switch {
	case row >= c.HeaderStart && row < c.HeaderStart+c.HeaderCount:
		return RowHeader
	case row < c.Skip+c.HeaderStart+c.HeaderCount:
		return RowSkipped
	case c.Limit > 0 && c.emitted >= c.Limit:
		return RowDone
	}
	return RowData
}

// LastHeaderRow is the index of the final header row, or -1 without headers.
func (c *Classifier) LastHeaderRow() int {
	if c.HeaderCount == 0 {
		return -1
	}
	return c.HeaderStart + c.HeaderCount - 1
}

// Accept counts one emitted record against the limit.
func (c *Classifier) Accept() {
	c.emitted++
}

// Emitted returns the number of records accepted so far.
func (c *Classifier) Emitted() int {
	return c.emitted
}
