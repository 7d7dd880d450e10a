// Package pipeline drives one resolution pass: rows in, records out.
package pipeline

import (
	"reflect"
	"time"
)

// Emit receives each assembled record. Returning an error ends the pass.
type Emit func(rec reflect.Value) error

// Stats represents the counters of a finished or running pass
type Stats struct {
	RowsRead       int64 `json:"rows_read"`
	HeaderRows     int64 `json:"header_rows"`
	SkippedRows    int64 `json:"skipped_rows"`
	BlankRows      int64 `json:"blank_rows"`
	RecordsEmitted int64 `json:"records_emitted"`

	StartTime     time.Time     `json:"start_time"`
	Duration      time.Duration `json:"duration"`
	ThroughputRPS float64       `json:"throughput_rps"`
}
