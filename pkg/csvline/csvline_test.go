package csvline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/cellbind/pkg/config"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"quoted delimiter", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"escaped quote", `a,"b""c",d`, []string{"a", `b"c`, "d"}},
		{"empty middle", "a,,c", []string{"a", "", "c"}},
		{"empty quoted", `"",x`, []string{"", "x"}},
		{"trailing empty dropped", "a,b,", []string{"a", "b"}},
		{"leading empty", ",b", []string{"", "b"}},
		{"only quoted", `"hello, world"`, []string{"hello, world"}},
		{"empty line", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.line, ','))
		})
	}
}

func TestSplitCustomDelimiter(t *testing.T) {
	assert.Equal(t, []string{"a", "b,c", "d;e"}, Split(`a;b,c;"d;e"`, ';'))
	assert.Equal(t, []string{"x", "y"}, Split("x\ty", '\t'))
}

func TestUnwrap(t *testing.T) {
	assert.Equal(t, "abc", Unwrap(`"abc"`))
	assert.Equal(t, "", Unwrap(`""`))
	assert.Equal(t, `"`, Unwrap(`"`))
	assert.Equal(t, `"abc`, Unwrap(`"abc`))
	assert.Equal(t, "plain", Unwrap("plain"))
}

func TestClassifier(t *testing.T) {
	opts := config.NewOptions()
	opts.HeaderStart = 1
	opts.HeaderCount = 2
	opts.Skip = 1
	opts.Limit = 2
	c := NewClassifier(opts)

	assert.Equal(t, RowSkipped, c.Classify(0))
	assert.Equal(t, RowHeader, c.Classify(1))
	assert.Equal(t, RowHeader, c.Classify(2))
	assert.Equal(t, RowSkipped, c.Classify(3))
	assert.Equal(t, RowData, c.Classify(4))
	assert.Equal(t, 2, c.LastHeaderRow())

	c.Accept()
	assert.Equal(t, RowData, c.Classify(5))
	c.Accept()
	assert.Equal(t, RowDone, c.Classify(6))
	assert.Equal(t, 2, c.Emitted())
}

func TestClassifierWithoutHeader(t *testing.T) {
	opts := config.NewOptions()
	opts.HeaderCount = 0
	c := NewClassifier(opts)

	assert.Equal(t, RowData, c.Classify(0))
	assert.Equal(t, -1, c.LastHeaderRow())
	assert.Equal(t, "data", c.Classify(0).String())
}
