package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestPrinter(t *testing.T) (Printer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
	var out, errOut bytes.Buffer
	return New(&out, &errOut), &out, &errOut
}

func TestMessages(t *testing.T) {
	p, out, errOut := newTestPrinter(t)
	p.Success("seeded %d doctors", 5)
	p.Step("opening store")
	p.Info("plain %s", "line")
	p.Warning("cache disabled")

	assert.Equal(t, "✓ seeded 5 doctors\n→ opening store\nplain line\n", out.String())
	assert.Equal(t, "! cache disabled\n", errOut.String())
}

func TestKeyValuesAligned(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	p.KeyValues(map[string]string{"driver": "sqlite", "schema": "3"})
	assert.Equal(t, "  driver: sqlite\n  schema: 3\n", out.String())

	out.Reset()
	p.KeyValues(map[string]string{"a": "1", "long": "2"})
	assert.Equal(t, "  a:    1\n  long: 2\n", out.String())
}

func TestErrorSuggestions(t *testing.T) {
	p, _, errOut := newTestPrinter(t)
	err := p.Error("store unavailable", "could not open clinicstaff.db", "check --sqlite-path", "use --storage memory")
	assert.EqualError(t, err, "store unavailable")
	assert.Equal(t, "store unavailable\n\ncould not open clinicstaff.db\n\nEither:\n  1. check --sqlite-path\n  2. use --storage memory\n", errOut.String())

	errOut.Reset()
	_ = p.Error("bad flag", "", "run clinicstaff --help")
	assert.Equal(t, "bad flag\n\nrun clinicstaff --help\n", errOut.String())
}
