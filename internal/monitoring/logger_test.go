package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var captured []string
	SetLogger(func(format string, v ...interface{}) {
		captured = append(captured, fmt.Sprintf(format, v...))
	})

	Logf("processed %d rows", 42)
	assert.Equal(t, []string{"processed 42 rows"}, captured)

	// nil installs a no-op logger rather than panicking
	SetLogger(nil)
	Logf("should go nowhere")
	assert.Len(t, captured, 1)
}

func TestWarnfCountsWarnings(t *testing.T) {
	defer SetLogger(nil)

	var captured []string
	SetLogger(func(format string, v ...interface{}) {
		captured = append(captured, fmt.Sprintf(format, v...))
	})

	ResetWarnings()
	Warnf("short history for %s", "110001")
	Warnf("short history for %s", "400001")

	assert.Equal(t, int64(2), WarningCount())
	assert.Equal(t, "warning: short history for 110001", captured[0])

	ResetWarnings()
	assert.Equal(t, int64(0), WarningCount())
}
