package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enroll-data/footfall.report/internal/predict"
	"github.com/enroll-data/footfall.report/internal/schema"
)

func sampleForecast() predict.RangeForecast {
	days := []predict.Prediction{
		{Pincode: "110001", Date: "2025-06-02", Footfall: 250},
		{Pincode: "110001", Date: "2025-06-03", Footfall: 230},
		{Pincode: "110001", Date: "2025-06-04", Footfall: 220},
	}
	return predict.RangeForecast{
		Pincode: "110001", Days: days, Total: 700, Mean: 700.0 / 3,
		Peak: days[0], Low: days[2],
	}
}

func sampleHistory(n int) []schema.Record {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	records := make([]schema.Record, n)
	for i := range records {
		records[i] = schema.Record{
			Date: start.AddDate(0, 0, i), Pincode: "110001", Footfall: float64(200 + i),
			District: "Central Delhi", State: "Delhi", CenterType: schema.CenterUrban,
		}
	}
	return records
}

func TestRenderForecastBar(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderForecastBar(&buf, sampleForecast()))
	html := buf.String()
	assert.Contains(t, html, "110001")
	assert.Contains(t, html, "2025-06-02")
	assert.Contains(t, html, "predicted footfall")
}

func TestRenderComparisonSkipsFailures(t *testing.T) {
	t.Parallel()

	items := []predict.ComparisonItem{
		{Pincode: "110001", Footfall: 250},
		{Pincode: "400001", Footfall: 180},
		{Pincode: "999999", Error: "unknown pincode"},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderComparison(&buf, "2025-06-02", items))
	html := buf.String()
	assert.Contains(t, html, "110001")
	assert.Contains(t, html, "400001")
	assert.False(t, strings.Contains(html, "999999"), "failed pincode must not chart")
}

func TestRenderTrend(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderTrend(&buf, "110001", sampleHistory(10), sampleForecast()))
	html := buf.String()
	assert.Contains(t, html, "observed")
	assert.Contains(t, html, "forecast")
}

func TestSaveTrendPNG(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trend.png")
	require.NoError(t, SaveTrendPNG(path, "110001", sampleHistory(10), sampleForecast()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, SaveTrendPNG(path, "110001", nil, predict.RangeForecast{}))
}
