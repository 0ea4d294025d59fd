package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/fsutil"
	"github.com/enroll-data/footfall.report/internal/model"
	"github.com/enroll-data/footfall.report/internal/obsdb"
	"github.com/enroll-data/footfall.report/internal/predict"
	"github.com/enroll-data/footfall.report/internal/schema"
)

var apiStart = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *obsdb.DB) {
	t.Helper()

	db, err := obsdb.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	seed := func(pincode, district, state string, level float64) {
		records := make([]schema.Record, 0, 120)
		for i := 0; i < 120; i++ {
			date := apiStart.AddDate(0, 0, i)
			footfall := level
			if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				footfall = level * 0.6
			}
			records = append(records, schema.Record{
				Date: date, Pincode: pincode, Footfall: footfall,
				District: district, State: state, CenterType: schema.CenterUrban,
			})
		}
		require.NoError(t, db.InsertBatch(records))
	}
	seed("110001", "Central Delhi", "Delhi", 250)
	seed("400001", "Mumbai City", "Maharashtra", 150)

	store, err := model.NewStore("models", fsutil.NewMemoryFileSystem())
	require.NoError(t, err)

	cal := features.DefaultCalendar()
	params := model.Params{Rounds: 80}
	bundle, _, err := predict.Retrain(db, cal, params, store)
	require.NoError(t, err)

	return NewServer(db, predict.NewPredictor(bundle), store, cal, params), db
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, req)
	return w
}

func TestPredictEndpoint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/predict?pincode=110001&date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)

	var p predict.Prediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "110001", p.Pincode)
	assert.Equal(t, "2025-06-02", p.Date)
	assert.GreaterOrEqual(t, p.Footfall, 0)
}

func TestPredictValidation(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/predict")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/predict?pincode=110001&date=junk")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodPost, "/api/predict?pincode=110001")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestPredictUnknownPincodeIs404(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/predict?pincode=999999&date=2025-06-02")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown pincode")
}

func TestWeekAndMonthEndpoints(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/predict/week?pincode=110001&start=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)
	var week predict.RangeForecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &week))
	assert.Len(t, week.Days, 7)

	w = doRequest(t, s, http.MethodGet, "/api/predict/month?pincode=110001&month=2025-06")
	require.Equal(t, http.StatusOK, w.Code)
	var month predict.RangeForecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &month))
	assert.Len(t, month.Days, 30)

	w = doRequest(t, s, http.MethodGet, "/api/predict/month?pincode=110001&month=June")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompareEndpoint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/compare?pincodes=110001,400001,999999&date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Date  string                   `json:"date"`
		Items []predict.ComparisonItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Items, 3)
	assert.Empty(t, result.Items[0].Error)
	assert.Empty(t, result.Items[1].Error)
	assert.NotEmpty(t, result.Items[2].Error)

	w = doRequest(t, s, http.MethodGet, "/api/compare?date=2025-06-02")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPincodesEndpoint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/pincodes")
	require.Equal(t, http.StatusOK, w.Code)

	var pincodes []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pincodes))
	assert.Equal(t, []string{"110001", "400001"}, pincodes)
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.EqualValues(t, 240, status["observations"])
	assert.EqualValues(t, 39, status["features"])
	assert.Equal(t, "2025-01-06", status["first_date"])
}

func TestRetrainEndpointSwapsModel(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)

	// New observations between trainings.
	records := make([]schema.Record, 0, 40)
	for i := 0; i < 40; i++ {
		records = append(records, schema.Record{
			Date: apiStart.AddDate(0, 0, 120+i), Pincode: "110001", Footfall: 300,
			District: "Central Delhi", State: "Delhi", CenterType: schema.CenterUrban,
		})
	}
	require.NoError(t, db.InsertBatch(records))

	w := doRequest(t, s, http.MethodPost, "/api/retrain")
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		ArtifactID string        `json:"artifact_id"`
		Metrics    model.Metrics `json:"metrics"`
		Rows       int           `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ArtifactID)
	assert.Greater(t, result.Rows, 0)

	runs, err := db.RecentRuns(5)
	require.NoError(t, err)
	require.NotEmpty(t, runs)
	assert.Equal(t, "retrain", runs[0].Stage)
	assert.NotNil(t, runs[0].FinishedAt)

	w = doRequest(t, s, http.MethodGet, "/api/retrain")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestChartEndpoints(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/charts/forecast?pincode=110001&start=2025-06-02&days=7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "110001")

	w = doRequest(t, s, http.MethodGet, "/charts/compare?pincodes=110001,400001&date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/charts/trend?pincode=110001&start=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "observed") && strings.Contains(body, "forecast"))

	w = doRequest(t, s, http.MethodGet, "/charts/forecast?pincode=110001&days=huge")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
