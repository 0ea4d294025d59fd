// Package api exposes the forecast service over HTTP: single-day, weekly and
// monthly predictions, multi-center comparison, chart rendering, and
// retraining.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/httputil"
	"github.com/enroll-data/footfall.report/internal/model"
	"github.com/enroll-data/footfall.report/internal/monitoring"
	"github.com/enroll-data/footfall.report/internal/obsdb"
	"github.com/enroll-data/footfall.report/internal/predict"
	"github.com/enroll-data/footfall.report/internal/report"
	"github.com/enroll-data/footfall.report/internal/schema"
	"github.com/enroll-data/footfall.report/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves forecasts from the predictor's current artifact bundle and
// retrains against the observation store.
type Server struct {
	db        *obsdb.DB
	predictor *predict.Predictor
	store     *model.Store
	cal       *features.Calendar
	params    model.Params
}

// NewServer wires the API against the store, predictor, and training
// configuration.
func NewServer(db *obsdb.DB, predictor *predict.Predictor, store *model.Store,
	cal *features.Calendar, params model.Params) *Server {
	return &Server{db: db, predictor: predictor, store: store, cal: cal, params: params}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/predict", s.predictDay)
	mux.HandleFunc("/api/predict/week", s.predictWeek)
	mux.HandleFunc("/api/predict/month", s.predictMonth)
	mux.HandleFunc("/api/compare", s.compare)
	mux.HandleFunc("/api/pincodes", s.listPincodes)
	mux.HandleFunc("/api/status", s.status)
	mux.HandleFunc("/api/retrain", s.retrain)
	mux.HandleFunc("/charts/forecast", s.chartForecast)
	mux.HandleFunc("/charts/compare", s.chartCompare)
	mux.HandleFunc("/charts/trend", s.chartTrend)
	return mux
}

// queryDate parses the date query param, defaulting to tomorrow.
func queryDate(r *http.Request, param string) (time.Time, error) {
	v := r.URL.Query().Get(param)
	if v == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1), nil
	}
	t, err := time.Parse(schema.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want %s", param, v, schema.DateLayout)
	}
	return t, nil
}

// writePredictErr maps prediction errors to HTTP statuses: unknown pincodes
// are the caller's problem, everything else (including artifact drift) is
// ours.
func writePredictErr(w http.ResponseWriter, err error) {
	if errors.Is(err, features.ErrUnknownPincode) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}

func (s *Server) predictDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	pincode := r.URL.Query().Get("pincode")
	if pincode == "" {
		httputil.BadRequest(w, "missing pincode parameter")
		return
	}
	date, err := queryDate(r, "date")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	prediction, err := s.predictor.Day(pincode, date)
	if err != nil {
		writePredictErr(w, err)
		return
	}
	httputil.WriteJSONOK(w, prediction)
}

func (s *Server) predictWeek(w http.ResponseWriter, r *http.Request) {
	s.predictRange(w, r, 7)
}

func (s *Server) predictMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	pincode := r.URL.Query().Get("pincode")
	if pincode == "" {
		httputil.BadRequest(w, "missing pincode parameter")
		return
	}
	month := time.Now().UTC().AddDate(0, 0, 1)
	if v := r.URL.Query().Get("month"); v != "" {
		var err error
		if month, err = time.Parse("2006-01", v); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid month %q: want YYYY-MM", v))
			return
		}
	}

	fc, err := s.predictor.Month(pincode, month.Year(), month.Month())
	if err != nil {
		writePredictErr(w, err)
		return
	}
	httputil.WriteJSONOK(w, fc)
}

func (s *Server) predictRange(w http.ResponseWriter, r *http.Request, days int) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	pincode := r.URL.Query().Get("pincode")
	if pincode == "" {
		httputil.BadRequest(w, "missing pincode parameter")
		return
	}
	start, err := queryDate(r, "start")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	fc, err := s.predictor.Range(pincode, start, days)
	if err != nil {
		writePredictErr(w, err)
		return
	}
	httputil.WriteJSONOK(w, fc)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	pincodes := splitList(r.URL.Query().Get("pincodes"))
	if len(pincodes) == 0 {
		httputil.BadRequest(w, "missing pincodes parameter (comma separated)")
		return
	}
	date, err := queryDate(r, "date")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	items, err := s.predictor.Compare(pincodes, date)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"date":  date.Format(schema.DateLayout),
		"items": items,
	})
}

func (s *Server) listPincodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	pincodes, err := s.db.Pincodes()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list pincodes: %v", err))
		return
	}
	httputil.WriteJSONOK(w, pincodes)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	count, err := s.db.Count()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	meta := s.predictor.Artifacts().Meta
	out := map[string]interface{}{
		"version":       version.String(),
		"observations":  count,
		"feature_rows":  meta.RowCount,
		"dropped_rows":  meta.Dropped,
		"features":      len(meta.FeatureNames),
		"table_built":   meta.BuiltAt,
		"warning_count": monitoring.WarningCount(),
	}
	if first, last, err := s.db.DateRange(); err == nil {
		out["first_date"] = first.Format(schema.DateLayout)
		out["last_date"] = last.Format(schema.DateLayout)
	}
	httputil.WriteJSONOK(w, out)
}

// retrain rebuilds the feature table and model from the full store and swaps
// the serving bundle. The previous bundle serves until the swap.
func (s *Server) retrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	runID, err := s.db.StartRun("retrain", "api request")
	if err != nil {
		monitoring.Warnf("record retrain run: %v", err)
	}

	bundle, art, err := predict.Retrain(s.db, s.cal, s.params, s.store)
	if err != nil {
		if runID != "" {
			s.db.FinishRun(runID)
		}
		httputil.InternalServerError(w, fmt.Sprintf("retrain: %v", err))
		return
	}
	s.predictor.Swap(bundle)
	if runID != "" {
		if err := s.db.FinishRun(runID); err != nil {
			monitoring.Warnf("record retrain finish: %v", err)
		}
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"artifact_id": art.ID,
		"metrics":     art.Metrics,
		"rows":        bundle.Meta.RowCount,
	})
}

func (s *Server) chartForecast(w http.ResponseWriter, r *http.Request) {
	pincode := r.URL.Query().Get("pincode")
	if pincode == "" {
		httputil.BadRequest(w, "missing pincode parameter")
		return
	}
	start, err := queryDate(r, "start")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		if days, err = strconv.Atoi(d); err != nil || days < 1 || days > 90 {
			httputil.BadRequest(w, "days must be an integer in [1, 90]")
			return
		}
	}

	fc, err := s.predictor.Range(pincode, start, days)
	if err != nil {
		writePredictErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderForecastBar(w, fc); err != nil {
		monitoring.Logf("render forecast chart: %v", err)
	}
}

func (s *Server) chartCompare(w http.ResponseWriter, r *http.Request) {
	pincodes := splitList(r.URL.Query().Get("pincodes"))
	if len(pincodes) == 0 {
		httputil.BadRequest(w, "missing pincodes parameter (comma separated)")
		return
	}
	date, err := queryDate(r, "date")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	items, err := s.predictor.Compare(pincodes, date)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderComparison(w, date.Format(schema.DateLayout), items); err != nil {
		monitoring.Logf("render comparison chart: %v", err)
	}
}

func (s *Server) chartTrend(w http.ResponseWriter, r *http.Request) {
	pincode := r.URL.Query().Get("pincode")
	if pincode == "" {
		httputil.BadRequest(w, "missing pincode parameter")
		return
	}
	start, err := queryDate(r, "start")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	history, err := s.db.History(pincode)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if len(history) > 90 {
		history = history[len(history)-90:]
	}

	fc, err := s.predictor.Week(pincode, start)
	if err != nil {
		writePredictErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderTrend(w, pincode, history, fc); err != nil {
		monitoring.Logf("render trend chart: %v", err)
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
