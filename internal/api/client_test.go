package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enroll-data/footfall.report/internal/httputil"
)

func TestClientPredictDay(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().AddResponse(200,
		`{"pincode":"110001","date":"2025-06-02","predicted_footfall":245}`)
	c := NewClient("http://localhost:8080/", mock)

	p, err := c.PredictDay("110001", "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, 245, p.Footfall)

	require.Equal(t, 1, mock.RequestCount())
	req := mock.Requests[0]
	assert.Equal(t, "/api/predict", req.URL.Path)
	assert.Equal(t, "110001", req.URL.Query().Get("pincode"))
	assert.Equal(t, "2025-06-02", req.URL.Query().Get("date"))
}

func TestClientRangeRouting(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().
		AddResponse(200, `{"pincode":"110001","days":[]}`).
		AddResponse(200, `{"pincode":"110001","days":[]}`)
	c := NewClient("http://localhost:8080", mock)

	_, err := c.PredictWeek("110001", "2025-06-02")
	require.NoError(t, err)
	_, err = c.PredictMonth("110001", "2025-06")
	require.NoError(t, err)

	assert.Equal(t, "/api/predict/week", mock.Requests[0].URL.Path)
	assert.Equal(t, "/api/predict/month", mock.Requests[1].URL.Path)
	assert.Equal(t, "2025-06", mock.Requests[1].URL.Query().Get("month"))
}

func TestClientCompare(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().AddResponse(200,
		`{"date":"2025-06-02","items":[{"pincode":"110001","predicted_footfall":245}]}`)
	c := NewClient("http://localhost:8080", mock)

	result, err := c.Compare([]string{"110001", "400001"}, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "110001,400001", mock.Requests[0].URL.Query().Get("pincodes"))
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().AddResponse(404, `{"error":"unknown pincode: 999999"}`)
	c := NewClient("http://localhost:8080", mock)

	_, err := c.PredictDay("999999", "2025-06-02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pincode")
	assert.Contains(t, err.Error(), "404")
}

func TestClientSurfacesTransportErrors(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().AddErrorResponse(errors.New("connection refused"))
	c := NewClient("http://localhost:8080", mock)

	_, err := c.Pincodes()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
