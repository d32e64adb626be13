package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

const openMeteoBody = `{
	"latitude": 38.72,
	"longitude": -9.14,
	"current_weather": {"temperature": 21.4, "windspeed": 12.1, "winddirection": 310, "weathercode": 2, "is_day": 1, "time": "2026-10-17T10:00"}
}`

func newWeatherUpstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("current_weather"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestCurrentWeather(t *testing.T) {
	srv, calls := newWeatherUpstream(t, http.StatusOK, openMeteoBody)
	svc := NewWeatherService(config.WeatherConfig{BaseURL: srv.URL}, srv.Client(), zap.NewNop())

	w, err := svc.CurrentWeather(context.Background(), 38.7223, -9.1393)
	require.NoError(t, err)

	assert.Equal(t, 21.4, w.Temperature)
	assert.Equal(t, 2, w.WeatherCode)
	assert.Equal(t, "Partly cloudy", w.Description)
	assert.True(t, w.IsDay)
	assert.Equal(t, time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), w.ObservedAt)

	_, err = svc.CurrentWeather(context.Background(), 38.7201, -9.1402)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCurrentWeatherRejectsBadCoordinates(t *testing.T) {
	svc := NewWeatherService(config.WeatherConfig{BaseURL: "http://unused"}, nil, zap.NewNop())
	_, err := svc.CurrentWeather(context.Background(), 91, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCurrentWeatherUpstreamBadRequest(t *testing.T) {
	srv, _ := newWeatherUpstream(t, http.StatusBadRequest, `{"error":true,"reason":"Latitude must be in range"}`)
	svc := NewWeatherService(config.WeatherConfig{BaseURL: srv.URL}, srv.Client(), zap.NewNop())

	_, err := svc.CurrentWeather(context.Background(), 10, 10)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestWeatherHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, _ := newWeatherUpstream(t, http.StatusOK, openMeteoBody)
	h := NewWeatherHandlers(NewWeatherService(config.WeatherConfig{BaseURL: srv.URL}, srv.Client(), zap.NewNop()), zap.NewNop())
	r := gin.New()
	r.GET("/api/weather", h.CurrentWeather)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/weather?lat=38.72&lng=-9.14", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got models.CurrentWeather
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 21.4, got.Temperature)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/weather?lat=abc&lng=1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDescribeWeatherCode(t *testing.T) {
	assert.Equal(t, "Clear sky", describeWeatherCode(0))
	assert.Equal(t, "Rain", describeWeatherCode(63))
	assert.Equal(t, "Thunderstorm", describeWeatherCode(99))
}
