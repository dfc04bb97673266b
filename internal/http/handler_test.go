package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate-resolver/internal/domain/plate"
	"plate-resolver/internal/repository"
	"plate-resolver/internal/service"
)

const testSecret = "test-secret"

type memStore struct {
	cars       map[int64]repository.Car
	lastFilter plate.CarFilter
	lastUpdate plate.CarUpdate
}

func (m *memStore) GetCar(_ context.Context, id int64) (*repository.Car, error) {
	c, ok := m.cars[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memStore) ListCars(_ context.Context, f plate.CarFilter) ([]repository.Car, error) {
	m.lastFilter = f
	out := make([]repository.Car, 0, len(m.cars))
	for _, c := range m.cars {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) FirstLocation(context.Context) (*plate.Location, error) {
	return &plate.Location{Latitude: 37.33, Longitude: -121.89}, nil
}

func (m *memStore) DistinctMakes(context.Context) ([]string, error) {
	return []string{"Honda", "Toyota"}, nil
}

func (m *memStore) DistinctModels(_ context.Context, carMake string) ([]string, error) {
	if carMake == "Honda" {
		return []string{"Accord", "Civic"}, nil
	}
	return nil, nil
}

func (m *memStore) DistinctYears(context.Context) ([]int, error) { return nil, nil }

func (m *memStore) UpdateCar(_ context.Context, id int64, u plate.CarUpdate) (int64, error) {
	m.lastUpdate = u
	if _, ok := m.cars[id]; !ok {
		return 0, nil
	}
	return 1, nil
}

func (m *memStore) DeleteCar(_ context.Context, id int64) (int64, error) {
	if _, ok := m.cars[id]; !ok {
		return 0, nil
	}
	delete(m.cars, id)
	return 1, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memStore{cars: map[int64]repository.Car{
		1: {ID: 1, LicensePlate: "7ABC123", State: "CA", Success: true},
	}}
	h := NewHandler(service.NewCarService(store, zerolog.Nop()), zerolog.Nop())
	r := NewRouter(RouterConfig{JWTSecret: testSecret}, h, zerolog.Nop())
	return r, store
}

func signToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func do(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListCarsPassesFilters(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/cars?make=Honda&license_plate=7abc&start_year=2015&success=true&limit=20&offset=5", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []service.CarInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "7ABC123", resp.Data[0].LicensePlate)

	assert.Equal(t, "Honda", store.lastFilter.Make)
	assert.Equal(t, "7ABC", store.lastFilter.Plate)
	assert.Equal(t, 2015, *store.lastFilter.StartYear)
	assert.True(t, *store.lastFilter.Success)
	assert.Equal(t, 20, store.lastFilter.Limit)
	assert.Equal(t, 5, store.lastFilter.Offset)
}

func TestListCarsBadFilter(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/api/v1/cars?start_date=yesterday", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "start_date")
}

func TestGetCar(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/cars/1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"license_plate":"7ABC123"`)

	w = do(r, http.MethodGet, "/api/v1/cars/42", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/cars/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLookupLists(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/cars/first-location", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"latitude":37.33,"longitude":-121.89}}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/makes", "", "")
	assert.JSONEq(t, `{"data":["Honda","Toyota"]}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/models?make=Honda", "", "")
	assert.JSONEq(t, `{"data":["Accord","Civic"]}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/years", "", "")
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestUpdateCarRequiresToken(t *testing.T) {
	r, store := newTestRouter(t)
	body := `{"license_plate":"7abc-124","make":"Honda"}`

	w := do(r, http.MethodPut, "/api/v1/cars/1", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPut, "/api/v1/cars/1", body, signToken(t, "wrong", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPut, "/api/v1/cars/1", body, signToken(t, testSecret, time.Now().Add(-time.Minute)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPut, "/api/v1/cars/1", body, signToken(t, testSecret, time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7ABC124", *store.lastUpdate.LicensePlate)
	assert.Equal(t, "Honda", *store.lastUpdate.Make)
}

func TestUpdateCarValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	token := signToken(t, testSecret, time.Now().Add(time.Hour))

	w := do(r, http.MethodPut, "/api/v1/cars/1", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/v1/cars/1", `{"year":`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/v1/cars/9", `{"year":2019}`, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCar(t *testing.T) {
	r, store := newTestRouter(t)
	token := signToken(t, testSecret, time.Now().Add(time.Hour))

	w := do(r, http.MethodDelete, "/api/v1/cars/1", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.cars)

	w = do(r, http.MethodDelete, "/api/v1/cars/1", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthMiddlewareWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", AuthMiddleware(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/x", "", signToken(t, "anything", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "abc", extractToken("Bearer abc"))
	assert.Equal(t, "abc", extractToken("bearer abc"))
	assert.Equal(t, "", extractToken("Basic abc"))
	assert.Equal(t, "", extractToken("abc"))
}
