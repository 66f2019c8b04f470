package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	areasvc "estate-backend/internal/application/areas"
	"estate-backend/internal/config"
	"estate-backend/internal/infrastructure/cache"
	"estate-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		Env:             "test",
		DatabaseURL:     ":memory:",
		DataEndpoint:    endpoint,
		AreaCacheTTL:    time.Hour,
		UpstreamTimeout: time.Second,
		AllowedOrigins:  []string{"*"},
		HealthAdminKey:  "admin",
	}
}

func setupApp(t *testing.T, upstream http.HandlerFunc) (*fiber.App, *redis.Client) {
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	cfg := testConfig(srv.URL)
	app := New(Deps{
		DB:          db,
		Rdb:         rdb,
		AreaCache:   &cache.Redis{Rdb: rdb, Prefix: areaKeyPrefix},
		AreaGateway: areasvc.NewHTTPGateway(srv.URL, time.Second),
		Config:      cfg,
	})
	return app, rdb
}

func TestRouter_Root(t *testing.T) {
	app, _ := setupApp(t, func(w http.ResponseWriter, r *http.Request) {})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"message":"Hello from backend!"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
}

func TestRouter_ListingRoundTrip(t *testing.T) {
	app, rdb := setupApp(t, func(w http.ResponseWriter, r *http.Request) {})

	payload := `{"title":"Nice flat","type":"rent","area":"Athens, Attica","price":"500",
"placeId":"abc123","levels":["1","2"],"bathrooms":1,"bedrooms":2,"propertyType":"apartment"}`
	req := httptest.NewRequest("POST", "/api/create-listing", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/listings", nil))
	require.NoError(t, err)
	var listings []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listings))
	require.Len(t, listings, 1)
	assert.Equal(t, "Nice flat", listings[0]["title"])

	total, err := rdb.Get(req.Context(), "health:global:req_total").Int()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRouter_FetchCachesInRedis(t *testing.T) {
	calls := 0
	app, rdb := setupApp(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["Athens"]`))
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/fetch?query=Athens", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}
	assert.Equal(t, 1, calls)

	cached, err := rdb.Get(httptest.NewRequest("GET", "/", nil).Context(), "area:athens").Result()
	require.NoError(t, err)
	assert.Equal(t, `["Athens"]`, cached)
}

func TestRouter_UnknownRoute(t *testing.T) {
	app, _ := setupApp(t, func(w http.ResponseWriter, r *http.Request) {})

	resp, err := app.Test(httptest.NewRequest("GET", "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out, "error")
}

func TestCreateApp_WithoutRedis(t *testing.T) {
	app, db, rdb, err := CreateApp(testConfig(""))
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.Nil(t, rdb)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
	deps := out["dependencies"].(map[string]interface{})
	assert.Equal(t, "disabled", deps["redis"].(map[string]interface{})["status"])
	assert.Equal(t, "not_configured", deps["upstream"].(map[string]interface{})["status"])
}
