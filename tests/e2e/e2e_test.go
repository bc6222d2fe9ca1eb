//go:build integration

package e2e

// End-to-end integration tests for DistriPOS using real Postgres + Redis via
// testcontainers. Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   - Full cycle: login → producto → despacho → venta → confirmar → depósito
//   - Idempotent sale creation (codigo_unico replay → 200)
//   - Dispatch double-confirmation applies stock exactly once
//   - Cancellation restores city stock
//   - Settlement exclusivity (one sale, one deposit)

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"distripos/internal/config"
	"distripos/internal/infra"
	"distripos/internal/model"
	"distripos/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("distripos_test"),
		tcPostgres.WithUsername("distripos"),
		tcPostgres.WithPassword("distripos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     1,
		PDFStoragePath:     t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	require.NoError(t, infra.RunMigrations(db))

	// Seed admin user
	hash, err := bcrypt.GenerateFromPassword([]byte("distripos2026"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := model.Usuario{
		Username:     "admin@e2e.test",
		Nombre:       "Admin E2E",
		PasswordHash: string(hash),
		Rol:          "administrador",
		Activo:       true,
	}
	require.NoError(t, db.Create(&admin).Error)

	waCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	r := router.New(cfg, db, rdb, waCB)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin@e2e.test", "password": "distripos2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken}
}

// crearProducto registers a catalog entry and returns its id.
func crearProducto(t *testing.T, env *testEnv, sku string, stockCentral int) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/productos",
		jsonBody(t, map[string]any{
			"sku":            sku,
			"nombre":         "Producto " + sku,
			"precio_venta":   45.50,
			"costo_unitario": 20.00,
			"stock_central":  stockCentral,
		}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prod struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &prod)
	return prod.ID
}

// despacharStock creates + confirms a dispatch so the city has stock to sell.
func despacharStock(t *testing.T, env *testEnv, ciudad, sku string, cantidad int) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/despachos",
		jsonBody(t, map[string]any{
			"ciudad": ciudad,
			"fecha":  "2026-03-10",
			"items":  []map[string]any{{"sku": sku, "cantidad": cantidad}},
		}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var despacho struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &despacho)

	confirmResp := do(t, env.server, "POST", "/v1/despachos/"+despacho.ID+"/confirmar", nil, env.token)
	require.Equal(t, http.StatusOK, confirmResp.StatusCode)
	confirmResp.Body.Close()
	return despacho.ID
}

// stockDeCelda reads the city listing (uncached) so asserts right after a
// write never see a stale cell.
func stockDeCelda(t *testing.T, env *testEnv, ciudad, sku string) int {
	t.Helper()
	resp := do(t, env.server, "GET", fmt.Sprintf("/v1/stock/%s", ciudad), nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listado struct {
		Celdas []struct {
			Sku      string `json:"sku"`
			Cantidad int    `json:"cantidad"`
		} `json:"celdas"`
	}
	decodeJSON(t, resp, &listado)
	for _, celda := range listado.Celdas {
		if celda.Sku == sku {
			return celda.Cantidad
		}
	}
	return 0
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_CicloCompletoVentaYDeposito(t *testing.T) {
	env := setupTestEnv(t)

	crearProducto(t, env, "CAFE-1KG", 500)
	despacharStock(t, env, "sucre", "CAFE-1KG", 100)
	require.Equal(t, 100, stockDeCelda(t, env, "sucre", "CAFE-1KG"))

	// Register sale
	ventaResp := do(t, env.server, "POST", "/v1/ventas",
		jsonBody(t, map[string]any{
			"codigo_unico": "VTA-E2E-0001",
			"fecha":        "2026-03-15",
			"ciudad":       "sucre",
			"sku":          "CAFE-1KG",
			"cantidad":     3,
			"precio":       136.50,
			"gasto":        10.00,
		}), env.token)
	require.Equal(t, http.StatusCreated, ventaResp.StatusCode)
	var venta struct {
		ID            string `json:"id"`
		EstadoEntrega string `json:"estado_entrega"`
		Total         string `json:"total"`
	}
	decodeJSON(t, ventaResp, &venta)
	assert.Equal(t, "pendiente", venta.EstadoEntrega)
	assert.Equal(t, "126.5", venta.Total)

	// Confirm: city stock drops
	confirmResp := do(t, env.server, "POST", "/v1/ventas/"+venta.ID+"/confirmar", nil, env.token)
	require.Equal(t, http.StatusOK, confirmResp.StatusCode)
	confirmResp.Body.Close()
	assert.Equal(t, 97, stockDeCelda(t, env, "sucre", "CAFE-1KG"))

	// Open deposit, settle the sale, confirm
	depResp := do(t, env.server, "POST", "/v1/depositos",
		jsonBody(t, map[string]any{
			"ciudad":      "sucre",
			"fecha":       "2026-03-15",
			"codigo_lote": "LOTE-E2E-0001",
		}), env.token)
	require.Equal(t, http.StatusCreated, depResp.StatusCode)
	var deposito struct {
		ID string `json:"id"`
	}
	decodeJSON(t, depResp, &deposito)

	addResp := do(t, env.server, "POST", "/v1/depositos/"+deposito.ID+"/ventas",
		jsonBody(t, map[string]any{"codigo_unico": "VTA-E2E-0001"}), env.token)
	require.Equal(t, http.StatusOK, addResp.StatusCode)
	var depConVenta struct {
		Total string `json:"total"`
	}
	decodeJSON(t, addResp, &depConVenta)
	assert.Equal(t, "126.5", depConVenta.Total)

	confirmDepResp := do(t, env.server, "POST", "/v1/depositos/"+deposito.ID+"/confirmar", nil, env.token)
	require.Equal(t, http.StatusOK, confirmDepResp.StatusCode)
	confirmDepResp.Body.Close()

	// Settled sale left the receivables list
	pendResp := do(t, env.server, "GET", "/v1/ventas/pendientes?ciudad=sucre", nil, env.token)
	require.Equal(t, http.StatusOK, pendResp.StatusCode)
	var pendientes struct {
		Total int64 `json:"total"`
	}
	decodeJSON(t, pendResp, &pendientes)
	assert.Equal(t, int64(0), pendientes.Total)
}

func TestE2E_VentaIdempotentePorCodigoUnico(t *testing.T) {
	env := setupTestEnv(t)
	crearProducto(t, env, "TE-500G", 100)

	body := map[string]any{
		"codigo_unico": "VTA-E2E-DUP",
		"fecha":        "2026-03-15",
		"ciudad":       "sucre",
		"sku":          "TE-500G",
		"cantidad":     1,
		"precio":       30.00,
	}

	primera := do(t, env.server, "POST", "/v1/ventas", jsonBody(t, body), env.token)
	require.Equal(t, http.StatusCreated, primera.StatusCode)
	var v1 struct {
		ID string `json:"id"`
	}
	decodeJSON(t, primera, &v1)

	// Replay returns the stored sale with 200, never a duplicate
	segunda := do(t, env.server, "POST", "/v1/ventas", jsonBody(t, body), env.token)
	require.Equal(t, http.StatusOK, segunda.StatusCode)
	var v2 struct {
		ID string `json:"id"`
	}
	decodeJSON(t, segunda, &v2)
	assert.Equal(t, v1.ID, v2.ID)
}

func TestE2E_DespachoDobleConfirmacion(t *testing.T) {
	env := setupTestEnv(t)
	crearProducto(t, env, "CAFE-1KG", 500)

	despachoID := despacharStock(t, env, "tarija", "CAFE-1KG", 30)
	require.Equal(t, 30, stockDeCelda(t, env, "tarija", "CAFE-1KG"))

	// Retried confirmation is a no-op
	resp := do(t, env.server, "POST", "/v1/despachos/"+despachoID+"/confirmar", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 30, stockDeCelda(t, env, "tarija", "CAFE-1KG"))
}

func TestE2E_CancelacionRestauraStock(t *testing.T) {
	env := setupTestEnv(t)
	crearProducto(t, env, "CAFE-1KG", 500)
	despacharStock(t, env, "sucre", "CAFE-1KG", 50)

	ventaResp := do(t, env.server, "POST", "/v1/ventas",
		jsonBody(t, map[string]any{
			"codigo_unico": "VTA-E2E-CANCEL",
			"fecha":        "2026-03-15",
			"ciudad":       "sucre",
			"sku":          "CAFE-1KG",
			"cantidad":     5,
			"precio":       227.50,
		}), env.token)
	require.Equal(t, http.StatusCreated, ventaResp.StatusCode)
	var venta struct {
		ID string `json:"id"`
	}
	decodeJSON(t, ventaResp, &venta)

	confirmResp := do(t, env.server, "POST", "/v1/ventas/"+venta.ID+"/confirmar", nil, env.token)
	require.Equal(t, http.StatusOK, confirmResp.StatusCode)
	confirmResp.Body.Close()
	require.Equal(t, 45, stockDeCelda(t, env, "sucre", "CAFE-1KG"))

	cancelResp := do(t, env.server, "POST", "/v1/ventas/"+venta.ID+"/cancelar",
		jsonBody(t, map[string]any{
			"motivo":            "cliente rechazó el pedido",
			"gasto_cancelacion": 12.00,
		}), env.token)
	require.Equal(t, http.StatusOK, cancelResp.StatusCode)
	var cancelada struct {
		EstadoEntrega string `json:"estado_entrega"`
		EstadoPago    string `json:"estado_pago"`
		Total         string `json:"total"`
	}
	decodeJSON(t, cancelResp, &cancelada)
	assert.Equal(t, "cancelado", cancelada.EstadoEntrega)
	assert.Equal(t, "cancelado", cancelada.EstadoPago)
	assert.Equal(t, "215.5", cancelada.Total)

	assert.Equal(t, 50, stockDeCelda(t, env, "sucre", "CAFE-1KG"))
}

func TestE2E_VentaEnUnSoloDeposito(t *testing.T) {
	env := setupTestEnv(t)
	crearProducto(t, env, "CAFE-1KG", 100)

	ventaResp := do(t, env.server, "POST", "/v1/ventas",
		jsonBody(t, map[string]any{
			"codigo_unico": "VTA-E2E-EXCL",
			"fecha":        "2026-03-15",
			"ciudad":       "sucre",
			"sku":          "CAFE-1KG",
			"cantidad":     1,
			"precio":       45.50,
		}), env.token)
	require.Equal(t, http.StatusCreated, ventaResp.StatusCode)
	ventaResp.Body.Close()

	crearDeposito := func(lote string) string {
		resp := do(t, env.server, "POST", "/v1/depositos",
			jsonBody(t, map[string]any{"ciudad": "sucre", "fecha": "2026-03-15", "codigo_lote": lote}), env.token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var d struct {
			ID string `json:"id"`
		}
		decodeJSON(t, resp, &d)
		return d.ID
	}

	primero := crearDeposito("LOTE-E2E-A")
	segundo := crearDeposito("LOTE-E2E-B")

	addResp := do(t, env.server, "POST", "/v1/depositos/"+primero+"/ventas",
		jsonBody(t, map[string]any{"codigo_unico": "VTA-E2E-EXCL"}), env.token)
	require.Equal(t, http.StatusOK, addResp.StatusCode)
	addResp.Body.Close()

	// Re-adding to the same deposit is a no-op, another deposit is a conflict
	reAdd := do(t, env.server, "POST", "/v1/depositos/"+primero+"/ventas",
		jsonBody(t, map[string]any{"codigo_unico": "VTA-E2E-EXCL"}), env.token)
	assert.Equal(t, http.StatusOK, reAdd.StatusCode)
	reAdd.Body.Close()

	otroResp := do(t, env.server, "POST", "/v1/depositos/"+segundo+"/ventas",
		jsonBody(t, map[string]any{"codigo_unico": "VTA-E2E-EXCL"}), env.token)
	assert.Equal(t, http.StatusConflict, otroResp.StatusCode)
	otroResp.Body.Close()
}
