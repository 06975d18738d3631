package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fapac/materiais-bff/app/aps"
	"github.com/fapac/materiais-bff/models"
)

// --- Mock Provider ---

type MockMaterialsRepo struct {
	Materials []models.Material
}

func (m *MockMaterialsRepo) List(_ context.Context) ([]models.Material, error) {
	return m.Materials, nil
}

func (m *MockMaterialsRepo) Get(_ context.Context, id string) (*models.Material, error) {
	for _, mat := range m.Materials {
		if mat.ID == id {
			return &mat, nil
		}
	}
	return nil, &models.NotFoundError{ID: id}
}

func (m *MockMaterialsRepo) Create(_ context.Context, input models.MaterialInput) (*models.Material, error) {
	return &models.Material{ID: "recNew", Name: input.Name}, nil
}

func (m *MockMaterialsRepo) Remove(_ context.Context, _ string) error {
	return nil
}

func testOptions() RouterOptions {
	return RouterOptions{
		Materials: &MockMaterialsRepo{Materials: []models.Material{
			{ID: "rec1", Name: "Tijolo", Category: "Estrutura"},
			{ID: "rec2", Name: "Pinho", Category: "Madeira"},
		}},
	}
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouterRoutes(t *testing.T) {
	testCases := []struct {
		name               string
		method             string
		target             string
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:               "Health",
			method:             http.MethodGet,
			target:             "/health",
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp HealthResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "active", resp.Status)
				assert.NotEmpty(t, resp.Timestamp)
			},
		},
		{
			name:               "Metrics",
			method:             http.MethodGet,
			target:             "/metrics",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Materials list",
			method:             http.MethodGet,
			target:             "/api/materiais",
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp struct {
					OK    bool `json:"ok"`
					Count int  `json:"count"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.True(t, resp.OK)
				assert.Equal(t, 2, resp.Count)
			},
		},
		{
			name:               "Categories",
			method:             http.MethodGet,
			target:             "/api/categories",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Audit disabled",
			method:             http.MethodGet,
			target:             "/api/audit",
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name:               "APS routes absent without credentials",
			method:             http.MethodGet,
			target:             "/api/auth/login",
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name:               "Unknown route",
			method:             http.MethodGet,
			target:             "/api/nothing",
			expectedStatusCode: http.StatusNotFound,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"ok":false,"error":"Route not found"}`, rec.Body.String())
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := Router(testOptions())

			rec := serve(router, tc.method, tc.target)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
		})
	}
}

func TestRouterErrorEnvelopeWithStaticFiles(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>catálogo</h1>"), 0o644))

	testCases := []struct {
		name               string
		method             string
		target             string
		expectedStatusCode int
		expectedBody       string
	}{
		{
			name:               "Unknown API path",
			method:             http.MethodGet,
			target:             "/api/nope",
			expectedStatusCode: http.StatusNotFound,
			expectedBody:       `{"ok":false,"error":"Route not found"}`,
		},
		{
			name:               "API root",
			method:             http.MethodGet,
			target:             "/api",
			expectedStatusCode: http.StatusNotFound,
			expectedBody:       `{"ok":false,"error":"Route not found"}`,
		},
		{
			name:               "Wrong method on the collection",
			method:             http.MethodDelete,
			target:             "/api/materiais",
			expectedStatusCode: http.StatusMethodNotAllowed,
			expectedBody:       `{"ok":false,"error":"Method not allowed"}`,
		},
		{
			name:               "Wrong method on categories",
			method:             http.MethodPost,
			target:             "/api/categories",
			expectedStatusCode: http.StatusMethodNotAllowed,
			expectedBody:       `{"ok":false,"error":"Method not allowed"}`,
		},
	}

	opts := testOptions()
	opts.StaticDir = static

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := Router(opts)

			rec := serve(router, tc.method, tc.target)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tc.expectedBody, rec.Body.String())
		})
	}

	t.Run("Front end still served", func(t *testing.T) {
		rec := serve(Router(opts), http.MethodGet, "/")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "catálogo")
	})
}

func TestRouterCORS(t *testing.T) {
	router := Router(testOptions())
	req := httptest.NewRequest(http.MethodOptions, "/api/materiais", nil)
	req.Header.Set("Origin", "http://viewer.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterRateLimit(t *testing.T) {
	opts := testOptions()
	opts.RateLimitPerMinute = 2
	router := Router(opts)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "/health").Code)
}

func TestRouterOptionalMounts(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>catálogo</h1>"), 0o644))

	opts := testOptions()
	opts.StaticDir = static
	opts.ModelsDir = filepath.Join(static, "models")
	opts.APS = aps.NewHandler(aps.NewClient(aps.Config{ClientID: "id"}, nil), aps.NewMemoryStore(), false)
	router := Router(opts)

	t.Run("Static front end", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "catálogo")
	})

	t.Run("IFC listing", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/ifc/files")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("APS login", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/auth/login")

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "client_id=id")
	})
}
