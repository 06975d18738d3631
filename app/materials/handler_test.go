package materials

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fapac/materiais-bff/models"
)

// --- Mock Gateway ---

type MockMaterialsRepo struct {
	Materials []models.Material
	Err       error

	// Fields to capture call arguments
	lastCreated *models.MaterialInput
	lastGetID   string
	lastRemoved string
}

func (m *MockMaterialsRepo) List(_ context.Context) ([]models.Material, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Materials, nil
}

func (m *MockMaterialsRepo) Get(_ context.Context, id string) (*models.Material, error) {
	m.lastGetID = id
	if m.Err != nil {
		return nil, m.Err
	}
	for _, mat := range m.Materials {
		if mat.ID == id {
			found := mat
			return &found, nil
		}
	}
	return nil, &models.NotFoundError{ID: id}
}

func (m *MockMaterialsRepo) Create(_ context.Context, input models.MaterialInput) (*models.Material, error) {
	m.lastCreated = &input
	if m.Err != nil {
		return nil, m.Err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, &models.ValidationError{Field: "name", Message: "is required"}
	}
	return &models.Material{ID: "recNew", Name: input.Name, Category: input.Category}, nil
}

func (m *MockMaterialsRepo) Remove(_ context.Context, id string) error {
	m.lastRemoved = id
	return m.Err
}

// --- Mock Audit Store ---

type MockAuditStore struct {
	Entries   []models.AuditEntry
	RecordErr error
	Recorded  []*models.AuditEntry
	lastLimit int
}

func (m *MockAuditStore) Record(_ context.Context, entry *models.AuditEntry) error {
	m.Recorded = append(m.Recorded, entry)
	return m.RecordErr
}

func (m *MockAuditStore) Recent(_ context.Context, limit int) ([]models.AuditEntry, error) {
	m.lastLimit = limit
	return m.Entries, nil
}

// --- Helpers ---

func newTestRouter(repo MaterialsProvider, audit AuditStore) http.Handler {
	r := chi.NewRouter()
	NewMaterialsHandler(repo, audit).Routes(r)
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var errResp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, false, errResp["ok"])
	return errResp
}

// --- Tests ---

func TestHandleList(t *testing.T) {
	testCases := []struct {
		name               string
		mockRepoSetup      func() *MockMaterialsRepo
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "Success wraps data in the envelope",
			mockRepoSetup: func() *MockMaterialsRepo {
				return &MockMaterialsRepo{Materials: []models.Material{
					{ID: "rec1", Name: "Tijolo", Category: "Estrutura"},
					{ID: "rec2", Name: "Areia", Category: "Agregados"},
				}}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp ListResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.True(t, resp.OK)
				assert.Equal(t, 2, resp.Count)
				require.Len(t, resp.Data, 2)
				assert.Equal(t, "rec1", resp.Data[0].ID)
				assert.Equal(t, "Areia", resp.Data[1].Name)
			},
		},
		{
			name:               "Empty list is an empty array, not null",
			mockRepoSetup:      func() *MockMaterialsRepo { return &MockMaterialsRepo{} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"ok":true,"count":0,"data":[]}`, rec.Body.String())
			},
		},
		{
			name: "Upstream error keeps upstream status",
			mockRepoSetup: func() *MockMaterialsRepo {
				return &MockMaterialsRepo{Err: &models.UpstreamError{Status: http.StatusUnauthorized, Body: "bad token"}}
			},
			expectedStatusCode: http.StatusUnauthorized,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				errResp := decodeError(t, rec)
				assert.Contains(t, errResp["error"], "bad token")
			},
		},
		{
			name: "Missing configuration is a 500",
			mockRepoSetup: func() *MockMaterialsRepo {
				return &MockMaterialsRepo{Err: &models.ConfigurationError{Missing: []string{"AIRTABLE_API_TOKEN"}}}
			},
			expectedStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				errResp := decodeError(t, rec)
				assert.Equal(t, "missing configuration: AIRTABLE_API_TOKEN", errResp["error"])
			},
		},
		{
			name: "Unknown error is a 500",
			mockRepoSetup: func() *MockMaterialsRepo {
				return &MockMaterialsRepo{Err: errors.New("connection reset")}
			},
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			router := newTestRouter(tc.mockRepoSetup(), nil)
			req := httptest.NewRequest("GET", "/api/materiais", nil)
			rec := httptest.NewRecorder()

			// Act
			router.ServeHTTP(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
		})
	}
}

func TestHandleGet(t *testing.T) {
	repo := &MockMaterialsRepo{Materials: []models.Material{{ID: "rec1", Name: "Tijolo"}}}
	router := newTestRouter(repo, nil)

	t.Run("Found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/materiais/rec1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ItemResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.OK)
		assert.Equal(t, "Tijolo", resp.Data.Name)
		assert.Equal(t, "rec1", repo.lastGetID)
	})

	t.Run("Not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/materiais/rec404", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		decodeError(t, rec)
	})
}

func TestHandleCreate(t *testing.T) {
	testCases := []struct {
		name               string
		requestBody        string
		mockRepoSetup      func() *MockMaterialsRepo
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
		checkRepoCall      func(t *testing.T, repo *MockMaterialsRepo, audit *MockAuditStore)
	}{
		{
			name:               "Success",
			requestBody:        `{"name":"Tijolo","category":"Estrutura","price":"12.5","techParams":"λ 0.39"}`,
			mockRepoSetup:      func() *MockMaterialsRepo { return &MockMaterialsRepo{} },
			expectedStatusCode: http.StatusCreated,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp ItemResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.True(t, resp.OK)
				assert.Equal(t, "recNew", resp.Data.ID)
			},
			checkRepoCall: func(t *testing.T, repo *MockMaterialsRepo, audit *MockAuditStore) {
				require.NotNil(t, repo.lastCreated)
				assert.Equal(t, "Tijolo", repo.lastCreated.Name)
				assert.Equal(t, "λ 0.39", repo.lastCreated.TechParams)
				require.Len(t, audit.Recorded, 1)
				assert.Equal(t, models.AuditCreate, audit.Recorded[0].Action)
				assert.Equal(t, "recNew", audit.Recorded[0].MaterialID)
			},
		},
		{
			name:               "Invalid JSON body",
			requestBody:        `{invalid json`,
			mockRepoSetup:      func() *MockMaterialsRepo { return &MockMaterialsRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				errResp := decodeError(t, rec)
				assert.Equal(t, "Invalid JSON body", errResp["error"])
			},
			checkRepoCall: func(t *testing.T, repo *MockMaterialsRepo, audit *MockAuditStore) {
				assert.Nil(t, repo.lastCreated, "Create should not be called with invalid JSON")
				assert.Empty(t, audit.Recorded)
			},
		},
		{
			name:               "Missing name",
			requestBody:        `{"category":"Estrutura"}`,
			mockRepoSetup:      func() *MockMaterialsRepo { return &MockMaterialsRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				errResp := decodeError(t, rec)
				assert.Equal(t, "name: is required", errResp["error"])
			},
			checkRepoCall: func(t *testing.T, _ *MockMaterialsRepo, audit *MockAuditStore) {
				assert.Empty(t, audit.Recorded)
			},
		},
		{
			name:        "Upstream rejection",
			requestBody: `{"name":"Tijolo"}`,
			mockRepoSetup: func() *MockMaterialsRepo {
				return &MockMaterialsRepo{Err: &models.UpstreamError{Status: http.StatusUnprocessableEntity, Body: "INVALID_VALUE_FOR_COLUMN"}}
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockRepo := tc.mockRepoSetup()
			audit := &MockAuditStore{}
			router := newTestRouter(mockRepo, audit)
			req := httptest.NewRequest("POST", "/api/materiais", strings.NewReader(tc.requestBody))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			// Act
			router.ServeHTTP(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
			if tc.checkRepoCall != nil {
				tc.checkRepoCall(t, mockRepo, audit)
			}
		})
	}
}

func TestHandleDelete(t *testing.T) {
	testCases := []struct {
		name               string
		repoErr            error
		auditErr           error
		expectedStatusCode int
		expectedRecorded   int
	}{
		{name: "Success", expectedStatusCode: http.StatusOK, expectedRecorded: 1},
		{name: "Audit failure does not fail the request", auditErr: errors.New("db down"), expectedStatusCode: http.StatusOK, expectedRecorded: 1},
		{name: "Not found", repoErr: &models.NotFoundError{ID: "rec1"}, expectedStatusCode: http.StatusNotFound},
		{name: "Upstream error", repoErr: &models.UpstreamError{Status: http.StatusServiceUnavailable}, expectedStatusCode: http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &MockMaterialsRepo{Err: tc.repoErr}
			audit := &MockAuditStore{RecordErr: tc.auditErr}
			router := newTestRouter(repo, audit)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/materiais/rec1", nil))

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			assert.Equal(t, "rec1", repo.lastRemoved)
			assert.Len(t, audit.Recorded, tc.expectedRecorded)
			if tc.expectedStatusCode == http.StatusOK {
				var resp DeleteResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.True(t, resp.OK)
				assert.Equal(t, "rec1", resp.ID)
				assert.NotEmpty(t, resp.Message)
			}
		})
	}
}

func TestBlankIDIsValidatedByTheGateway(t *testing.T) {
	repo := &MockMaterialsRepo{Err: &models.ValidationError{Field: "id", Message: "is required"}}
	router := newTestRouter(repo, nil)

	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, httptest.NewRequest("GET", "/api/materiais/%20", nil))

	delRec := httptest.NewRecorder()
	router.ServeHTTP(delRec, httptest.NewRequest("DELETE", "/api/materiais/%20", nil))

	assert.Equal(t, http.StatusBadRequest, getRec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"id: is required"}`, getRec.Body.String())
	assert.Equal(t, " ", repo.lastGetID)
	assert.Equal(t, http.StatusBadRequest, delRec.Code)
	assert.Equal(t, " ", repo.lastRemoved)
}

func TestHandleAudit(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		router := newTestRouter(&MockMaterialsRepo{}, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/audit", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Limit is clamped", func(t *testing.T) {
		audit := &MockAuditStore{Entries: []models.AuditEntry{{Action: models.AuditDelete, MaterialID: "rec1"}}}
		router := newTestRouter(&MockMaterialsRepo{}, audit)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/audit?limit=1000", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 200, audit.lastLimit)
		var resp AuditResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 1, resp.Count)
	})
}

// TestListEndToEnd wires the real gateway to a fake Airtable server.
func TestListEndToEnd(t *testing.T) {
	airtable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/appTest/Materiais", r.URL.Path)
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[{"id":"rec1","fields":{"Nome do Material":"Tijolo","Categoria":"Estrutura"}}]}`))
	}))
	defer airtable.Close()

	gw := models.NewMaterialsGateway(models.AirtableConfig{
		APIURL: airtable.URL + "/v0",
		Token:  "pat-test",
		BaseID: "appTest",
		Table:  "Materiais",
	}, airtable.Client())
	router := newTestRouter(gw, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/materiais", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"ok": true,
		"count": 1,
		"data": [{
			"id": "rec1",
			"name": "Tijolo",
			"category": "Estrutura",
			"brand": null,
			"supplier": null,
			"price": "-",
			"description": "",
			"technicalParams": "",
			"photoUrl": null,
			"bimId": "rec1"
		}]
	}`, rec.Body.String())
}
