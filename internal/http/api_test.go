package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-ledger/internal/repository/sqlite"
	"product-ledger/internal/service"
	"product-ledger/internal/storage"
)

var testSecret = []byte("api-test-secret")

func newTestRouter(t *testing.T) *gin.Engine {
	return newTestRouterWithArchive(t, service.ArchiveOptions{})
}

func newTestRouterWithArchive(t *testing.T, archive service.ArchiveOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(context.Background()))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	tokens := service.TokenPolicy{
		Secret:      testSecret,
		RegisterTTL: 100 * time.Hour,
		LoginTTL:    10 * time.Hour,
	}

	handler := NewHandler(
		service.NewAuthService(users, tokens),
		service.NewProductService(users),
		service.NewReportService(users, archive, logger),
		testSecret,
		logger,
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

// stubArchive is a storage.Service keeping uploaded reports in a map.
type stubArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newStubArchive() *stubArchive {
	return &stubArchive{objects: make(map[string][]byte)}
}

func (a *stubArchive) PutReport(ctx context.Context, bucket, key string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = append([]byte(nil), data...)
	return "s3://" + bucket + "/" + key, nil
}

func (a *stubArchive) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var objects []storage.ObjectInfo
	for key, data := range a.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return objects, nil
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, router *gin.Engine, name, email, password string) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ann", "email": "not-an-email", "password": "pw123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ann", "email": "ann@x.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing password must fail binding")
}

func TestRegisterDuplicate(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "Ann", "ann@x.com", "pw123")

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ann", "email": "ann@x.com", "password": "pw123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEchoesEmail(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "Ann", "ann@x.com", "pw123")

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ann@x.com", "password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ann@x.com", resp.Email)
}

func TestLoginFailures(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "Ann", "ann@x.com", "pw123")

	unknown := doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ghost@x.com", "password": "pw123",
	})
	assert.Equal(t, http.StatusBadRequest, unknown.Code)

	badPassword := doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ann@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, badPassword.Code)

	// the response must not reveal whether the account exists
	assert.JSONEq(t, unknown.Body.String(), badPassword.Body.String())
}

func TestProductRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "Ann", "ann@x.com", "pw123")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/products/ann@x.com", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/auth/products/ann@x.com", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductLifecycle(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "Ann", "ann@x.com", "pw123")

	// empty ledger is a valid 200 response
	rec := doJSON(t, router, http.MethodGet, "/api/auth/products/ann@x.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)

	rec = doJSON(t, router, http.MethodPost, "/api/auth/products/add", token, gin.H{
		"username":     "ann@x.com",
		"productName":  "Pen",
		"productQty":   10,
		"productRate":  2,
		"productTotal": 20,
		"productGST":   0,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Pen", listed[0]["productName"])
	assert.Equal(t, 10.0, listed[0]["productQty"])
	assert.Equal(t, 2.0, listed[0]["productRate"])
	assert.Equal(t, 20.0, listed[0]["productTotal"])
	assert.Equal(t, 0.0, listed[0]["productGST"])
	productID, ok := listed[0]["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, productID)

	rec = doJSON(t, router, http.MethodGet, "/api/auth/products/ann@x.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rec = doJSON(t, router, http.MethodDelete, "/api/auth/products/"+productID+"?username=ann%40x.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"msg":"Product deleted"}`, rec.Body.String())

	// second delete with the same id is a 404
	rec = doJSON(t, router, http.MethodDelete, "/api/auth/products/"+productID+"?username=ann%40x.com", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/auth/products/ann@x.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestAddProductRejectsMissingFields(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "Ann", "ann@x.com", "pw123")

	rec := doJSON(t, router, http.MethodPost, "/api/auth/products/add", token, gin.H{
		"username":    "ann@x.com",
		"productName": "Pen",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductRoutesForUnknownUser(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "Ann", "ann@x.com", "pw123")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/products/ghost@x.com", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForeignTokenIsForbidden(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "Ann", "ann@x.com", "pw123")
	malloryToken := registerUser(t, router, "Mallory", "mallory@x.com", "pw456")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/products/ann@x.com", malloryToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/auth/generate-pdf/ann@x.com", malloryToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGeneratePDF(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "Ann", "ann@x.com", "pw123")

	rec := doJSON(t, router, http.MethodPost, "/api/auth/products/add", token, gin.H{
		"username":     "ann@x.com",
		"productName":  "Pen",
		"productQty":   10,
		"productRate":  2,
		"productTotal": 20,
		"productGST":   0,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/auth/generate-pdf/ann@x.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=Products.pdf", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestArchivedReportsListing(t *testing.T) {
	archive := newStubArchive()
	router := newTestRouterWithArchive(t, service.ArchiveOptions{
		Storage:   archive,
		Bucket:    "test-bucket",
		KeyPrefix: "ledger-reports",
	})
	token := registerUser(t, router, "Ann", "ann@x.com", "pw123")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/reports/ann@x.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	assert.Empty(t, reports)

	rec = doJSON(t, router, http.MethodGet, "/api/auth/generate-pdf/ann@x.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/auth/reports/ann@x.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	key, ok := reports[0]["key"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(key, "ledger-reports/ann@x.com/"))
	assert.Greater(t, reports[0]["size"], 0.0)
}

func TestArchivedReportsRequireOwnership(t *testing.T) {
	router := newTestRouterWithArchive(t, service.ArchiveOptions{
		Storage:   newStubArchive(),
		Bucket:    "test-bucket",
		KeyPrefix: "ledger-reports",
	})
	registerUser(t, router, "Ann", "ann@x.com", "pw123")
	malloryToken := registerUser(t, router, "Mallory", "mallory@x.com", "pw456")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/reports/ann@x.com", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/auth/reports/ann@x.com", malloryToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGeneratePDFUnknownUser(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "Ann", "ann@x.com", "pw123")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/generate-pdf/ghost@x.com", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
