package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campuscoin/internal/config"
	"campuscoin/internal/infrastructure/lock"
	"campuscoin/internal/repository/memory"
	"campuscoin/internal/service"
	"campuscoin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.NewStore()
	ledger := config.LedgerConfig{MaxConflictRetries: 1, RetryBackoff: time.Millisecond}
	h := NewHandler(Services{
		Accounts:  service.NewAccountService(st.Accounts()),
		Companies: service.NewCompanyService(st.Companies()),
		Catalog:   service.NewCatalogService(st.Advantages(), st.Companies()),
		Exchange:  service.NewExchangeService(st, lock.NewLocalLocker(), ledger, zerolog.Nop()),
		History:   service.NewHistoryService(st.Transactions(), st.Redemptions()),
	})
	return SetupRouter(h, zerolog.Nop())
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func idOf(t *testing.T, env envelope) string {
	t.Helper()
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	var v struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &v))
	require.NotEmpty(t, v.ID)
	return v.ID
}

func TestRouter_ExchangeFlow(t *testing.T) {
	r := newTestRouter(t)

	teacherID := idOf(t, do(t, r, http.MethodPost, "/api/v1/accounts",
		gin.H{"kind": "TEACHER", "name": "tom", "email": "tom@school.edu"}))
	studentID := idOf(t, do(t, r, http.MethodPost, "/api/v1/accounts",
		gin.H{"kind": "STUDENT", "name": "ana", "email": "ana@school.edu"}))
	companyID := idOf(t, do(t, r, http.MethodPost, "/api/v1/companies",
		gin.H{"name": "acme", "email": "acme@corp.com"}))
	advantageID := idOf(t, do(t, r, http.MethodPost, "/api/v1/companies/"+companyID+"/advantages",
		gin.H{"name": "Coffee", "price": 30}))

	env := do(t, r, http.MethodPost, "/api/v1/admin/teachers/"+teacherID+"/coins", gin.H{"amount": 100})
	assert.Equal(t, response.CodeSuccess, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/teachers/"+teacherID+"/transfers",
		gin.H{"student_id": studentID, "quantity": 40, "description": "essay"})
	assert.Equal(t, response.CodeSuccess, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/students/"+studentID+"/redemptions", gin.H{"advantage_id": advantageID})
	assert.Equal(t, response.CodeSuccess, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/students/"+studentID+"/redemptions", gin.H{"advantage_id": advantageID})
	assert.Equal(t, response.CodeBalanceNotEnough, env.Code)

	env = do(t, r, http.MethodGet, "/api/v1/accounts/"+studentID, nil)
	var account struct {
		Balance int64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Equal(t, int64(10), account.Balance)

	env = do(t, r, http.MethodGet, "/api/v1/students/"+studentID+"/transactions", nil)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Total)

	env = do(t, r, http.MethodGet, "/api/v1/teachers/"+teacherID+"/transactions", nil)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Total)

	env = do(t, r, http.MethodGet, "/api/v1/advantages/"+advantageID+"/redemptions", nil)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)
}

func TestRouter_ErrorCodes(t *testing.T) {
	r := newTestRouter(t)

	env := do(t, r, http.MethodGet, "/api/v1/accounts/missing", nil)
	assert.Equal(t, response.CodeAccountNotFound, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/admin/teachers/missing/coins", gin.H{"amount": 0})
	assert.Equal(t, response.CodeInvalidAmount, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/companies/missing/advantages", gin.H{"name": "x", "price": 1})
	assert.Equal(t, response.CodeCompanyNotFound, env.Code)

	env = do(t, r, http.MethodGet, "/api/v1/advantages/missing", nil)
	assert.Equal(t, response.CodeAdvantageNotFound, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/students/x/redemptions", gin.H{})
	assert.Equal(t, response.CodeParamError, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/accounts", gin.H{"kind": "ADMIN", "name": "x", "email": "x@y.z"})
	assert.Equal(t, response.CodeParamError, env.Code)
}

func TestRouter_AdvantageLifecycle(t *testing.T) {
	r := newTestRouter(t)
	companyID := idOf(t, do(t, r, http.MethodPost, "/api/v1/companies",
		gin.H{"name": "acme", "email": "acme@corp.com"}))
	advantageID := idOf(t, do(t, r, http.MethodPost, "/api/v1/companies/"+companyID+"/advantages",
		gin.H{"name": "Coffee", "price": 5}))

	env := do(t, r, http.MethodPut, "/api/v1/advantages/"+advantageID, gin.H{"name": "Tea", "price": 0})
	assert.Equal(t, response.CodeInvalidAmount, env.Code)

	env = do(t, r, http.MethodPut, "/api/v1/advantages/"+advantageID, gin.H{"name": "Tea", "price": 7})
	assert.Equal(t, response.CodeSuccess, env.Code)

	env = do(t, r, http.MethodDelete, "/api/v1/advantages/"+advantageID, nil)
	assert.Equal(t, response.CodeSuccess, env.Code)

	env = do(t, r, http.MethodGet, "/api/v1/companies/"+companyID+"/advantages", nil)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 0, list.Total)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "campuscoin_http_requests_total")
}
