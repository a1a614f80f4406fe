package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/middleware"
	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/services"
	"github.com/kendall-kelly/erp-orders-api/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testRoleHeader = "X-Test-Role"

// apiEnv is the full /api/v1 router over an in-memory database with mocked collaborators
type apiEnv struct {
	db         *gorm.DB
	router     *gin.Engine
	dispatcher *services.MockDispatcher
	userInfo   *services.MockUserInfoProvider
	store      *services.MockS3Service
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	policy := services.NewPolicy(services.DefaultPolicyTable())
	dispatcher := services.NewMockDispatcher()
	userInfo := services.NewMockUserInfoProvider()
	store := services.NewMockS3Service()

	users := services.NewUserService(db, policy, userInfo, log)
	handlers := Handlers{
		Users:      NewUserController(users, log),
		Customers:  NewCustomerController(services.NewCustomerService(db, policy, log), log),
		Products:   NewProductController(services.NewProductService(db, policy, services.NewImageService(store), log), log),
		Orders:     NewOrderController(services.NewOrderService(db, policy, dispatcher, log), log),
		Attendance: NewAttendanceController(services.NewAttendanceService(db, policy, log), log),
		Leaves:     NewLeaveController(services.NewLeaveService(db, policy, log), log),
		Reports:    NewReportController(services.NewReportService(db, policy, nil, log), log),
	}

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), handlers, mockAuthMiddleware(), middleware.RequireUser(users, log))

	return &apiEnv{db: db, router: router, dispatcher: dispatcher, userInfo: userInfo, store: store}
}

// mockAuthMiddleware stands in for EnsureValidToken. The bearer token is used
// as the Auth0 subject and the role claim comes from X-Test-Role.
func mockAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "INVALID_TOKEN", "message": "Failed to validate JWT."},
			})
			return
		}
		middleware.SetAuthContext(c, token, token, &middleware.CustomClaims{Role: c.GetHeader(testRoleHeader)})
		c.Next()
	}
}

// do sends a JSON request as the given Auth0 subject ("" for anonymous)
func (e *apiEnv) do(t *testing.T, method, path, auth0ID string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(t, req, auth0ID)
}

func (e *apiEnv) serve(t *testing.T, req *http.Request, auth0ID string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	if auth0ID != "" {
		req.Header.Set("Authorization", "Bearer "+auth0ID)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w, response
}

func (e *apiEnv) user(t *testing.T, role models.Role) *models.User {
	t.Helper()
	return testutil.CreateUser(t, e.db, role)
}

func errorCode(response map[string]interface{}) string {
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func dataObject(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", response["data"])
	return data
}

func dataList(t *testing.T, response map[string]interface{}) []interface{} {
	t.Helper()
	data, ok := response["data"].([]interface{})
	require.True(t, ok, "data is not a list: %v", response["data"])
	return data
}
