package controllers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/controllers"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"github.com/yashrajoria/pharmacy-agent/routes"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func adminRouter(auth controllers.Authenticator, runs controllers.RunReader, dash controllers.Dashboard, notes repository.NotificationRepository) *gin.Engine {
	r := gin.New()
	routes.RegisterAdminRoutes(r, controllers.NewAdminController(auth, runs, dash, notes, zap.NewNop()), []byte(testSecret))
	return r
}

func adminGet(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminLogin(t *testing.T) {
	auth := &mockAuth{loginFn: func(password string) (string, time.Time, error) {
		if password != "s3cret" {
			return "", time.Time{}, apperrors.Unauthorized("invalid credentials")
		}
		return "signed-token", time.Now().Add(12 * time.Hour), nil
	}}
	r := adminRouter(auth, &mockRuns{}, &mockDashboard{}, nil)

	w := doJSON(r, http.MethodPost, "/admin/login", gin.H{"password": "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"signed-token"`)

	w = doJSON(r, http.MethodPost, "/admin/login", gin.H{"password": "guess"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	r := adminRouter(&mockAuth{}, &mockRuns{}, &mockDashboard{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/runs", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListRuns(t *testing.T) {
	runs := &mockRuns{runs: []models.RunRecord{{RunID: "r2"}, {RunID: "r1"}}}
	r := adminRouter(&mockAuth{}, runs, &mockDashboard{}, nil)

	w := adminGet(t, r, "/admin/runs?limit=5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, runs.limit)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = adminGet(t, r, "/admin/runs?limit=5000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.MaxRunHistory, runs.limit)

	w = adminGet(t, r, "/admin/runs?product=ParacetamolXL")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = adminGet(t, r, "/admin/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRun(t *testing.T) {
	runs := &mockRuns{runs: []models.RunRecord{{RunID: "r1", ProductName: "ParacetamolXL"}}, err: repository.ErrRunNotFound}
	r := adminRouter(&mockAuth{}, runs, &mockDashboard{}, nil)

	w := adminGet(t, r, "/admin/runs/r1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ParacetamolXL")

	w = adminGet(t, r, "/admin/runs/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSummaryAndLayers(t *testing.T) {
	dash := &mockDashboard{
		summary: &models.DashboardSummary{Runs: models.RunSummary{TotalRuns: 3, SuccessRate: 33.3}},
		layers:  []models.SecurityLayer{{Layer: "L1 Input Guard", Status: models.LayerPass}},
	}
	r := adminRouter(&mockAuth{}, &mockRuns{}, dash, nil)

	w := adminGet(t, r, "/admin/summary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success_rate":33.3`)

	w = adminGet(t, r, "/admin/security-layers")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"PASS"`)
}

func TestNotifications(t *testing.T) {
	notes := &mockNotifications{logs: []models.NotificationLog{{Recipient: "buyer@example.com"}}, total: 41}
	r := adminRouter(&mockAuth{}, &mockRuns{}, &mockDashboard{}, notes)

	w := adminGet(t, r, "/admin/notifications?recipient=buyer@example.com&page=2&page_size=20")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "buyer@example.com", notes.recipient)
	assert.Equal(t, 2, notes.page)
	assert.Contains(t, w.Body.String(), `"total_pages":3`)
}

func TestNotifications_NoLog(t *testing.T) {
	r := adminRouter(&mockAuth{}, &mockRuns{}, &mockDashboard{}, nil)

	w := adminGet(t, r, "/admin/notifications")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"logs":[]`)
}

