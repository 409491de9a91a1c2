package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository/memory"
	"github.com/mamadbah2/calftracker/internal/server/handlers"
	"github.com/mamadbah2/calftracker/internal/service/admin"
	"github.com/mamadbah2/calftracker/internal/service/session"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

type stubReports struct{}

func (stubReports) RunDailyReport(context.Context) (string, error) {
	return "Herd report", nil
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	boss   models.Operator
	hand   models.Operator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	boss, err := store.CreateOperator(ctx, models.Operator{Name: "Boss", Role: models.RoleAdmin, PIN: "1111"})
	require.NoError(t, err)
	hand, err := store.CreateOperator(ctx, models.Operator{Name: "Ana", Role: models.RoleUser})
	require.NoError(t, err)

	tr := tracker.NewService(store, models.DefaultSettings(), time.UTC, nil)
	require.NoError(t, tr.Reload(ctx))
	sessions := session.NewManager(tr, time.Hour, nil)

	engine := New(Handlers{
		Session: handlers.NewSessionHandler(tr, sessions, nil),
		Tracker: handlers.NewTrackerHandler(tr, nil),
		Admin:   handlers.NewAdminHandler(admin.NewService(store, tr, nil), stubReports{}, nil),
	}, sessions, nil)

	return &testServer{t: t, engine: engine, boss: boss, hand: hand}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(handlers.SessionHeader, token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(op models.Operator, pin string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/session", "", gin.H{"operator_id": op.ID, "pin": pin})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)

	w := s.do(http.MethodGet, "/operators", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "1111")
	assert.Contains(t, w.Body.String(), `"needs_pin":true`)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/dashboard", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/webhook", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/reports/snapshots", "", nil).Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/session", "", gin.H{"operator_id": s.boss.ID, "pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/session", "", gin.H{"operator_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPost, "/session", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := s.login(s.hand, "")
	w = s.do(http.MethodGet, "/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ana"`)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/session", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/session", token, nil).Code)
}

func TestFeedingFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(s.hand, "")

	w := s.do(http.MethodPost, "/animals", token, gin.H{
		"name":       "Maple",
		"birth_date": time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	calf := decode[models.Animal](t, w)
	assert.Equal(t, 1, calf.Number)

	feedPath := fmt.Sprintf("/animals/%d/feedings", calf.ID)
	notesPath := feedPath + "/current/notes"
	treatPath := feedPath + "/current/treatment"

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPut, notesPath, token, gin.H{"notes": "early"}).Code)

	w = s.do(http.MethodPost, feedPath, token, gin.H{"consumption": 50})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[models.FeedingRecord](t, w)
	assert.Equal(t, "Ana", first.OperatorName)

	w = s.do(http.MethodPost, feedPath, token, gin.H{"consumption": 75})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID, decode[models.FeedingRecord](t, w).ID)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, feedPath, token, gin.H{"consumption": 150}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, feedPath, token, gin.H{}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/animals/999/feedings", token, gin.H{"consumption": 10}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/animals/abc/feedings", token, gin.H{"consumption": 10}).Code)

	w = s.do(http.MethodPut, notesPath, token, gin.H{"notes": "slow drinker"})
	require.Equal(t, http.StatusOK, w.Code)
	card := decode[tracker.AnimalCard](t, w)
	require.NotNil(t, card.Current)
	assert.Equal(t, "slow drinker", card.Current.Notes)
	assert.Equal(t, 75, card.Current.Consumption)

	w = s.do(http.MethodPost, treatPath, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"treatment":true}`, w.Body.String())

	w = s.do(http.MethodGet, "/animals?filter=Colostrum", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Animals []tracker.AnimalCard `json:"animals"`
	}](t, w)
	require.Len(t, list.Animals, 1)
	assert.Equal(t, calf.ID, list.Animals[0].ID)

	w = s.do(http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[tracker.Dashboard](t, w).ActiveAnimals)

	w = s.do(http.MethodPatch, fmt.Sprintf("/animals/%d", calf.ID), token, gin.H{"status": "archived"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, feedPath, token, gin.H{"consumption": 10}).Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	handToken := s.login(s.hand, "")
	bossToken := s.login(s.boss, "1111")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/admin/settings", handToken, nil).Code)

	w := s.do(http.MethodPut, "/admin/settings", bossToken, gin.H{"consecutive_count": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings := decode[models.Settings](t, w)
	assert.Equal(t, 3, settings.ConsecutiveCount)
	assert.Equal(t, 2, settings.Version)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/admin/settings", bossToken, gin.H{"low_consumption_percent": 500}).Code)

	w = s.do(http.MethodPut, "/admin/protocols", bossToken, gin.H{"protocols": []gin.H{
		{"name": "Milk", "type": "days", "value": 45},
		{"name": "Weaned", "type": "days", "value": 60},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/admin/protocols", bossToken, gin.H{"protocols": []gin.H{{"name": "X", "type": "weeks"}}}).Code)

	w = s.do(http.MethodPost, "/admin/operators", bossToken, gin.H{"name": "Cy", "role": "user", "pin": "4321"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cy := decode[models.Operator](t, w)

	w = s.do(http.MethodGet, "/admin/operators", bossToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "4321")

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPatch, fmt.Sprintf("/admin/operators/%d", cy.ID), bossToken, gin.H{"name": "Cyrus"}).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodDelete, fmt.Sprintf("/admin/operators/%d", s.boss.ID), bossToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, fmt.Sprintf("/admin/operators/%d", cy.ID), bossToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/admin/operators/%d", cy.ID), bossToken, nil).Code)

	w = s.do(http.MethodPost, "/admin/reports/daily", bossToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"report":"Herd report"}`, w.Body.String())
}
