package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/gating"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) (*App, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	testutil.SeedSampleCatalog(t, db)

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Learning: config.LearningConfig{
			SessionStore:    "memory",
			SessionTTLHours: 24,
			Tiers:           gating.DefaultTiers(),
		},
	}

	a := &App{Config: cfg, DB: db}
	a.build(cfg)
	t.Cleanup(a.rateLimiter.Stop)
	return a, db
}

func do(t *testing.T, a *App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func login(t *testing.T, a *App, loginName string) string {
	t.Helper()
	code, env := do(t, a, http.MethodPost, "/api/login", "", gin.H{"login": loginName, "password": testutil.DefaultPassword})
	require.Equal(t, http.StatusOK, code, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestRouter_HealthIsPublic(t *testing.T) {
	a, _ := newTestApp(t)
	code, _ := do(t, a, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_LearningRequiresAuth(t *testing.T) {
	a, _ := newTestApp(t)
	code, _ := do(t, a, http.MethodGet, "/api/learning/overview", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_StudentJourney(t *testing.T) {
	a, db := newTestApp(t)

	code, env := do(t, a, http.MethodPost, "/api/register", "", gin.H{
		"name":     "Alice",
		"username": "alice",
		"email":    "alice@example.com",
		"password": testutil.DefaultPassword,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	token := login(t, a, "alice@example.com")

	code, env = do(t, a, http.MethodGet, "/api/learning/overview", token, nil)
	require.Equal(t, http.StatusOK, code)
	var overview struct {
		ModuleLockState map[string]gating.ModuleLock `json:"moduleLockState"`
		QuizState       map[string]gating.QuizState  `json:"quizState"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	assert.False(t, overview.ModuleLockState["M1"].Locked)
	assert.True(t, overview.ModuleLockState["M3"].Locked)
	assert.Equal(t, gating.QuizLocked, overview.QuizState["1"])

	code, _ = do(t, a, http.MethodGet, "/api/learning/checkpoints/1", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	for _, id := range []string{"M1", "M2"} {
		code, env = do(t, a, http.MethodPost, "/api/learning/modules/"+id+"/complete", token, nil)
		require.Equal(t, http.StatusOK, code, env.Message)
	}

	var quiz model.CheckpointQuiz
	require.NoError(t, db.Preload("Questions").Where("checkpoint_number = ?", 1).First(&quiz).Error)
	answers := map[string]int{}
	for _, q := range quiz.Questions {
		answers[strconv.FormatUint(uint64(q.ID), 10)] = q.AnswerIndex
	}

	code, env = do(t, a, http.MethodPut, "/api/learning/checkpoints/1/session", token, gin.H{"answers": answers, "currentIndex": 1})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, a, http.MethodPost, "/api/learning/checkpoints/1/submit", token, gin.H{"answers": answers})
	require.Equal(t, http.StatusOK, code, env.Message)
	var result struct {
		Passed          bool     `json:"passed"`
		UnlockedModules []string `json:"unlockedModules"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Passed)
	assert.Equal(t, []string{"M3", "M4"}, result.UnlockedModules)

	code, _ = do(t, a, http.MethodPost, "/api/learning/checkpoints/1/submit", token, gin.H{"answers": answers})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, a, http.MethodGet, "/api/learning/checkpoints/1/session", token, nil)
	assert.Equal(t, http.StatusNotFound, code, "submission clears the saved session")

	code, _ = do(t, a, http.MethodGet, "/api/admin/modules", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRouter_AdminManagesCatalog(t *testing.T) {
	a, db := newTestApp(t)
	testutil.SeedUser(t, db, "root", model.Admin)
	student := testutil.SeedUser(t, db, "bob", model.Student)
	token := login(t, a, "root")

	code, env := do(t, a, http.MethodPost, "/api/admin/modules", token, gin.H{"moduleId": "M6", "title": "Extra"})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, _ = do(t, a, http.MethodPost, "/api/admin/modules", token, gin.H{"moduleId": "M6", "title": "Extra"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, a, http.MethodDelete, "/api/admin/modules/M1", token, nil)
	assert.Equal(t, http.StatusConflict, code, "M1 is required by checkpoint 1")

	code, env = do(t, a, http.MethodGet, "/api/admin/users?role=student", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"bob"`)

	code, _ = do(t, a, http.MethodGet, fmt.Sprintf("/api/admin/users/%d/overview", student.ID), token, nil)
	assert.Equal(t, http.StatusOK, code)

	studentToken := login(t, a, "bob")
	code, _ = do(t, a, http.MethodGet, "/api/learning/overview", studentToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, a, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/disable", student.ID), token, gin.H{"disabled": true})
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, a, http.MethodGet, "/api/learning/overview", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, code, "tokens issued before disabling stop working")

	code, _ = do(t, a, http.MethodPost, "/api/login", "", gin.H{"login": "bob", "password": testutil.DefaultPassword})
	assert.Equal(t, http.StatusForbidden, code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reports/progress.xlsx", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "progress")
}

func TestApp_ReloadConfigRunsCallbacks(t *testing.T) {
	a, _ := newTestApp(t)

	next := *a.Config
	next.Learning.SessionTTLHours = 2
	next.Learning.Tiers = []gating.Tier{{Name: "All", Min: 0, Max: 100}}
	a.reloadConfig(&next)

	assert.Same(t, &next, a.CurrentConfig())
	assert.Equal(t, 2*time.Hour, a.services.sessions.TTL())
	assert.Equal(t, next.Learning.Tiers, a.services.learning.Tiers())
}
