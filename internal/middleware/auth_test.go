package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-with-enough-length-1234"

func newAuthRouter(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.Use(ConfigMiddleware(func() *config.Config { return cfg }))
	handlers := []gin.HandlerFunc{AuthMiddleware()}
	if len(roles) > 0 {
		handlers = append(handlers, RoleMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		c.String(http.StatusOK, claims.Username)
	})
	r.GET("/protected", handlers...)
	return r
}

func token(t *testing.T, role model.UserRole, ttl time.Duration) string {
	t.Helper()
	user := &model.User{Username: "alice", Email: "alice@example.com", Role: role}
	user.ID = 7
	tok, err := util.GenerateJWT(user, testSecret, ttl)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware_AcceptsBearerQueryAndCookie(t *testing.T) {
	r := newAuthRouter()
	tok := token(t, model.Student, time.Hour)

	reqs := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/protected", nil),
		httptest.NewRequest(http.MethodGet, "/protected?token="+tok, nil),
		httptest.NewRequest(http.MethodGet, "/protected", nil),
	}
	reqs[0].Header.Set("Authorization", "Bearer "+tok)
	reqs[2].AddCookie(&http.Cookie{Name: TokenCookie, Value: tok})

	for _, req := range reqs {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", w.Body.String())
	}
}

func TestAuthMiddleware_MissingOrInvalidToken(t *testing.T) {
	r := newAuthRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Unauthorized")
	assert.Empty(t, w.Header().Get(TokenExpiredHeader))
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	r := newAuthRouter()
	tok := token(t, model.Student, -time.Minute)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
	assert.Equal(t, "true", w.Header().Get(TokenExpiredHeader))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, TokenCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestRoleMiddleware(t *testing.T) {
	r := newAuthRouter(model.Admin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, model.Student, time.Hour))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, model.Admin, time.Hour))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 管理员可以访问任何角色的接口
	studentOnly := newAuthRouter(model.Student)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, model.Admin, time.Hour))
	studentOnly.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

type fakeActivityRepo struct {
	users map[uint]*model.User
	err   error
	seen  chan uint
}

func (r *fakeActivityRepo) FindByID(id uint) (*model.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeActivityRepo) UpdateLastSeen(id uint) error {
	r.seen <- id
	return nil
}

func newActivityRouter(repo UserActivityRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.Use(ConfigMiddleware(func() *config.Config { return cfg }))
	r.GET("/protected", AuthMiddleware(), ActivityMiddleware(repo), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestActivityMiddleware(t *testing.T) {
	active := &model.User{Username: "alice"}
	active.ID = 7
	disabled := &model.User{Username: "alice", Disabled: true}
	disabled.ID = 7

	tests := []struct {
		name     string
		repo     *fakeActivityRepo
		wantCode int
		wantSeen bool
	}{
		{"active user", &fakeActivityRepo{users: map[uint]*model.User{7: active}}, http.StatusOK, true},
		{"disabled after token was issued", &fakeActivityRepo{users: map[uint]*model.User{7: disabled}}, http.StatusForbidden, false},
		{"deleted user", &fakeActivityRepo{users: map[uint]*model.User{}}, http.StatusUnauthorized, false},
		{"lookup failure", &fakeActivityRepo{err: errors.New("db down")}, http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.repo.seen = make(chan uint, 1)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token(t, model.Student, time.Hour))
			w := httptest.NewRecorder()
			newActivityRouter(tt.repo).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantSeen {
				select {
				case id := <-tt.repo.seen:
					assert.Equal(t, uint(7), id)
				case <-time.After(time.Second):
					t.Fatal("last seen was not updated")
				}
			} else {
				assert.Empty(t, tt.repo.seen)
			}
		})
	}
}
