package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenPairCarriesSession(t *testing.T) {
	access, refresh, err := GenerateTokenPair(7, "ana", "admin", "sess-1")
	require.NoError(t, err)

	claims, err := ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "access", claims.Subject)

	rc, err := ParseToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", rc.Subject)
}

func TestJWTAuth(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c), "session": GetSessionID(c)})
	})

	access, refresh, err := GenerateTokenPair(3, "bob", "seller", "s-3")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"bad scheme", "Token " + access, http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"ok", "Bearer " + access, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"user":3,"session":"s-3"}`, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/admin", JWTAuth(), RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	seller, _, _ := GenerateTokenPair(1, "s", "seller", "")
	admin, _, _ := GenerateTokenPair(2, "a", "admin", "")

	for token, want := range map[string]int{seller: http.StatusForbidden, admin: http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

func TestCooldown(t *testing.T) {
	cd := NewCooldown()
	assert.True(t, cd.Check("k", time.Hour).Allowed)

	res := cd.Check("k", time.Hour)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.False(t, cd.CheckOnly("k", time.Hour).Allowed)

	assert.True(t, cd.Check("other", time.Hour).Allowed)

	cd.Reset("k")
	assert.True(t, cd.CheckOnly("k", time.Hour).Allowed)
}

func TestThrottle(t *testing.T) {
	cd := NewCooldown()
	r := gin.New()
	r.POST("/submit", Throttle(cd, time.Minute, func(c *gin.Context) string {
		return c.Query("s")
	}), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(q string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit"+q, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, do("?s=a").Code)
	w := do("?s=a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, do("?s=b").Code)
	// 无 key 不限流
	assert.Equal(t, http.StatusOK, do("").Code)
	assert.Equal(t, http.StatusOK, do("").Code)
}

func TestThrottleOnSuccess(t *testing.T) {
	cd := NewCooldown()
	r := gin.New()
	r.POST("/checkout", ThrottleOnSuccess(cd, time.Minute, func(c *gin.Context) string {
		return CheckoutKey(7)
	}), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	do := func(q string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout"+q, nil))
		return w
	}

	// 失败不进入冷却
	assert.Equal(t, http.StatusBadRequest, do("?fail=1").Code)
	assert.Equal(t, http.StatusBadRequest, do("?fail=1").Code)
	assert.True(t, cd.CheckOnly(CheckoutKey(7), time.Minute).Allowed)

	assert.Equal(t, http.StatusOK, do("").Code)
	w := do("")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.False(t, cd.CheckOnly(CheckoutKey(7), time.Minute).Allowed)
}

type auditedRow struct {
	ID        int64
	Name      string
	CreatedBy int64
	UpdatedBy int64
}

func TestAuditCallbacks(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditedRow{}))
	require.NoError(t, RegisterAuditCallbacks(db))

	ctx := WithAuditInfo(t.Context(), 42, "ana")
	row := &auditedRow{Name: "x"}
	require.NoError(t, db.WithContext(ctx).Create(row).Error)
	assert.Equal(t, int64(42), row.CreatedBy)
	assert.Equal(t, int64(42), row.UpdatedBy)

	row.Name = "y"
	require.NoError(t, db.WithContext(WithAuditInfo(t.Context(), 9, "bob")).Save(row).Error)
	assert.Equal(t, int64(42), row.CreatedBy)
	assert.Equal(t, int64(9), row.UpdatedBy)

	anon := &auditedRow{Name: "z"}
	require.NoError(t, db.Create(anon).Error)
	assert.Zero(t, anon.CreatedBy)
}
