package middleware

import (
	"context"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ==================== 审计上下文 ====================

type auditContextKey struct{}

// AuditInfo 当前操作人
type AuditInfo struct {
	UserID   int64
	Username string
}

// WithAuditInfo 注入操作人到 context
func WithAuditInfo(ctx context.Context, userID int64, username string) context.Context {
	return context.WithValue(ctx, auditContextKey{}, &AuditInfo{UserID: userID, Username: username})
}

// GetAuditInfo 从 context 获取操作人
func GetAuditInfo(ctx context.Context) *AuditInfo {
	if info, ok := ctx.Value(auditContextKey{}).(*AuditInfo); ok {
		return info
	}
	return nil
}

// GetAuditUserID 操作人 ID，未登录为 0
func GetAuditUserID(ctx context.Context) int64 {
	if info := GetAuditInfo(ctx); info != nil {
		return info.UserID
	}
	return 0
}

// ==================== Gin 中间件 ====================

// AuditContext 把 JWT 中的用户写入 request context，供 GORM 回调使用
// 需挂在 JWTAuth / OptionalAuth 之后
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := GetUserID(c); userID > 0 {
			c.Request = c.Request.WithContext(WithAuditInfo(c.Request.Context(), userID, GetUsername(c)))
		}
		c.Next()
	}
}

// RequestLogger 访问日志
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if userID := GetUserID(c); userID > 0 {
			fields = append(fields, zap.Int64("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			zap.L().Error("request", fields...)
		case status >= 400:
			zap.L().Warn("request", fields...)
		default:
			zap.L().Info("request", fields...)
		}
	}
}

// ==================== GORM 回调 ====================

// RegisterAuditCallbacks 创建时填充 CreatedBy/UpdatedBy，更新时填充 UpdatedBy
func RegisterAuditCallbacks(db *gorm.DB) error {
	err := db.Callback().Create().Before("gorm:create").Register("audit:create", func(tx *gorm.DB) {
		if userID := auditUser(tx); userID > 0 {
			setAuditField(tx, "CreatedBy", userID, false)
			setAuditField(tx, "UpdatedBy", userID, false)
		}
	})
	if err != nil {
		return err
	}
	return db.Callback().Update().Before("gorm:update").Register("audit:update", func(tx *gorm.DB) {
		if userID := auditUser(tx); userID > 0 {
			setAuditField(tx, "UpdatedBy", userID, true)
		}
	})
}

func auditUser(tx *gorm.DB) int64 {
	if tx.Statement.Context == nil {
		return 0
	}
	return GetAuditUserID(tx.Statement.Context)
}

// setAuditField 写入审计字段；overwrite 为 false 时只填零值字段
func setAuditField(tx *gorm.DB, fieldName string, value int64, overwrite bool) {
	if tx.Statement.Schema == nil {
		return
	}
	field := tx.Statement.Schema.LookUpField(fieldName)
	if field == nil {
		return
	}

	ctx := tx.Statement.Context
	rv := tx.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Struct:
		if _, isZero := field.ValueOf(ctx, rv); isZero || overwrite {
			_ = field.Set(ctx, rv, value)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elem := reflect.Indirect(rv.Index(i))
			if _, isZero := field.ValueOf(ctx, elem); isZero || overwrite {
				_ = field.Set(ctx, elem, value)
			}
		}
	}
}
