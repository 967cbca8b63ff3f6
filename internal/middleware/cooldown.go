package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== Cooldown 冷却限流器 ====================

// Cooldown 按 key 的冷却限流器
// 用于拦截短时间内的重复提交，例如向导连点"保存"
type Cooldown struct {
	locks sync.Map // key -> *lockEntry
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewCooldown 创建限流器
func NewCooldown() *Cooldown {
	return &Cooldown{}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时记录本次时间
func (r *Cooldown) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	elapsed := time.Since(entry.lastTime)
	if elapsed < interval {
		return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
	}
	entry.lastTime = time.Now()
	return CheckResult{Allowed: true}
}

// CheckOnly 仅检查，不更新时间
func (r *Cooldown) CheckOnly(key string, interval time.Duration) CheckResult {
	actual, ok := r.locks.Load(key)
	if !ok {
		return CheckResult{Allowed: true}
	}

	entry := actual.(*lockEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	elapsed := time.Since(entry.lastTime)
	if elapsed < interval {
		return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
	}
	return CheckResult{Allowed: true}
}

// Reset 清除 key，会话结束时调用
func (r *Cooldown) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key ====================

// SubmitKey 向导提交的冷却 key
func SubmitKey(sessionID string) string {
	return "submit:" + sessionID
}

// CheckoutKey 结算的冷却 key
func CheckoutKey(userID int64) string {
	return fmt.Sprintf("checkout:%d", userID)
}

// ==================== Gin 中间件 ====================

// Throttle 冷却中间件，keyFn 返回空串时不限流
func Throttle(limiter *Cooldown, interval time.Duration, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if interval <= 0 {
			c.Next()
			return
		}
		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		result := limiter.Check(key, interval)
		if !result.Allowed {
			tooSoon(c, result.RetryAfter)
			return
		}
		c.Next()
	}
}

// ThrottleOnSuccess 先用 CheckOnly 预检，只有处理成功（状态码 < 400）才开始冷却
// 用于结算：收货信息填错或库存不足时可以立即重试
func ThrottleOnSuccess(limiter *Cooldown, interval time.Duration, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if interval <= 0 {
			c.Next()
			return
		}
		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		if result := limiter.CheckOnly(key, interval); !result.Allowed {
			tooSoon(c, result.RetryAfter)
			return
		}
		c.Next()
		if c.Writer.Status() < http.StatusBadRequest {
			limiter.Check(key, interval)
		}
	}
}

func tooSoon(c *gin.Context, retry time.Duration) {
	secs := retrySeconds(retry)
	c.Header("Retry-After", fmt.Sprintf("%d", secs))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"code":    429,
		"message": fmt.Sprintf("please wait %d seconds before trying again", secs),
		"data":    gin.H{"retry_after": secs},
	})
	c.Abort()
}

// retrySeconds 向上取整，避免提示 0 秒
func retrySeconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second > 0 {
		s++
	}
	return s
}
