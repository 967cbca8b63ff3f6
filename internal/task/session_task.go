package task

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// IdleEvictor 可回收空闲会话的对象
type IdleEvictor interface {
	EvictIdle() int
}

// SessionCleanupTask 定期回收空闲会话，释放草稿与购物车
type SessionCleanupTask struct {
	sessions IdleEvictor
	spec     string
	cron     *cron.Cron
}

// NewSessionCleanupTask 创建会话清理任务，默认每 10 分钟一次
func NewSessionCleanupTask(sessions IdleEvictor) *SessionCleanupTask {
	return &SessionCleanupTask{
		sessions: sessions,
		spec:     "0 */10 * * * *",
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务
func (t *SessionCleanupTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, func() { t.RunOnce() }); err != nil {
		return err
	}
	t.cron.Start()
	zap.L().Info("session cleanup task started", zap.String("spec", t.spec))
	return nil
}

// Stop 停止并等待正在执行的任务
func (t *SessionCleanupTask) Stop() {
	<-t.cron.Stop().Done()
}

// RunOnce 立即执行一轮
func (t *SessionCleanupTask) RunOnce() int {
	n := t.sessions.EvictIdle()
	if n > 0 {
		zap.L().Info("idle sessions evicted", zap.Int("count", n))
	}
	return n
}
