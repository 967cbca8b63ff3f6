package task

import (
	"go.uber.org/zap"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台定时任务
type TaskManager struct {
	sessionTask *SessionCleanupTask
	stockTask   *StockAlertTask
}

// TaskManagerDeps 任务管理器依赖，为 nil 的依赖对应的任务不启动
type TaskManagerDeps struct {
	Sessions IdleEvictor
	Stock    LowStockSource
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps) *TaskManager {
	tm := &TaskManager{}
	if deps.Sessions != nil {
		tm.sessionTask = NewSessionCleanupTask(deps.Sessions)
	}
	if deps.Stock != nil {
		tm.stockTask = NewStockAlertTask(deps.Stock)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.sessionTask != nil {
		if err := tm.sessionTask.Start(); err != nil {
			return err
		}
	}
	if tm.stockTask != nil {
		if err := tm.stockTask.Start(); err != nil {
			return err
		}
	}
	zap.L().Info("background tasks started", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.sessionTask != nil {
		tm.sessionTask.Stop()
	}
	if tm.stockTask != nil {
		tm.stockTask.Stop()
	}
	zap.L().Info("background tasks stopped")
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"session_cleanup": tm.sessionTask != nil,
		"stock_alert":     tm.stockTask != nil,
	}
}
