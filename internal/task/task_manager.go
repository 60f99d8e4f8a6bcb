package task

import (
	"context"

	"go.uber.org/zap"

	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/repository"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台任务
type TaskManager struct {
	auditTask *ListingAuditTask
	log       *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	ListingRepo repository.ListingRepository
	Logger      *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	AuditEnabled bool
	AuditSpec    string
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		AuditEnabled: true,
		AuditSpec:    DefaultAuditSpec,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tm := &TaskManager{log: log}

	if cfg.AuditEnabled && deps.ListingRepo != nil {
		tm.auditTask = NewListingAuditTask(deps.ListingRepo, cfg.AuditSpec, log)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.auditTask != nil {
		if err := tm.auditTask.Start(); err != nil {
			return err
		}
	}
	tm.log.Info("background tasks started", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.auditTask != nil {
		tm.auditTask.Stop()
	}
	tm.log.Info("background tasks stopped")
}

// ==================== 手动触发接口 ====================

// TriggerAudit 立即执行一次巡检
func (tm *TaskManager) TriggerAudit(ctx context.Context) (map[model.ListingType]int64, error) {
	if tm.auditTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.auditTask.RunOnce(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"listing_audit": tm.auditTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
