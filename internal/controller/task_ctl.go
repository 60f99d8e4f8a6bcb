package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estate_listing_v1/internal/api/dto"
	"estate_listing_v1/internal/middleware"
	"estate_listing_v1/internal/task"
)

// TaskController 后台任务（仅管理员）
type TaskController struct {
	taskManager *task.TaskManager
	log         *zap.Logger
}

func NewTaskController(taskManager *task.TaskManager, log *zap.Logger) *TaskController {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskController{taskManager: taskManager, log: log}
}

// ==================== Handler 实现 ====================

// TriggerAudit 手动执行一次无图房源巡检
// @Summary 手动执行无图房源巡检
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AuditResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/admin/tasks/audit [post]
func (c *TaskController) TriggerAudit(ctx *gin.Context) {
	claims := middleware.GetUserClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	counts, err := c.taskManager.TriggerAudit(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, task.ErrTaskDisabled) {
			ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "Audit task is disabled"})
			return
		}
		c.log.Error("manual audit failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Audit failed"})
		return
	}

	c.log.Info("manual audit triggered",
		zap.Int64("user_id", claims.UserID),
		zap.String("email", claims.Email),
	)

	resp := dto.AuditResponse{MissingImages: map[string]int64{}}
	for t, n := range counts {
		resp.MissingImages[string(t)] = n
	}
	ctx.JSON(http.StatusOK, resp)
}

// Status 任务启用状态
// @Summary 后台任务状态
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]bool
// @Router /api/admin/tasks [get]
func (c *TaskController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.taskManager.Status())
}
