package controller

import (
	"edu_platform_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

// handleServiceError 按错误类型映射状态码，未知错误只记录日志不暴露细节
// 哨兵错误只返回其自身文案，不带包装信息
func handleServiceError(ctx *gin.Context, err error) {
	if target, ok := util.NotFoundTarget(err); ok {
		util.NotFound(ctx, target.Error())
		return
	}

	switch {
	case util.IsValidationError(err):
		util.UnprocessableEntity(ctx, err.Error())
	case errors.Is(err, util.ErrAlreadyEnrolled):
		util.Conflict(ctx, util.ErrAlreadyEnrolled.Error())
	case errors.Is(err, util.ErrProgressBusy):
		util.Conflict(ctx, util.ErrProgressBusy.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// pathID 解析路径参数，失败时直接写入 422
func pathID(ctx *gin.Context, name, label string) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		util.UnprocessableEntity(ctx, "Valid "+label+" ID is required")
	}
	return id, ok
}
