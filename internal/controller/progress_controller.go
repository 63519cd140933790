package controller

import (
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// ListProgress godoc
// @Summary 学习进度列表
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param enrollmentId query int false "报名ID"
// @Param subcategoryId query int false "班级ID"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Failure 404 {object} util.Response
// @Router /api/progress [get]
func (c *ProgressController) ListProgress(ctx *gin.Context) {
	enrollmentID, ok := util.ParseOptionalID(ctx.Query("enrollmentId"))
	if !ok {
		util.UnprocessableEntity(ctx, "Valid enrollment ID is required")
		return
	}
	subcategoryID, ok := util.ParseOptionalID(ctx.Query("subcategoryId"))
	if !ok {
		util.UnprocessableEntity(ctx, "Valid subcategory ID is required")
		return
	}
	page, limit := util.ParsePagination(ctx.Query("page"), ctx.Query("limit"), util.DefaultPageSize)

	records, total, err := c.ProgressService.List(ctx.Request.Context(), repository.ProgressFilter{
		EnrollmentID:  enrollmentID,
		SubcategoryID: subcategoryID,
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Progress records retrieved successfully", util.NewPageResponse(records, total, page, limit))
}

// GetProgress godoc
// @Summary 学习进度详情
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "进度ID"
// @Success 200 {object} util.Response{data=model.Progress}
// @Failure 404 {object} util.Response
// @Router /api/progress/{id} [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "progress")
	if !ok {
		return
	}

	progress, err := c.ProgressService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Progress retrieved successfully", progress)
}

// GetProgressByEnrollment godoc
// @Summary 按报名查询学习进度
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param enrollmentId path int true "报名ID"
// @Success 200 {object} util.Response{data=model.Progress}
// @Failure 404 {object} util.Response
// @Router /api/progress/enrollment/{enrollmentId} [get]
func (c *ProgressController) GetProgressByEnrollment(ctx *gin.Context) {
	enrollmentID, ok := pathID(ctx, "enrollmentId", "enrollment")
	if !ok {
		return
	}

	progress, err := c.ProgressService.GetByEnrollment(ctx.Request.Context(), enrollmentID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Progress retrieved successfully", progress)
}

// GetProgressByStudent godoc
// @Summary 学员的全部学习进度
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "学员ID"
// @Success 200 {object} util.Response{data=[]model.Progress}
// @Failure 404 {object} util.Response
// @Router /api/progress/student/{studentId} [get]
func (c *ProgressController) GetProgressByStudent(ctx *gin.Context) {
	studentID, ok := pathID(ctx, "studentId", "student")
	if !ok {
		return
	}

	records, err := c.ProgressService.GetByStudent(ctx.Request.Context(), studentID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Student progress records retrieved successfully", records)
}

// UpdateLessonProgress godoc
// @Summary 更新课时进度
// @Description 写入单个课时的完成度(0-100)，并重新计算整体完成百分比
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param enrollmentId path int true "报名ID"
// @Param body body service.UpdateLessonProgressRequest true "课时进度"
// @Success 200 {object} util.Response{data=model.Progress}
// @Failure 404 {object} util.Response "科目/章节/课时/进度不存在"
// @Failure 409 {object} util.Response "并发更新冲突"
// @Failure 422 {object} util.Response
// @Router /api/progress/lesson/{enrollmentId} [put]
func (c *ProgressController) UpdateLessonProgress(ctx *gin.Context) {
	enrollmentID, ok := pathID(ctx, "enrollmentId", "enrollment")
	if !ok {
		return
	}

	var req service.UpdateLessonProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.UnprocessableEntity(ctx, "Invalid request body")
		return
	}
	req.EnrollmentID = enrollmentID

	progress, err := c.ProgressService.UpdateLessonProgress(ctx.Request.Context(), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Lesson progress updated successfully", progress)
}

// ResetProgress godoc
// @Summary 重置学习进度
// @Description 按当前课程目录重新生成全部为 0 的进度
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param enrollmentId path int true "报名ID"
// @Success 200 {object} util.Response{data=model.Progress}
// @Failure 404 {object} util.Response
// @Router /api/progress/reset/{enrollmentId} [post]
func (c *ProgressController) ResetProgress(ctx *gin.Context) {
	enrollmentID, ok := pathID(ctx, "enrollmentId", "enrollment")
	if !ok {
		return
	}

	progress, err := c.ProgressService.ResetProgress(ctx.Request.Context(), enrollmentID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Progress reset successfully", progress)
}
