package controller

import (
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// ListEnrollments godoc
// @Summary 报名列表
// @Description 分页查询报名记录，可按学员、班级、状态筛选
// @Tags 报名
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param studentId query int false "学员ID"
// @Param subcategoryId query int false "班级ID"
// @Param status query string false "状态"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Failure 404 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/enrollments [get]
func (c *EnrollmentController) ListEnrollments(ctx *gin.Context) {
	studentID, ok := util.ParseOptionalID(ctx.Query("studentId"))
	if !ok {
		util.UnprocessableEntity(ctx, "Valid student ID is required")
		return
	}
	subcategoryID, ok := util.ParseOptionalID(ctx.Query("subcategoryId"))
	if !ok {
		util.UnprocessableEntity(ctx, "Valid subcategory ID is required")
		return
	}
	page, limit := util.ParsePagination(ctx.Query("page"), ctx.Query("limit"), util.DefaultPageSize)

	enrollments, total, err := c.EnrollmentService.List(ctx.Request.Context(), repository.EnrollmentFilter{
		StudentID:     studentID,
		SubcategoryID: subcategoryID,
		Status:        ctx.Query("status"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Enrollments retrieved successfully", util.NewPageResponse(enrollments, total, page, limit))
}

// GetEnrollment godoc
// @Summary 报名详情
// @Description 包含学员、班级(含分类)与进度
// @Tags 报名
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "报名ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 404 {object} util.Response
// @Router /api/enrollments/{id} [get]
func (c *EnrollmentController) GetEnrollment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "enrollment")
	if !ok {
		return
	}

	enrollment, err := c.EnrollmentService.Get(ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Enrollment retrieved successfully", enrollment)
}

// CreateEnrollment godoc
// @Summary 报名班级
// @Description 创建报名记录并按当前课程目录生成初始学习进度
// @Tags 报名
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.EnrollRequest true "报名信息"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 404 {object} util.Response "学员或班级不存在"
// @Failure 409 {object} util.Response "重复报名"
// @Failure 422 {object} util.Response
// @Router /api/enrollments [post]
func (c *EnrollmentController) CreateEnrollment(ctx *gin.Context) {
	var req service.EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.UnprocessableEntity(ctx, "Invalid request body")
		return
	}

	enrollment, err := c.EnrollmentService.Enroll(ctx.Request.Context(), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Created(ctx, "Enrollment created successfully", enrollment)
}

// UpdateEnrollment godoc
// @Summary 修改报名
// @Description 仅可修改状态与报名时间
// @Tags 报名
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "报名ID"
// @Param body body service.UpdateEnrollmentRequest true "修改内容"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 404 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/enrollments/{id} [put]
func (c *EnrollmentController) UpdateEnrollment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "enrollment")
	if !ok {
		return
	}

	var req service.UpdateEnrollmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.UnprocessableEntity(ctx, "Invalid request body")
		return
	}

	enrollment, err := c.EnrollmentService.Update(ctx.Request.Context(), id, req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Enrollment updated successfully", enrollment)
}

// DeleteEnrollment godoc
// @Summary 退课
// @Description 在同一事务中删除学习进度和报名记录
// @Tags 报名
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "报名ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/enrollments/{id} [delete]
func (c *EnrollmentController) DeleteEnrollment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "enrollment")
	if !ok {
		return
	}

	if err := c.EnrollmentService.Unenroll(ctx.Request.Context(), id); err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Enrollment deleted successfully", nil)
}

// GetStudentEnrollments godoc
// @Summary 学员的报名列表
// @Description 按报名时间倒序分页
// @Tags 报名
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "学员ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Failure 404 {object} util.Response
// @Router /api/enrollments/student/{studentId} [get]
func (c *EnrollmentController) GetStudentEnrollments(ctx *gin.Context) {
	studentID, ok := pathID(ctx, "studentId", "student")
	if !ok {
		return
	}
	page, limit := util.ParsePagination(ctx.Query("page"), ctx.Query("limit"), util.DefaultPageSize)

	enrollments, total, err := c.EnrollmentService.ListByStudent(ctx.Request.Context(), studentID, page, limit)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Student enrollments retrieved successfully", util.NewPageResponse(enrollments, total, page, limit))
}
