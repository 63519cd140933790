package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type StorageController struct {
	StorageService *service.StorageService
}

func NewStorageController(storageService *service.StorageService) *StorageController {
	return &StorageController{StorageService: storageService}
}

// GetUploadURL godoc
// @Summary 获取上传签名链接
// @Tags 存储
// @Produce json
// @Security ApiKeyAuth
// @Param fileName query string true "文件名"
// @Param fileType query string true "MIME 类型"
// @Success 200 {object} util.Response{data=service.SignedURL}
// @Failure 422 {object} util.Response
// @Router /api/storage/upload-url [get]
func (c *StorageController) GetUploadURL(ctx *gin.Context) {
	signed, err := c.StorageService.UploadURL(ctx.Request.Context(), ctx.Query("fileName"), ctx.Query("fileType"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Upload URL generated successfully", signed)
}

// GetDownloadURL godoc
// @Summary 获取下载签名链接
// @Tags 存储
// @Produce json
// @Security ApiKeyAuth
// @Param fileName query string true "对象键"
// @Param expiresIn query int false "有效期(秒)"
// @Success 200 {object} util.Response{data=service.SignedURL}
// @Failure 422 {object} util.Response
// @Router /api/storage/download-url [get]
func (c *StorageController) GetDownloadURL(ctx *gin.Context) {
	expiresIn := 0
	if raw := ctx.Query("expiresIn"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			util.UnprocessableEntity(ctx, "expiresIn must be a positive integer")
			return
		}
		expiresIn = v
	}

	signed, err := c.StorageService.DownloadURL(ctx.Request.Context(), ctx.Query("fileName"), expiresIn)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Download URL generated successfully", signed)
}

// GetLessonContentURL godoc
// @Summary 获取课时内容链接
// @Tags 存储
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.SignedURL}
// @Failure 404 {object} util.Response
// @Router /api/lessons/{id}/content-url [get]
func (c *StorageController) GetLessonContentURL(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "id", "lesson")
	if !ok {
		return
	}

	signed, err := c.StorageService.LessonContentURL(ctx.Request.Context(), lessonID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Lesson content URL generated successfully", signed)
}

// UploadLocal godoc
// @Summary 本地存储上传
// @Description 请求体为文件原始内容，对象键来自上传链接，仅本地存储模式可用
// @Tags 存储
// @Accept octet-stream
// @Produce json
// @Security ApiKeyAuth
// @Param key path string true "对象键"
// @Success 201 {object} util.Response{data=service.SignedURL}
// @Failure 413 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/storage/local/{key} [put]
func (c *StorageController) UploadLocal(ctx *gin.Context) {
	body := http.MaxBytesReader(ctx.Writer, ctx.Request.Body, service.MaxLocalUploadBytes)

	signed, err := c.StorageService.SaveLocal(ctx.Request.Context(), ctx.Param("key"), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.Error(ctx, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		handleServiceError(ctx, err)
		return
	}

	util.Created(ctx, "File uploaded successfully", signed)
}
