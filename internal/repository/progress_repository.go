package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProgressFilter struct {
	EnrollmentID  uint
	SubcategoryID uint
	Page          int
	Limit         int
}

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) Create(ctx context.Context, progress *model.Progress) error {
	return r.DB.WithContext(ctx).Create(progress).Error
}

func (r *ProgressRepository) FindByEnrollment(ctx context.Context, enrollmentID uint) (*model.Progress, error) {
	var progress model.Progress
	err := r.DB.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		First(&progress).Error
	return &progress, err
}

// FindByEnrollmentWithDetails 带学员与班级摘要，供查询接口使用
func (r *ProgressRepository) FindByEnrollmentWithDetails(ctx context.Context, enrollmentID uint) (*model.Progress, error) {
	var progress model.Progress
	err := r.DB.WithContext(ctx).
		Preload("Enrollment.Student", selectStudentSummary).
		Preload("Enrollment.Subcategory", selectSubcategorySummary).
		Where("enrollment_id = ?", enrollmentID).
		First(&progress).Error
	return &progress, err
}

func (r *ProgressRepository) FindByID(ctx context.Context, id uint) (*model.Progress, error) {
	var progress model.Progress
	err := r.DB.WithContext(ctx).
		Preload("Enrollment.Student", selectStudentSummary).
		Preload("Subcategory", selectSubcategorySummary).
		First(&progress, id).Error
	return &progress, err
}

func (r *ProgressRepository) List(ctx context.Context, filter ProgressFilter) ([]model.Progress, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Progress{})
	if filter.EnrollmentID != 0 {
		query = query.Where("enrollment_id = ?", filter.EnrollmentID)
	}
	if filter.SubcategoryID != 0 {
		query = query.Where("subcategory_id = ?", filter.SubcategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.Progress
	err := query.
		Preload("Enrollment.Student", selectStudentSummary).
		Preload("Subcategory", selectSubcategorySummary).
		Order("id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&records).Error
	return records, total, err
}

func (r *ProgressRepository) ListByEnrollmentIDs(ctx context.Context, enrollmentIDs []uint) ([]model.Progress, error) {
	var records []model.Progress
	if len(enrollmentIDs) == 0 {
		return records, nil
	}
	err := r.DB.WithContext(ctx).
		Preload("Subcategory", selectSubcategorySummary).
		Where("enrollment_id IN ?", enrollmentIDs).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// UpdateLessonsIfVersion 仅当版本号未变化时写入进度文档并递增版本
// 返回 false 表示期间被其他请求修改过
func (r *ProgressRepository) UpdateLessonsIfVersion(ctx context.Context, id, version uint, lessons model.ProgressMap, percentage float64, accessedAt time.Time) (bool, error) {
	result := r.DB.WithContext(ctx).
		Model(&model.Progress{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"progress":              datatypes.NewJSONType(lessons),
			"completion_percentage": percentage,
			"last_accessed_at":      accessedAt,
			"version":               gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Reset 无条件覆盖进度文档，同样递增版本使并发中的更新重新读取
func (r *ProgressRepository) Reset(ctx context.Context, id uint, lessons model.ProgressMap, accessedAt time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&model.Progress{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":              datatypes.NewJSONType(lessons),
			"completion_percentage": 0,
			"last_accessed_at":      accessedAt,
			"version":               gorm.Expr("version + 1"),
		}).Error
}

// CurrentVersion 只读取版本号，记录不存在时返回 gorm.ErrRecordNotFound
func (r *ProgressRepository) CurrentVersion(ctx context.Context, enrollmentID uint) (uint, error) {
	var versions []uint
	err := r.DB.WithContext(ctx).
		Model(&model.Progress{}).
		Where("enrollment_id = ?", enrollmentID).
		Limit(1).
		Pluck("version", &versions).Error
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return versions[0], nil
}

func (r *ProgressRepository) DeleteByEnrollment(ctx context.Context, enrollmentID uint) error {
	return r.DB.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Delete(&model.Progress{}).Error
}
