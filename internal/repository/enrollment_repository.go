package repository

import (
	"context"
	"edu_platform_backend/internal/model"

	"gorm.io/gorm"
)

// EnrollmentFilter 报名列表筛选条件，零值表示不过滤
type EnrollmentFilter struct {
	StudentID     uint
	SubcategoryID uint
	Status        string
	Page          int
	Limit         int
}

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

// 学员信息只返回公开字段
func selectStudentSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "first_name", "last_name", "email")
}

func selectSubcategorySummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "category_id")
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.DB.WithContext(ctx).Create(enrollment).Error
}

// FindByID 带学员、班级(含分类)和进度
func (r *EnrollmentRepository) FindByID(ctx context.Context, id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Student", selectStudentSummary).
		Preload("Subcategory.Category").
		Preload("Progress").
		First(&enrollment, id).Error
	return &enrollment, err
}

// Get 不带关联，用于存在性检查
func (r *EnrollmentRepository) Get(ctx context.Context, id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).First(&enrollment, id).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) FindByStudentAndSubcategory(ctx context.Context, studentID, subcategoryID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND subcategory_id = ?", studentID, subcategoryID).
		First(&enrollment).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) List(ctx context.Context, filter EnrollmentFilter) ([]model.Enrollment, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Enrollment{})
	if filter.StudentID != 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.SubcategoryID != 0 {
		query = query.Where("subcategory_id = ?", filter.SubcategoryID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var enrollments []model.Enrollment
	offset := (filter.Page - 1) * filter.Limit
	err := query.
		Preload("Student", selectStudentSummary).
		Preload("Subcategory", selectSubcategorySummary).
		Order("id DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&enrollments).Error
	return enrollments, total, err
}

// ListByStudent 按报名时间倒序
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID uint, page, limit int) ([]model.Enrollment, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Enrollment{}).Where("student_id = ?", studentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var enrollments []model.Enrollment
	err := query.
		Preload("Subcategory.Category").
		Preload("Progress").
		Order("enrollment_date DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&enrollments).Error
	return enrollments, total, err
}

func (r *EnrollmentRepository) IDsByStudent(ctx context.Context, studentID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("student_id = ?", studentID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *EnrollmentRepository) Updates(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete 返回实际删除的行数
func (r *EnrollmentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.DB.WithContext(ctx).Delete(&model.Enrollment{}, id)
	return result.RowsAffected, result.Error
}
