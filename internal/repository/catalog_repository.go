package repository

import (
	"context"
	"edu_platform_backend/internal/model"

	"gorm.io/gorm"
)

// CatalogRepository 课程目录只读访问：班级、科目、章节、课时
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

// WithTx 返回绑定到事务的副本
func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: tx}
}

func (r *CatalogRepository) FindSubCategory(ctx context.Context, id uint) (*model.SubCategory, error) {
	var sub model.SubCategory
	err := r.DB.WithContext(ctx).First(&sub, id).Error
	return &sub, err
}

func (r *CatalogRepository) ListSubjects(ctx context.Context, subcategoryID uint) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.WithContext(ctx).
		Where("subcategory_id = ?", subcategoryID).
		Order("id ASC").
		Find(&subjects).Error
	return subjects, err
}

func (r *CatalogRepository) ListChapters(ctx context.Context, subjectID uint) ([]model.Chapter, error) {
	var chapters []model.Chapter
	err := r.DB.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("id ASC").
		Find(&chapters).Error
	return chapters, err
}

func (r *CatalogRepository) ListLessons(ctx context.Context, chapterID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Where("chapter_id = ?", chapterID).
		Order("id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *CatalogRepository) FindSubject(ctx context.Context, id uint) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.WithContext(ctx).First(&subject, id).Error
	return &subject, err
}

// FindChapter 只有章节属于该科目时才返回
func (r *CatalogRepository) FindChapter(ctx context.Context, id, subjectID uint) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.WithContext(ctx).
		Where("id = ? AND subject_id = ?", id, subjectID).
		First(&chapter).Error
	return &chapter, err
}

// FindLesson 只有课时属于该章节时才返回
func (r *CatalogRepository) FindLesson(ctx context.Context, id, chapterID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).
		Where("id = ? AND chapter_id = ?", id, chapterID).
		First(&lesson).Error
	return &lesson, err
}

func (r *CatalogRepository) FindLessonByID(ctx context.Context, id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).First(&lesson, id).Error
	return &lesson, err
}
