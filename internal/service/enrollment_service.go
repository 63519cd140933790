package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/logger"
	"edu_platform_backend/pkg/monitoring"
	"edu_platform_backend/pkg/tracing"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EnrollRequest struct {
	StudentID      uint       `json:"studentId" validate:"required"`
	SubcategoryID  uint       `json:"subcategoryId" validate:"required"`
	Status         string     `json:"status" validate:"omitempty,max=50"`
	EnrollmentDate *time.Time `json:"enrollmentDate"`
}

// UpdateEnrollmentRequest 只允许修改状态和报名时间，学员与班级不可变
type UpdateEnrollmentRequest struct {
	Status         *string    `json:"status" validate:"omitempty,min=1,max=50"`
	EnrollmentDate *time.Time `json:"enrollmentDate"`
}

type EnrollmentService struct {
	DB             *gorm.DB
	UserRepo       *repository.UserRepository
	CatalogRepo    *repository.CatalogRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.ProgressRepository
	Cache          ProgressCache
	validate       *validator.Validate
}

func NewEnrollmentService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	catalogRepo *repository.CatalogRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	cache ProgressCache,
) *EnrollmentService {
	if cache == nil {
		cache = noopProgressCache{}
	}
	return &EnrollmentService{
		DB:             db,
		UserRepo:       userRepo,
		CatalogRepo:    catalogRepo,
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
		Cache:          cache,
		validate:       newValidator(),
	}
}

// Enroll 在同一事务内创建报名记录和初始进度，任何一步失败都整体回滚
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*model.Enrollment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, util.FromValidator(err)
	}

	ctx, span := tracing.Tracer().Start(ctx, "EnrollmentService.Enroll")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("student.id", int64(req.StudentID)),
		attribute.Int64("subcategory.id", int64(req.SubcategoryID)),
	)

	status := req.Status
	if status == "" {
		status = model.DefaultEnrollmentStatus
	}
	enrollmentDate := time.Now()
	if req.EnrollmentDate != nil {
		enrollmentDate = *req.EnrollmentDate
	}

	var enrollmentID uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.UserRepo.WithTx(tx)
		catalog := s.CatalogRepo.WithTx(tx)
		enrollments := s.EnrollmentRepo.WithTx(tx)
		progresses := s.ProgressRepo.WithTx(tx)

		if _, err := users.FindByID(ctx, req.StudentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrStudentNotFound
			}
			return err
		}
		if _, err := catalog.FindSubCategory(ctx, req.SubcategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrSubcategoryNotFound
			}
			return err
		}

		_, err := enrollments.FindByStudentAndSubcategory(ctx, req.StudentID, req.SubcategoryID)
		if err == nil {
			return util.ErrAlreadyEnrolled
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		enrollment := &model.Enrollment{
			StudentID:      req.StudentID,
			SubcategoryID:  req.SubcategoryID,
			Status:         status,
			EnrollmentDate: enrollmentDate,
		}
		if err := enrollments.Create(ctx, enrollment); err != nil {
			// 并发报名由唯一索引兜底
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrAlreadyEnrolled
			}
			return err
		}

		structure, err := NewProgressStructureGenerator(catalog).Generate(ctx, req.SubcategoryID)
		if err != nil {
			return err
		}

		now := time.Now()
		progress := &model.Progress{
			EnrollmentID:         enrollment.ID,
			SubcategoryID:        req.SubcategoryID,
			Map:                  datatypes.NewJSONType(structure),
			CompletionPercentage: 0,
			LastAccessedAt:       &now,
		}
		if err := progresses.Create(ctx, progress); err != nil {
			return err
		}

		enrollmentID = enrollment.ID
		return nil
	})
	if err != nil {
		if !util.IsNotFound(err) && !errors.Is(err, util.ErrAlreadyEnrolled) {
			span.RecordError(err)
			logger.Log.Error("Enrollment rolled back",
				zap.Uint("student_id", req.StudentID),
				zap.Uint("subcategory_id", req.SubcategoryID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	monitoring.EnrollmentsCreated.Inc()
	logger.Log.Info("Enrollment created",
		zap.Uint("enrollment_id", enrollmentID),
		zap.Uint("student_id", req.StudentID),
		zap.Uint("subcategory_id", req.SubcategoryID),
	)

	return s.EnrollmentRepo.FindByID(ctx, enrollmentID)
}

// Unenroll 先删除进度再删除报名，两者在同一事务内
func (s *EnrollmentService) Unenroll(ctx context.Context, enrollmentID uint) error {
	ctx, span := tracing.Tracer().Start(ctx, "EnrollmentService.Unenroll")
	defer span.End()
	span.SetAttributes(attribute.Int64("enrollment.id", int64(enrollmentID)))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollments := s.EnrollmentRepo.WithTx(tx)

		if _, err := enrollments.Get(ctx, enrollmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrEnrollmentNotFound
			}
			return err
		}

		if err := s.ProgressRepo.WithTx(tx).DeleteByEnrollment(ctx, enrollmentID); err != nil {
			return err
		}

		deleted, err := enrollments.Delete(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return util.ErrEnrollmentNotFound
		}
		return nil
	})
	if err != nil {
		if !util.IsNotFound(err) {
			span.RecordError(err)
			logger.Log.Error("Unenroll rolled back", zap.Uint("enrollment_id", enrollmentID), zap.Error(err))
		}
		return err
	}

	s.Cache.Invalidate(ctx, enrollmentID)
	monitoring.EnrollmentsDeleted.Inc()
	logger.Log.Info("Enrollment deleted", zap.Uint("enrollment_id", enrollmentID))
	return nil
}

func (s *EnrollmentService) Get(ctx context.Context, id uint) (*model.Enrollment, error) {
	enrollment, err := s.EnrollmentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return enrollment, nil
}

func (s *EnrollmentService) Update(ctx context.Context, id uint, req UpdateEnrollmentRequest) (*model.Enrollment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, util.FromValidator(err)
	}
	if req.Status == nil && req.EnrollmentDate == nil {
		return nil, util.NewValidationError("status or enrollmentDate is required")
	}

	if _, err := s.EnrollmentRepo.Get(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEnrollmentNotFound
		}
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.EnrollmentDate != nil {
		fields["enrollment_date"] = *req.EnrollmentDate
	}
	if err := s.EnrollmentRepo.Updates(ctx, id, fields); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// List 筛选条件中的学员或班级不存在时返回对应的不存在错误
func (s *EnrollmentService) List(ctx context.Context, filter repository.EnrollmentFilter) ([]model.Enrollment, int64, error) {
	if filter.StudentID != 0 {
		if _, err := s.UserRepo.FindByID(ctx, filter.StudentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, util.ErrStudentNotFound
			}
			return nil, 0, err
		}
	}
	if filter.SubcategoryID != 0 {
		if _, err := s.CatalogRepo.FindSubCategory(ctx, filter.SubcategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, util.ErrSubcategoryNotFound
			}
			return nil, 0, err
		}
	}

	enrollments, total, err := s.EnrollmentRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if len(enrollments) == 0 {
		return nil, 0, util.ErrNoEnrollments
	}
	return enrollments, total, nil
}

func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID uint, page, limit int) ([]model.Enrollment, int64, error) {
	if _, err := s.UserRepo.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, util.ErrStudentNotFound
		}
		return nil, 0, err
	}

	enrollments, total, err := s.EnrollmentRepo.ListByStudent(ctx, studentID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	if len(enrollments) == 0 {
		return nil, 0, util.ErrNoStudentEnrollment
	}
	return enrollments, total, nil
}
