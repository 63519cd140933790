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
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UpdateLessonProgressRequest 单个课时的进度更新
type UpdateLessonProgressRequest struct {
	EnrollmentID uint `json:"-" validate:"required"`
	SubjectID    uint `json:"subjectId" validate:"required"`
	ChapterID    uint `json:"chapterId" validate:"required"`
	LessonID     uint `json:"lessonId" validate:"required"`
	Status       *int `json:"status" validate:"required,min=0,max=100"`
}

type ProgressService struct {
	CatalogRepo    *repository.CatalogRepository
	ProgressRepo   *repository.ProgressRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Generator      *ProgressStructureGenerator
	Cache          ProgressCache
	MaxRetries     int
	validate       *validator.Validate
}

func NewProgressService(
	catalogRepo *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	cache ProgressCache,
	maxRetries int,
) *ProgressService {
	if cache == nil {
		cache = noopProgressCache{}
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ProgressService{
		CatalogRepo:    catalogRepo,
		ProgressRepo:   progressRepo,
		EnrollmentRepo: enrollmentRepo,
		Generator:      NewProgressStructureGenerator(catalogRepo),
		Cache:          cache,
		MaxRetries:     maxRetries,
		validate:       newValidator(),
	}
}

// lookup 将记录不存在转为 found=false，其它错误原样返回
func lookup(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// UpdateLessonProgress 写入单个课时的完成度并重算整份文档的完成百分比
func (s *ProgressService) UpdateLessonProgress(ctx context.Context, req UpdateLessonProgressRequest) (*model.Progress, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, util.FromValidator(err)
	}

	ctx, span := tracing.Tracer().Start(ctx, "ProgressService.UpdateLessonProgress")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("enrollment.id", int64(req.EnrollmentID)),
		attribute.Int64("lesson.id", int64(req.LessonID)),
	)

	// 四项前置检查互不依赖，并发读取后按固定顺序判定
	var (
		subjectFound, chapterFound, lessonFound, progressFound bool
		progress                                               *model.Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.CatalogRepo.FindSubject(gctx, req.SubjectID)
		subjectFound, err = lookup(err)
		return err
	})
	g.Go(func() error {
		_, err := s.CatalogRepo.FindChapter(gctx, req.ChapterID, req.SubjectID)
		chapterFound, err = lookup(err)
		return err
	})
	g.Go(func() error {
		_, err := s.CatalogRepo.FindLesson(gctx, req.LessonID, req.ChapterID)
		lessonFound, err = lookup(err)
		return err
	})
	g.Go(func() error {
		p, err := s.ProgressRepo.FindByEnrollment(gctx, req.EnrollmentID)
		progressFound, err = lookup(err)
		progress = p
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	switch {
	case !subjectFound:
		return nil, util.ErrSubjectNotFound
	case !chapterFound:
		return nil, util.ErrChapterNotFound
	case !lessonFound:
		return nil, util.ErrLessonNotFound
	case !progressFound:
		return nil, util.ErrProgressNotFound
	}

	subjectKey := model.ProgressKey(req.SubjectID)
	chapterKey := model.ProgressKey(req.ChapterID)
	lessonKey := model.ProgressKey(req.LessonID)

	for attempt := 1; ; attempt++ {
		lessons := progress.Lessons().Clone()
		lessons.SetLesson(subjectKey, chapterKey, lessonKey, *req.Status)
		percentage := lessons.CompletionPercentage()
		now := time.Now()

		ok, err := s.ProgressRepo.UpdateLessonsIfVersion(ctx, progress.ID, progress.Version, lessons, percentage, now)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if ok {
			progress.Map = datatypes.NewJSONType(lessons)
			progress.CompletionPercentage = percentage
			progress.LastAccessedAt = &now
			progress.UpdatedAt = now
			progress.Version++
			break
		}

		monitoring.ProgressUpdateConflicts.Inc()
		if attempt >= s.MaxRetries {
			logger.Log.Warn("Progress update retries exhausted",
				zap.Uint("enrollment_id", req.EnrollmentID),
				zap.Int("attempts", attempt),
			)
			return nil, util.ErrProgressBusy
		}

		// 其他请求已写入，重新读取后在最新文档上重放本次修改
		progress, err = s.ProgressRepo.FindByEnrollment(ctx, req.EnrollmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrProgressNotFound
			}
			return nil, err
		}
	}

	s.Cache.Invalidate(ctx, req.EnrollmentID)
	monitoring.LessonProgressUpdates.Inc()
	span.SetAttributes(attribute.Float64("progress.completion", progress.CompletionPercentage))
	return progress, nil
}

// ResetProgress 按当前目录重新生成全 0 文档，是唯一与目录变化重新同步的途径
func (s *ProgressService) ResetProgress(ctx context.Context, enrollmentID uint) (*model.Progress, error) {
	ctx, span := tracing.Tracer().Start(ctx, "ProgressService.ResetProgress")
	defer span.End()
	span.SetAttributes(attribute.Int64("enrollment.id", int64(enrollmentID)))

	if _, err := s.EnrollmentRepo.Get(ctx, enrollmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEnrollmentNotFound
		}
		return nil, err
	}

	progress, err := s.ProgressRepo.FindByEnrollment(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProgressNotFound
		}
		return nil, err
	}

	lessons, err := s.Generator.Generate(ctx, progress.SubcategoryID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.ProgressRepo.Reset(ctx, progress.ID, lessons, now); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.Cache.Invalidate(ctx, enrollmentID)
	monitoring.ProgressResets.Inc()
	logger.Log.Info("Progress reset", zap.Uint("enrollment_id", enrollmentID))

	progress.Map = datatypes.NewJSONType(lessons)
	progress.CompletionPercentage = 0
	progress.LastAccessedAt = &now
	progress.UpdatedAt = now
	progress.Version++
	return progress, nil
}

func (s *ProgressService) GetByEnrollment(ctx context.Context, enrollmentID uint) (*model.Progress, error) {
	if cached, ok := s.Cache.Get(ctx, enrollmentID); ok {
		return cached, nil
	}

	if _, err := s.EnrollmentRepo.Get(ctx, enrollmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEnrollmentNotFound
		}
		return nil, err
	}

	progress, err := s.ProgressRepo.FindByEnrollmentWithDetails(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProgressNotFound
		}
		return nil, err
	}

	s.Cache.Set(ctx, progress)

	// 读库与回填之间若有写入提交，回填的是旧文档；写入方的失效已先执行，这里补一次
	current, err := s.ProgressRepo.CurrentVersion(ctx, enrollmentID)
	if err != nil || current != progress.Version {
		s.Cache.Invalidate(ctx, enrollmentID)
	}
	return progress, nil
}

func (s *ProgressService) GetByStudent(ctx context.Context, studentID uint) ([]model.Progress, error) {
	ids, err := s.EnrollmentRepo.IDsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, util.ErrNoStudentEnrollment
	}

	records, err := s.ProgressRepo.ListByEnrollmentIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, util.ErrNoStudentProgress
	}
	return records, nil
}

func (s *ProgressService) GetByID(ctx context.Context, id uint) (*model.Progress, error) {
	progress, err := s.ProgressRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProgressIDNotFound
		}
		return nil, err
	}
	return progress, nil
}

// List 筛选条件中的报名或班级不存在时返回对应的不存在错误
func (s *ProgressService) List(ctx context.Context, filter repository.ProgressFilter) ([]model.Progress, int64, error) {
	if filter.EnrollmentID != 0 {
		if _, err := s.EnrollmentRepo.Get(ctx, filter.EnrollmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, util.ErrEnrollmentNotFound
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

	records, total, err := s.ProgressRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, util.ErrNoProgressRecords
	}
	return records, total, nil
}
