package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// CatalogReader 生成进度结构所需的目录查询
type CatalogReader interface {
	ListSubjects(ctx context.Context, subcategoryID uint) ([]model.Subject, error)
	ListChapters(ctx context.Context, subjectID uint) ([]model.Chapter, error)
	ListLessons(ctx context.Context, chapterID uint) ([]model.Lesson, error)
}

// ProgressStructureGenerator 按当前目录生成全 0 的进度文档
type ProgressStructureGenerator struct {
	Catalog CatalogReader
}

func NewProgressStructureGenerator(catalog CatalogReader) *ProgressStructureGenerator {
	return &ProgressStructureGenerator{Catalog: catalog}
}

// Generate 遍历 班级 -> 科目 -> 章节 -> 课时，每个课时初始化为 0
// 班级是否存在由调用方保证；任何查询失败直接返回，不产生部分结果
func (g *ProgressStructureGenerator) Generate(ctx context.Context, subcategoryID uint) (model.ProgressMap, error) {
	ctx, span := tracing.Tracer().Start(ctx, "ProgressStructureGenerator.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int64("subcategory.id", int64(subcategoryID)))

	subjects, err := g.Catalog.ListSubjects(ctx, subcategoryID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	structure := make(model.ProgressMap, len(subjects))
	lessonCount := 0
	for _, subject := range subjects {
		subjectKey := model.ProgressKey(subject.ID)
		structure[subjectKey] = make(map[string]map[string]int)

		chapters, err := g.Catalog.ListChapters(ctx, subject.ID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		for _, chapter := range chapters {
			lessons, err := g.Catalog.ListLessons(ctx, chapter.ID)
			if err != nil {
				span.RecordError(err)
				return nil, err
			}

			chapterLessons := structure.EnsureChapter(subjectKey, model.ProgressKey(chapter.ID))
			for _, lesson := range lessons {
				chapterLessons[model.ProgressKey(lesson.ID)] = 0
				lessonCount++
			}
		}
	}

	span.SetAttributes(
		attribute.Int("progress.subjects", len(structure)),
		attribute.Int("progress.lessons", lessonCount),
	)
	return structure, nil
}
