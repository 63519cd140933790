package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/testutil"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMirrorsCatalog(t *testing.T) {
	db := testutil.DB(t)
	course := testutil.SeedCourse(t, db, [][]int{{2, 0, 3}, {1}})

	// 其它班级的目录不应出现
	testutil.SeedCourse(t, db, [][]int{{4}})

	gen := NewProgressStructureGenerator(repository.NewCatalogRepository(db))
	structure, err := gen.Generate(context.Background(), course.SubCategory.ID)
	require.NoError(t, err)

	require.Len(t, structure, 2)
	chapterCount, lessonCount := 0, 0
	for _, subject := range course.Subjects {
		chapters := structure[model.ProgressKey(subject.ID)]
		require.NotNil(t, chapters)
		assert.Len(t, chapters, len(course.Chapters[subject.ID]))
		for _, chapter := range course.Chapters[subject.ID] {
			chapterCount++
			lessons, ok := chapters[model.ProgressKey(chapter.ID)]
			require.True(t, ok)
			assert.Len(t, lessons, len(course.Lessons[chapter.ID]))
			for _, lesson := range course.Lessons[chapter.ID] {
				lessonCount++
				value, ok := lessons[model.ProgressKey(lesson.ID)]
				require.True(t, ok)
				assert.Equal(t, 0, value)
			}
		}
	}

	total, completed := structure.Counts()
	assert.Equal(t, 4, chapterCount)
	assert.Equal(t, 6, lessonCount)
	assert.Equal(t, 6, total)
	assert.Equal(t, 0, completed)
}

func TestGenerateEmptySubcategory(t *testing.T) {
	db := testutil.DB(t)
	sub := testutil.SeedSubCategory(t, db, 0)
	subject := testutil.SeedSubject(t, db, sub.ID)

	gen := NewProgressStructureGenerator(repository.NewCatalogRepository(db))
	structure, err := gen.Generate(context.Background(), sub.ID)
	require.NoError(t, err)

	// 没有章节的科目仍保留空分支
	assert.Equal(t, model.ProgressMap{model.ProgressKey(subject.ID): {}}, structure)
	assert.Zero(t, structure.CompletionPercentage())
}

type failingCatalog struct {
	failOn string
}

var errCatalogDown = errors.New("catalog unavailable")

func (f failingCatalog) ListSubjects(ctx context.Context, subcategoryID uint) ([]model.Subject, error) {
	if f.failOn == "subjects" {
		return nil, errCatalogDown
	}
	return []model.Subject{{BaseModel: model.BaseModel{ID: 1}}}, nil
}

func (f failingCatalog) ListChapters(ctx context.Context, subjectID uint) ([]model.Chapter, error) {
	if f.failOn == "chapters" {
		return nil, errCatalogDown
	}
	return []model.Chapter{{BaseModel: model.BaseModel{ID: 2}}}, nil
}

func (f failingCatalog) ListLessons(ctx context.Context, chapterID uint) ([]model.Lesson, error) {
	if f.failOn == "lessons" {
		return nil, errCatalogDown
	}
	return []model.Lesson{{BaseModel: model.BaseModel{ID: 3}}}, nil
}

func TestGeneratePropagatesCatalogErrors(t *testing.T) {
	for _, stage := range []string{"subjects", "chapters", "lessons"} {
		t.Run(stage, func(t *testing.T) {
			structure, err := NewProgressStructureGenerator(failingCatalog{failOn: stage}).Generate(context.Background(), 5)
			assert.ErrorIs(t, err, errCatalogDown)
			assert.Nil(t, structure)
		})
	}

	structure, err := NewProgressStructureGenerator(failingCatalog{}).Generate(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressMap{"1": {"2": {"3": 0}}}, structure)
}
