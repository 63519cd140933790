package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/testutil"
	"edu_platform_backend/internal/util"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLessonProgressScenario(t *testing.T) {
	env := newTestEnv(t, 5)
	seedScenarioCatalog(t, env.DB)
	ctx := context.Background()

	enrollment := env.enroll(t, 7, 5)
	assert.Equal(t, model.ProgressMap{"10": {"100": {"1000": 0, "1001": 0}}}, enrollment.Progress.Lessons())
	assert.Zero(t, enrollment.Progress.CompletionPercentage)
	assert.NotNil(t, enrollment.Progress.LastAccessedAt)

	updated, err := env.Progress.UpdateLessonProgress(ctx, UpdateLessonProgressRequest{
		EnrollmentID: enrollment.ID, SubjectID: 10, ChapterID: 100, LessonID: 1000, Status: status(100),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProgressMap{"10": {"100": {"1000": 100, "1001": 0}}}, updated.Lessons())
	assert.InDelta(t, 50, updated.CompletionPercentage, 1e-9)

	updated, err = env.Progress.UpdateLessonProgress(ctx, UpdateLessonProgressRequest{
		EnrollmentID: enrollment.ID, SubjectID: 10, ChapterID: 100, LessonID: 1001, Status: status(100),
	})
	require.NoError(t, err)
	assert.InDelta(t, 100, updated.CompletionPercentage, 1e-9)

	stored := env.storedProgress(t, enrollment.ID)
	assert.Equal(t, model.ProgressMap{"10": {"100": {"1000": 100, "1001": 100}}}, stored.Lessons())
	assert.InDelta(t, 100, stored.CompletionPercentage, 1e-9)

	reset, err := env.Progress.ResetProgress(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressMap{"10": {"100": {"1000": 0, "1001": 0}}}, reset.Lessons())
	assert.Zero(t, reset.CompletionPercentage)

	stored = env.storedProgress(t, enrollment.ID)
	assert.Equal(t, model.ProgressMap{"10": {"100": {"1000": 0, "1001": 0}}}, stored.Lessons())
	assert.Zero(t, stored.CompletionPercentage)
}

func TestUpdateLessonProgressIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 5)
	seedScenarioCatalog(t, env.DB)
	enrollment := env.enroll(t, 7, 5)

	req := UpdateLessonProgressRequest{
		EnrollmentID: enrollment.ID, SubjectID: 10, ChapterID: 100, LessonID: 1000, Status: status(100),
	}
	first, err := env.Progress.UpdateLessonProgress(context.Background(), req)
	require.NoError(t, err)
	firstStored := env.storedProgress(t, enrollment.ID)

	second, err := env.Progress.UpdateLessonProgress(context.Background(), req)
	require.NoError(t, err)
	secondStored := env.storedProgress(t, enrollment.ID)

	assert.Equal(t, first.Lessons(), second.Lessons())
	assert.Equal(t, first.CompletionPercentage, second.CompletionPercentage)
	assert.Equal(t, firstStored.Lessons(), secondStored.Lessons())
	assert.Equal(t, firstStored.CompletionPercentage, secondStored.CompletionPercentage)
}

func TestUpdateLessonProgressStoresIntermediateValues(t *testing.T) {
	env := newTestEnv(t, 5)
	seedScenarioCatalog(t, env.DB)
	enrollment := env.enroll(t, 7, 5)

	for _, value := range []int{0, 40, 99} {
		updated, err := env.Progress.UpdateLessonProgress(context.Background(), UpdateLessonProgressRequest{
			EnrollmentID: enrollment.ID, SubjectID: 10, ChapterID: 100, LessonID: 1000, Status: status(value),
		})
		require.NoError(t, err)
		assert.Equal(t, value, updated.Lessons()["10"]["100"]["1000"])
		// 只有恰好等于 100 才算完成
		assert.Zero(t, updated.CompletionPercentage)
	}
}

func TestUpdateLessonProgressRejectsMismatchedChain(t *testing.T) {
	env := newTestEnv(t, 5)
	seedScenarioCatalog(t, env.DB)
	enrollment := env.enroll(t, 7, 5)

	// 章节 999 属于另一个科目
	other := testutil.SeedSubject(t, env.DB, 5)
	require.NoError(t, env.DB.Create(&model.Chapter{BaseModel: model.BaseModel{ID: 999}, SubjectID: other.ID, Title: "Elsewhere"}).Error)
	before := env.storedProgress(t, enrollment.ID)

	_, err := env.Progress.UpdateLessonProgress(context.Background(), UpdateLessonProgressRequest{
		EnrollmentID: enrollment.ID, SubjectID: 10, ChapterID: 999, LessonID: 1000, Status: status(50),
	})
	assert.ErrorIs(t, err, util.ErrChapterNotFound)
	assert.True(t, util.IsNotFound(err))

	after := env.storedProgress(t, enrollment.ID)
	assert.Equal(t, before.Lessons(), after.Lessons())
	assert.Equal(t, before.Version, after.Version)
}

func TestUpdateLessonProgressCheckOrder(t *testing.T) {
	env := newTestEnv(t, 5)
	seedScenarioCatalog(t, env.DB)
	enrollment := env.enroll(t, 7, 5)
	otherChapter := testutil.SeedChapter(t, env.DB, 10)

	tests := []struct {
		name string
		req  UpdateLessonProgressRequest
		want error
	}{
		{
			name: "subject checked first",
			req:  UpdateLessonProgressRequest{EnrollmentID: 424242, SubjectID: 404, ChapterID: 404, LessonID: 404},
			want: util.ErrSubjectNotFound,
		},
		{
			name: "chapter before lesson",
			req:  UpdateLessonProgressRequest{EnrollmentID: 424242, SubjectID: 10, ChapterID: 404, LessonID: 404},
			want: util.ErrChapterNotFound,
		},
		{
			name: "lesson must belong to chapter",
			req:  UpdateLessonProgressRequest{EnrollmentID: enrollment.ID, SubjectID: 10, ChapterID: otherChapter.ID, LessonID: 1000},
			want: util.ErrLessonNotFound,
		},
		{
			name: "progress checked last",
			req:  UpdateLessonProgressRequest{EnrollmentID: 424242, SubjectID: 10, ChapterID: 100, LessonID: 1000},
			want: util.ErrProgressNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Status = status(100)
			_, err := env.Progress.UpdateLessonProgress(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateLessonProgressValidation(t *testing.T) {
	env := newTestEnv(t, 5)

	tests := []struct {
		name string
		req  UpdateLessonProgressRequest
		msg  string
	}{
		{
			name: "missing status",
			req:  UpdateLessonProgressRequest{EnrollmentID: 1, SubjectID: 1, ChapterID: 1, LessonID: 1},
			msg:  "status is required",
		},
		{
			name: "status above 100",
			req:  UpdateLessonProgressRequest{EnrollmentID: 1, SubjectID: 1, ChapterID: 1, LessonID: 1, Status: status(101)},
			msg:  "status must be less than or equal to 100",
		},
		{
			name: "negative status",
			req:  UpdateLessonProgressRequest{EnrollmentID: 1, SubjectID: 1, ChapterID: 1, LessonID: 1, Status: status(-1)},
			msg:  "status must be greater than or equal to 0",
		},
		{
			name: "missing lesson",
			req:  UpdateLessonProgressRequest{EnrollmentID: 1, SubjectID: 1, ChapterID: 1, Status: status(10)},
			msg:  "lessonId is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Progress.UpdateLessonProgress(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, util.IsValidationError(err))
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestUpdateLessonProgressToleratesCatalogDrift(t *testing.T) {
	env := newTestEnv(t, 5)
	seedScenarioCatalog(t, env.DB)
	enrollment := env.enroll(t, 7, 5)

	// 报名之后新增的科目/章节/课时
	subject := testutil.SeedSubject(t, env.DB, 5)
	chapter := testutil.SeedChapter(t, env.DB, subject.ID)
	lesson := testutil.SeedLesson(t, env.DB, chapter.ID)

	updated, err := env.Progress.UpdateLessonProgress(context.Background(), UpdateLessonProgressRequest{
		EnrollmentID: enrollment.ID, SubjectID: subject.ID, ChapterID: chapter.ID, LessonID: lesson.ID, Status: status(100),
	})
	require.NoError(t, err)

	lessons := updated.Lessons()
	assert.Equal(t, 100, lessons[model.ProgressKey(subject.ID)][model.ProgressKey(chapter.ID)][model.ProgressKey(lesson.ID)])
	total, completed := lessons.Counts()
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, completed)
	assert.InDelta(t, 100.0/3, updated.CompletionPercentage, 1e-9)

	// 另一个新课时只有重置后才会出现
	late := testutil.SeedLesson(t, env.DB, 100)
	reset, err := env.Progress.ResetProgress(context.Background(), enrollment.ID)
	require.NoError(t, err)
	total, completed = reset.Lessons().Counts()
	assert.Equal(t, 4, total)
	assert.Zero(t, completed)
	assert.Contains(t, reset.Lessons()["10"]["100"], model.ProgressKey(late.ID))
}

func TestConcurrentLessonUpdatesAreNotLost(t *testing.T) {
	env := newTestEnv(t, 5)
	db := env.DB
	course := testutil.SeedCourse(t, db, [][]int{{4}})
	student := testutil.SeedStudent(t, db)
	enrollment := env.enroll(t, student.ID, course.SubCategory.ID)

	subject := course.Subjects[0]
	chapter := course.Chapters[subject.ID][0]
	lessons := course.Lessons[chapter.ID]

	var wg sync.WaitGroup
	errs := make([]error, len(lessons))
	for i, lesson := range lessons {
		wg.Add(1)
		go func(i int, lessonID uint) {
			defer wg.Done()
			_, errs[i] = env.Progress.UpdateLessonProgress(context.Background(), UpdateLessonProgressRequest{
				EnrollmentID: enrollment.ID,
				SubjectID:    subject.ID,
				ChapterID:    chapter.ID,
				LessonID:     lessonID,
				Status:       status(100),
			})
		}(i, lesson.ID)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	stored := env.storedProgress(t, enrollment.ID)
	for _, lesson := range lessons {
		assert.Equal(t, 100, stored.Lessons()[model.ProgressKey(subject.ID)][model.ProgressKey(chapter.ID)][model.ProgressKey(lesson.ID)])
	}
	assert.InDelta(t, 100, stored.CompletionPercentage, 1e-9)
	assert.EqualValues(t, len(lessons), stored.Version)
}

func TestUpdateLessonProgressGivesUpAfterRetries(t *testing.T) {
	env := newTestEnv(t, 2)
	seedScenarioCatalog(t, env.DB)
	enrollment := env.enroll(t, 7, 5)
	before := env.storedProgress(t, enrollment.ID)

	// 每次条件更新前都有"另一个写入者"抢先递增版本
	// 必须复用当前事务的连接，测试库只有一个连接
	require.NoError(t, env.DB.Callback().Update().Before("gorm:update").Register("test:bump_version", func(tx *gorm.DB) {
		if tx.Statement.Table == "progress" {
			tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE progress SET version = version + 1")
		}
	}))

	_, err := env.Progress.UpdateLessonProgress(context.Background(), UpdateLessonProgressRequest{
		EnrollmentID: enrollment.ID, SubjectID: 10, ChapterID: 100, LessonID: 1000, Status: status(100),
	})
	assert.ErrorIs(t, err, util.ErrProgressBusy)

	after := env.storedProgress(t, enrollment.ID)
	assert.Equal(t, before.Lessons(), after.Lessons())
	assert.Zero(t, after.CompletionPercentage)
}

func TestResetProgressErrors(t *testing.T) {
	env := newTestEnv(t, 5)
	seedScenarioCatalog(t, env.DB)

	_, err := env.Progress.ResetProgress(context.Background(), 31337)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)

	enrollment := env.enroll(t, 7, 5)
	require.NoError(t, env.DB.Where("enrollment_id = ?", enrollment.ID).Delete(&model.Progress{}).Error)

	_, err = env.Progress.ResetProgress(context.Background(), enrollment.ID)
	assert.ErrorIs(t, err, util.ErrProgressNotFound)
}

func TestProgressQueries(t *testing.T) {
	env := newTestEnv(t, 5)
	ctx := context.Background()
	seedScenarioCatalog(t, env.DB)
	enrollment := env.enroll(t, 7, 5)

	t.Run("by enrollment", func(t *testing.T) {
		p, err := env.Progress.GetByEnrollment(ctx, enrollment.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.Progress.ID, p.ID)
		require.NotNil(t, p.Enrollment)
		require.NotNil(t, p.Enrollment.Student)
		assert.Equal(t, "ada@example.com", p.Enrollment.Student.Email)
		assert.Empty(t, p.Enrollment.Student.Password)

		_, err = env.Progress.GetByEnrollment(ctx, 9999)
		assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
	})

	t.Run("by id", func(t *testing.T) {
		p, err := env.Progress.GetByID(ctx, enrollment.Progress.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.ID, p.EnrollmentID)
		require.NotNil(t, p.Subcategory)
		assert.Equal(t, "Go Class", p.Subcategory.Name)

		_, err = env.Progress.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, util.ErrProgressIDNotFound)
	})

	t.Run("by student", func(t *testing.T) {
		records, err := env.Progress.GetByStudent(ctx, 7)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, enrollment.ID, records[0].EnrollmentID)

		loner := testutil.SeedStudent(t, env.DB)
		_, err = env.Progress.GetByStudent(ctx, loner.ID)
		assert.ErrorIs(t, err, util.ErrNoStudentEnrollment)
	})

	t.Run("list", func(t *testing.T) {
		records, total, err := env.Progress.List(ctx, repositoryFilter(0, 5))
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, records, 1)

		_, _, err = env.Progress.List(ctx, repositoryFilter(0, 404))
		assert.ErrorIs(t, err, util.ErrSubcategoryNotFound)

		_, _, err = env.Progress.List(ctx, repositoryFilter(404, 0))
		assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)

		empty := testutil.SeedSubCategory(t, env.DB, 1)
		_, _, err = env.Progress.List(ctx, repositoryFilter(0, empty.ID))
		assert.ErrorIs(t, err, util.ErrNoProgressRecords)
	})
}
