package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/testutil"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	DB          *gorm.DB
	Enrollments *EnrollmentService
	Progress    *ProgressService
}

func newTestEnv(t *testing.T, maxRetries int) *testEnv {
	t.Helper()
	db := testutil.DB(t)

	users := repository.NewUserRepository(db)
	catalog := repository.NewCatalogRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	progress := repository.NewProgressRepository(db)

	return &testEnv{
		DB:          db,
		Enrollments: NewEnrollmentService(db, users, catalog, enrollments, progress, nil),
		Progress:    NewProgressService(catalog, progress, enrollments, nil, maxRetries),
	}
}

func (e *testEnv) enroll(t *testing.T, studentID, subcategoryID uint) *model.Enrollment {
	t.Helper()
	enrollment, err := e.Enrollments.Enroll(context.Background(), EnrollRequest{
		StudentID:     studentID,
		SubcategoryID: subcategoryID,
	})
	require.NoError(t, err)
	require.NotNil(t, enrollment.Progress)
	return enrollment
}

func (e *testEnv) storedProgress(t *testing.T, enrollmentID uint) *model.Progress {
	t.Helper()
	var p model.Progress
	require.NoError(t, e.DB.Where("enrollment_id = ?", enrollmentID).First(&p).Error)
	return &p
}

func status(v int) *int {
	return &v
}

// seedScenarioCatalog 班级 5 -> 科目 10 -> 章节 100 -> 课时 1000/1001，学员 7
func seedScenarioCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []interface{}{
		&model.User{BaseModel: model.BaseModel{ID: 7}, FirstName: "Ada", Email: "ada@example.com", Password: "x", Role: model.Student},
		&model.Category{BaseModel: model.BaseModel{ID: 1}, Name: "Programming"},
		&model.SubCategory{BaseModel: model.BaseModel{ID: 5}, CategoryID: 1, Name: "Go Class"},
		&model.Subject{BaseModel: model.BaseModel{ID: 10}, SubcategoryID: 5, Name: "Basics"},
		&model.Chapter{BaseModel: model.BaseModel{ID: 100}, SubjectID: 10, Title: "Syntax"},
		&model.Lesson{BaseModel: model.BaseModel{ID: 1000}, ChapterID: 100, Title: "Variables"},
		&model.Lesson{BaseModel: model.BaseModel{ID: 1001}, ChapterID: 100, Title: "Functions"},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}
}

func repositoryFilter(enrollmentID, subcategoryID uint) repository.ProgressFilter {
	return repository.ProgressFilter{
		EnrollmentID:  enrollmentID,
		SubcategoryID: subcategoryID,
		Page:          1,
		Limit:         10,
	}
}
