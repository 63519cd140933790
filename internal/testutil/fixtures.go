package testutil

import (
	"edu_platform_backend/internal/model"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword 所有 fixture 用户的明文密码
const TestPassword = "password123"

func mustCreate(tb testing.TB, db *gorm.DB, value interface{}) {
	tb.Helper()
	if err := db.Create(value).Error; err != nil {
		tb.Fatalf("failed to seed %T: %v", value, err)
	}
}

func SeedUser(tb testing.TB, db *gorm.DB, role model.UserRole) *model.User {
	tb.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("failed to hash password: %v", err)
	}
	user := &model.User{
		FirstName: "Test",
		LastName:  string(role),
		Email:     uuid.NewString() + "@example.com",
		Password:  string(hashed),
		Role:      role,
	}
	mustCreate(tb, db, user)
	return user
}

func SeedStudent(tb testing.TB, db *gorm.DB) *model.User {
	tb.Helper()
	return SeedUser(tb, db, model.Student)
}

func SeedCategory(tb testing.TB, db *gorm.DB) *model.Category {
	tb.Helper()
	category := &model.Category{Name: "Category " + uuid.NewString()[:8]}
	mustCreate(tb, db, category)
	return category
}

// SeedSubCategory 未指定分类时自动创建一个
func SeedSubCategory(tb testing.TB, db *gorm.DB, categoryID uint) *model.SubCategory {
	tb.Helper()
	if categoryID == 0 {
		categoryID = SeedCategory(tb, db).ID
	}
	sub := &model.SubCategory{CategoryID: categoryID, Name: "Class " + uuid.NewString()[:8]}
	mustCreate(tb, db, sub)
	return sub
}

func SeedSubject(tb testing.TB, db *gorm.DB, subcategoryID uint) *model.Subject {
	tb.Helper()
	subject := &model.Subject{SubcategoryID: subcategoryID, Name: "Subject " + uuid.NewString()[:8]}
	mustCreate(tb, db, subject)
	return subject
}

func SeedChapter(tb testing.TB, db *gorm.DB, subjectID uint) *model.Chapter {
	tb.Helper()
	chapter := &model.Chapter{SubjectID: subjectID, Title: "Chapter " + uuid.NewString()[:8]}
	mustCreate(tb, db, chapter)
	return chapter
}

func SeedLesson(tb testing.TB, db *gorm.DB, chapterID uint) *model.Lesson {
	tb.Helper()
	lesson := &model.Lesson{ChapterID: chapterID, Title: "Lesson " + uuid.NewString()[:8]}
	mustCreate(tb, db, lesson)
	return lesson
}

// Course 一个班级下的完整目录
type Course struct {
	SubCategory *model.SubCategory
	Subjects    []*model.Subject
	Chapters    map[uint][]*model.Chapter
	Lessons     map[uint][]*model.Lesson
}

// SeedCourse 按 shape[i][j] 生成第 i 个科目第 j 个章节的课时数
func SeedCourse(tb testing.TB, db *gorm.DB, shape [][]int) *Course {
	tb.Helper()
	course := &Course{
		SubCategory: SeedSubCategory(tb, db, 0),
		Chapters:    make(map[uint][]*model.Chapter),
		Lessons:     make(map[uint][]*model.Lesson),
	}
	for _, chapters := range shape {
		subject := SeedSubject(tb, db, course.SubCategory.ID)
		course.Subjects = append(course.Subjects, subject)
		for _, lessonCount := range chapters {
			chapter := SeedChapter(tb, db, subject.ID)
			course.Chapters[subject.ID] = append(course.Chapters[subject.ID], chapter)
			for k := 0; k < lessonCount; k++ {
				course.Lessons[chapter.ID] = append(course.Lessons[chapter.ID], SeedLesson(tb, db, chapter.ID))
			}
		}
	}
	return course
}
