package util

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrStudentNotFound     = errors.New("Student not found")
	ErrSubcategoryNotFound = errors.New("Subcategory not found")
	ErrSubjectNotFound     = errors.New("Subject not found")
	ErrChapterNotFound     = errors.New("Chapter not found or does not belong to the specified subject")
	ErrLessonNotFound      = errors.New("Lesson not found or does not belong to the specified chapter")
	ErrEnrollmentNotFound  = errors.New("Enrollment not found")
	ErrProgressNotFound    = errors.New("Progress not found for this enrollment")
	ErrProgressIDNotFound  = errors.New("Progress not found")
	ErrLessonIDNotFound    = errors.New("Lesson not found")
	ErrLessonNoContent     = errors.New("Lesson has no content")
	ErrNoEnrollments       = errors.New("No enrollments found")
	ErrNoProgressRecords   = errors.New("No progress records found")
	ErrNoStudentEnrollment = errors.New("No enrollments found for this student")
	ErrNoStudentProgress   = errors.New("No progress records found for this student")

	ErrAlreadyEnrolled    = errors.New("Student is already enrolled in this Class")
	ErrProgressBusy       = errors.New("Progress is being updated concurrently, please retry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
)

var notFoundErrors = []error{
	ErrStudentNotFound,
	ErrSubcategoryNotFound,
	ErrSubjectNotFound,
	ErrChapterNotFound,
	ErrLessonNotFound,
	ErrEnrollmentNotFound,
	ErrProgressNotFound,
	ErrProgressIDNotFound,
	ErrLessonIDNotFound,
	ErrLessonNoContent,
	ErrNoEnrollments,
	ErrNoProgressRecords,
	ErrNoStudentEnrollment,
	ErrNoStudentProgress,
}

// NotFoundTarget 返回 err 链中匹配的“实体不存在”哨兵错误
func NotFoundTarget(err error) (error, bool) {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// IsNotFound 判断是否为“实体不存在”类错误
func IsNotFound(err error) bool {
	_, ok := NotFoundTarget(err)
	return ok
}

// ValidationError 输入校验失败
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FromValidator 将 validator 的错误转为可读的校验信息，只取第一条
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError(err.Error())
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return NewValidationError(field + " is required")
	case "min":
		return NewValidationError(field + " must be greater than or equal to " + fe.Param())
	case "max":
		return NewValidationError(field + " must be less than or equal to " + fe.Param())
	case "gt":
		return NewValidationError(field + " must be greater than " + fe.Param())
	default:
		return NewValidationError(field + " is invalid")
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
