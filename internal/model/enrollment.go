package model

import "time"

const DefaultEnrollmentStatus = "active"

// Enrollment 学员报名某个班级(SubCategory)
// 不使用软删除：(student_id, subcategory_id) 唯一，退课后必须可以重新报名
// swagger:model Enrollment
type Enrollment struct {
	ID             uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID      uint         `gorm:"not null;uniqueIndex:idx_enrollment_student_subcategory" json:"studentId"`
	SubcategoryID  uint         `gorm:"not null;uniqueIndex:idx_enrollment_student_subcategory" json:"subcategoryId"`
	Status         string       `gorm:"size:50;default:'active'" json:"status"`
	EnrollmentDate time.Time    `gorm:"not null" json:"enrollmentDate"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Student        *User        `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Subcategory    *SubCategory `gorm:"foreignKey:SubcategoryID" json:"subcategory,omitempty"`
	Progress       *Progress    `gorm:"foreignKey:EnrollmentID" json:"progress,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
