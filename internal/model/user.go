package model

type UserRole string

const (
	Student    UserRole = "student"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	FirstName     string   `gorm:"size:100;not null" json:"firstName"`
	LastName      string   `gorm:"size:100" json:"lastName"`
	Email         string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password      string   `gorm:"size:100;not null" json:"-"`
	Role          UserRole `gorm:"size:20;default:'student'" json:"role"`
	EmailVerified bool     `gorm:"default:false" json:"emailVerified"`
}

func (User) TableName() string {
	return "users"
}

