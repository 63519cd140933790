package model

// 课程目录：Category -> SubCategory(班级) -> Subject -> Chapter -> Lesson

// swagger:model Category
type Category struct {
	BaseModel
	Name          string        `gorm:"size:150;not null" json:"name"`
	SubCategories []SubCategory `gorm:"foreignKey:CategoryID" json:"subCategories,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

// swagger:model SubCategory
type SubCategory struct {
	BaseModel
	CategoryID uint      `gorm:"index;not null" json:"categoryId"`
	Name       string    `gorm:"size:150;not null" json:"name"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (SubCategory) TableName() string {
	return "sub_categories"
}

// swagger:model Subject
type Subject struct {
	BaseModel
	SubcategoryID uint   `gorm:"index;not null" json:"subcategoryId"`
	Name          string `gorm:"size:200;not null" json:"name"`
	Description   string `gorm:"type:text" json:"description,omitempty"`
}

func (Subject) TableName() string {
	return "subjects"
}

// swagger:model Chapter
type Chapter struct {
	BaseModel
	SubjectID   uint   `gorm:"index;not null" json:"subjectId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	ChapterID  uint   `gorm:"index;not null" json:"chapterId"`
	Title      string `gorm:"size:200;not null" json:"title"`
	ContentURL string `gorm:"size:500" json:"contentUrl,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}
