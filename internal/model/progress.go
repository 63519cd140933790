package model

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// LessonCompleted 课时完成值，仅等于 100 才计入完成
const LessonCompleted = 100

// ProgressMap subjectId -> chapterId -> lessonId -> 完成度(0-100)
// 键为目录 id 的字符串形式，与持久化的 JSON 文档一致
type ProgressMap map[string]map[string]map[string]int

// ProgressKey 目录 id 转为进度文档中的键
func ProgressKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// EnsureChapter 确保 subject/chapter 分支存在并返回该章节的课时表
func (m ProgressMap) EnsureChapter(subjectKey, chapterKey string) map[string]int {
	chapters, ok := m[subjectKey]
	if !ok || chapters == nil {
		chapters = make(map[string]map[string]int)
		m[subjectKey] = chapters
	}
	lessons, ok := chapters[chapterKey]
	if !ok || lessons == nil {
		lessons = make(map[string]int)
		chapters[chapterKey] = lessons
	}
	return lessons
}

// SetLesson 覆盖写入某个课时的完成度，缺失的分支会被创建
func (m ProgressMap) SetLesson(subjectKey, chapterKey, lessonKey string, value int) {
	m.EnsureChapter(subjectKey, chapterKey)[lessonKey] = value
}

// Counts 统计整个文档的课时总数与完成数
func (m ProgressMap) Counts() (total, completed int) {
	for _, chapters := range m {
		for _, lessons := range chapters {
			for _, v := range lessons {
				total++
				if v == LessonCompleted {
					completed++
				}
			}
		}
	}
	return total, completed
}

// CompletionPercentage 完成课时数 / 课时总数 * 100，无课时时为 0
func (m ProgressMap) CompletionPercentage() float64 {
	total, completed := m.Counts()
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// Clone 深拷贝，修改前使用，避免污染已读取的记录
func (m ProgressMap) Clone() ProgressMap {
	out := make(ProgressMap, len(m))
	for s, chapters := range m {
		cc := make(map[string]map[string]int, len(chapters))
		for c, lessons := range chapters {
			lc := make(map[string]int, len(lessons))
			for l, v := range lessons {
				lc[l] = v
			}
			cc[c] = lc
		}
		out[s] = cc
	}
	return out
}

// Progress 每个报名对应一条学习进度记录
// swagger:model Progress
type Progress struct {
	ID                   uint                            `gorm:"primaryKey;autoIncrement" json:"id"`
	EnrollmentID         uint                            `gorm:"not null;uniqueIndex" json:"enrollmentId"`
	SubcategoryID        uint                            `gorm:"not null;index" json:"subcategoryId"`
	Map                  datatypes.JSONType[ProgressMap] `gorm:"column:progress;not null" json:"progress"`
	CompletionPercentage float64                         `gorm:"default:0" json:"completionPercentage"`
	LastAccessedAt       *time.Time                      `json:"lastAccessedAt"`
	// 乐观锁版本号，每次写入进度文档时递增
	Version     uint         `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Enrollment  *Enrollment  `gorm:"foreignKey:EnrollmentID" json:"enrollment,omitempty"`
	Subcategory *SubCategory `gorm:"foreignKey:SubcategoryID" json:"subcategory,omitempty"`
}

func (Progress) TableName() string {
	return "progress"
}

// Lessons 返回进度文档，空记录返回空表而不是 nil
func (p *Progress) Lessons() ProgressMap {
	m := p.Map.Data()
	if m == nil {
		return ProgressMap{}
	}
	return m
}
