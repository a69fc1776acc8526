package models

import (
	"math"
	"time"
)

type Enrollment struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AccountID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_account_course" json:"user_id"`
	CourseID    uint      `gorm:"not null;uniqueIndex:idx_enrollment_account_course;index" json:"course_id"`
	Course      *Course   `gorm:"constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Contract    Media     `gorm:"embedded;embeddedPrefix:contract_" json:"contract"`
	IsSign      bool      `gorm:"not null;default:false" json:"is_sign"`
	Progress    int       `gorm:"not null;default:0" json:"progress"`
	IsCompleted bool      `gorm:"not null;default:false" json:"is_completed"`

	LessonsProgress []EnrollmentLesson `gorm:"constraint:OnDelete:CASCADE" json:"lessons_progress"`
}

type EnrollmentLesson struct {
	ID           uint      `gorm:"primarykey" json:"-"`
	EnrollmentID uint      `gorm:"not null;uniqueIndex:idx_enrollment_lesson" json:"-"`
	LessonID     uint      `gorm:"not null;uniqueIndex:idx_enrollment_lesson" json:"lesson_id"`
	Completed    bool      `gorm:"not null;default:false" json:"completed"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProgressPercent is round(100 * completed / total), clamped to [0, 100].
// A course without lessons has no measurable progress.
func ProgressPercent(completed, total int64) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	if p > 100 {
		return 100
	}
	return p
}
