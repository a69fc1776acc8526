package models

import (
	"time"
)

type Language string

const (
	LanguageEnglish Language = "English"
	LanguageFrench  Language = "French"
	LanguageOther   Language = "Other"
)

func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageFrench, LanguageOther:
		return true
	}
	return false
}

type Course struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"not null" json:"description"`
	Price       float64   `gorm:"not null;check:price >= 0" json:"price"`
	InterestID  *uint     `gorm:"index" json:"interest_id,omitempty"`
	Interest    *Interest `gorm:"constraint:OnDelete:SET NULL" json:"interest,omitempty"`
	Language    Language  `gorm:"not null;default:English" json:"language"`
	Thumbnail   Media     `gorm:"embedded;embeddedPrefix:thumbnail_" json:"thumbnail"`
	Intro       Media     `gorm:"embedded;embeddedPrefix:intro_" json:"course_intro"`
	Views       int       `gorm:"not null;default:0;index" json:"views"`

	Lessons []Lesson `gorm:"constraint:OnDelete:CASCADE" json:"lessons"`
	Reviews []Review `gorm:"constraint:OnDelete:CASCADE" json:"reviews"`
}

// Media lists every blob owned by the course, lessons included when loaded.
func (c *Course) Media() []OwnedMedia {
	out := make([]OwnedMedia, 0, 2+2*len(c.Lessons))
	if !c.Thumbnail.IsZero() {
		out = append(out, OwnedMedia{Media: c.Thumbnail, Kind: MediaImage})
	}
	if !c.Intro.IsZero() {
		out = append(out, OwnedMedia{Media: c.Intro, Kind: MediaVideo})
	}
	for i := range c.Lessons {
		out = append(out, c.Lessons[i].Media()...)
	}
	return out
}

// CourseView records that a viewer has already been counted.
type CourseView struct {
	CourseID  uint      `gorm:"primaryKey"`
	ViewerID  uint      `gorm:"primaryKey"`
	CreatedAt time.Time
}

type Review struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	CourseID   uint      `gorm:"index;not null" json:"course_id"`
	AccountID  uint      `gorm:"index;not null" json:"user_id"`
	Account    *Account  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment    string    `gorm:"not null" json:"comment"`
	IsApproved bool      `gorm:"not null;default:false;index" json:"approved"`
}

type Interest struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Image     Media     `gorm:"embedded;embeddedPrefix:image_" json:"image"`
}
