package models

import (
	"errors"
	"time"
)

// Author identifies who wrote a question or answer: exactly one of the two ids.
type Author struct {
	UserID  *uint `json:"user_id,omitempty"`
	AdminID *uint `json:"admin_id,omitempty"`
}

func UserAuthor(id uint) Author  { return Author{UserID: &id} }
func AdminAuthor(id uint) Author { return Author{AdminID: &id} }

func (a Author) Validate() error {
	if (a.UserID == nil) == (a.AdminID == nil) {
		return errors.New("exactly one of user or admin must author the entry")
	}
	return nil
}

// Owns reports whether a authored an entry written by other.
func (a Author) Owns(other Author) bool {
	switch {
	case a.UserID != nil && other.UserID != nil:
		return *a.UserID == *other.UserID
	case a.AdminID != nil && other.AdminID != nil:
		return *a.AdminID == *other.AdminID
	}
	return false
}

type Question struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Question  string    `gorm:"not null" json:"question"`
	Author    `gorm:"embedded"`
	Answers   []Answer `gorm:"constraint:OnDelete:CASCADE" json:"answers"`
}

type Answer struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	QuestionID uint      `gorm:"index;not null" json:"question_id"`
	Content    string    `gorm:"not null" json:"content"`
	Author     `gorm:"embedded"`
}

type Banner struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `json:"title,omitempty"`
	Image     Media     `gorm:"embedded;embeddedPrefix:image_" json:"image"`
}

type Contact struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Message   string    `gorm:"not null" json:"message"`
}
