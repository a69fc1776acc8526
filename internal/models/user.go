package models

import (
	"time"

	"gorm.io/gorm"
)

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

func (s SkillLevel) Valid() bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
		return true
	}
	return false
}

// AccountState is derived from the verification fields, never stored.
type AccountState string

const (
	StateUnverified           AccountState = "unverified"
	StateOTPPending           AccountState = "otp-pending"
	StateVerifiedUnregistered AccountState = "verified-unregistered"
	StateRegistered           AccountState = "registered"
)

// Account is an end user. Email and phone are nullable so the partial unique
// indexes only bind live rows that actually carry the handle.
type Account struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name         string  `json:"name"`
	Email        *string `gorm:"uniqueIndex:idx_accounts_email,where:deleted_at IS NULL" json:"email,omitempty"`
	Phone        *string `gorm:"uniqueIndex:idx_accounts_phone,where:deleted_at IS NULL" json:"phone,omitempty"`
	PasswordHash string  `json:"-"`

	IsOtpVerified      bool       `gorm:"not null;default:false" json:"is_otp_verified"`
	IsRegistered       bool       `gorm:"not null;default:false" json:"is_registered"`
	Otp                string     `json:"-"`
	OtpExpiry          *time.Time `json:"-"`
	OtpCount           int        `gorm:"not null;default:0" json:"-"`
	OtpRestrictedUntil *time.Time `json:"-"`

	ResetPasswordRequest  bool `gorm:"not null;default:false" json:"-"`
	ResetPasswordVerified bool `gorm:"not null;default:false" json:"-"`

	ProfilePicture Media      `gorm:"embedded;embeddedPrefix:picture_" json:"profile_picture"`
	SkillLevel     SkillLevel `json:"skill_level,omitempty"`
	InterestID     *uint      `json:"interest_id,omitempty"`
	Interest       *Interest  `gorm:"constraint:OnDelete:SET NULL" json:"interest,omitempty"`

	Version int `gorm:"not null;default:0" json:"-"`

	Enrollments      []Enrollment      `gorm:"constraint:OnDelete:CASCADE" json:"enrollments,omitempty"`
	CompletedCourses []CompletedCourse `gorm:"constraint:OnDelete:CASCADE" json:"completed_courses,omitempty"`
}

func (a *Account) State() AccountState {
	switch {
	case a.IsRegistered:
		return StateRegistered
	case a.IsOtpVerified:
		return StateVerifiedUnregistered
	case a.Otp != "":
		return StateOTPPending
	default:
		return StateUnverified
	}
}

// HasCompleted reports whether CompletedCourses (when loaded) contains courseID.
func (a *Account) HasCompleted(courseID uint) bool {
	for _, cc := range a.CompletedCourses {
		if cc.CourseID == courseID {
			return true
		}
	}
	return false
}

type Admin struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
}

// FavoriteCourse is the single membership row behind both an account's
// favorites and a course's favourited-by set.
type FavoriteCourse struct {
	AccountID uint      `gorm:"primaryKey" json:"account_id"`
	CourseID  uint      `gorm:"primaryKey;index" json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CompletedCourse struct {
	AccountID   uint      `gorm:"primaryKey" json:"account_id"`
	CourseID    uint      `gorm:"primaryKey" json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type BlacklistedToken struct {
	Token     string    `gorm:"primaryKey;size:1024"`
	ExpiresAt time.Time `gorm:"index;not null"`
}
