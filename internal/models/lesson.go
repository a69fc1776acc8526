package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type LessonType string

const (
	LessonVideo    LessonType = "video"
	LessonPhysical LessonType = "physical"
	LessonOnline   LessonType = "online"
)

func (t LessonType) Valid() bool {
	switch t {
	case LessonVideo, LessonPhysical, LessonOnline:
		return true
	}
	return false
}

type MeetingType string

const (
	MeetingInstant  MeetingType = "instant"
	MeetingSchedule MeetingType = "schedule"
)

type VideoDetails struct {
	Name      string  `json:"name"`
	Video     Media   `json:"video"`
	Duration  float64 `json:"duration"`
	Thumbnail Media   `json:"thumbnail"`
}

type PhysicalDetails struct {
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"`
	Thumbnail Media     `json:"thumbnail"`
}

type OnlineDetails struct {
	Name        string      `json:"name"`
	MeetingType MeetingType `json:"meeting_type"`
	StartTime   *time.Time  `json:"start_time,omitempty"`
	MeetingURL  string      `json:"meeting_url"`
	MeetingID   string      `json:"meeting_id,omitempty"`
}

// Lesson is a tagged variant: exactly one of the detail payloads is set and it
// matches Type.
type Lesson struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	CourseID  uint       `gorm:"index;not null" json:"course_id"`
	Type      LessonType `gorm:"not null;index" json:"type"`

	Video    *VideoDetails    `gorm:"type:text;serializer:json" json:"video_details,omitempty"`
	Physical *PhysicalDetails `gorm:"type:text;serializer:json" json:"physical_details,omitempty"`
	Online   *OnlineDetails   `gorm:"type:text;serializer:json" json:"online_meeting_details,omitempty"`

	// ScheduledAt mirrors the online start time so scheduled lessons can be
	// ordered in SQL without reading the JSON payload.
	ScheduledAt *time.Time `gorm:"index" json:"-"`
}

func NewVideoLesson(courseID uint, d VideoDetails) (*Lesson, error) {
	l := &Lesson{CourseID: courseID, Type: LessonVideo, Video: &d}
	return l, l.Validate()
}

// NewPhysicalLesson derives the duration in minutes from the time window.
func NewPhysicalLesson(courseID uint, d PhysicalDetails) (*Lesson, error) {
	d.Duration = d.EndTime.Sub(d.StartTime).Minutes()
	l := &Lesson{CourseID: courseID, Type: LessonPhysical, Physical: &d}
	return l, l.Validate()
}

func NewOnlineLesson(courseID uint, d OnlineDetails) (*Lesson, error) {
	if d.MeetingType == "" {
		d.MeetingType = MeetingInstant
	}
	l := &Lesson{CourseID: courseID, Type: LessonOnline, Online: &d}
	if d.MeetingType == MeetingSchedule {
		l.ScheduledAt = d.StartTime
	}
	return l, l.Validate()
}

func (l *Lesson) Validate() error {
	if !l.Type.Valid() {
		return fmt.Errorf("invalid lesson type %q, must be one of video, physical, online", l.Type)
	}
	set := 0
	for _, present := range []bool{l.Video != nil, l.Physical != nil, l.Online != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return errors.New("lesson must carry exactly one detail payload")
	}

	switch l.Type {
	case LessonVideo:
		if l.Video == nil {
			return errors.New("video lesson requires video details")
		}
		if strings.TrimSpace(l.Video.Name) == "" {
			return errors.New("lesson name is required")
		}
		if l.Video.Video.IsZero() {
			return errors.New("video lesson requires a video file")
		}
	case LessonPhysical:
		if l.Physical == nil {
			return errors.New("physical lesson requires physical details")
		}
		if strings.TrimSpace(l.Physical.Name) == "" {
			return errors.New("lesson name is required")
		}
		if l.Physical.StartTime.IsZero() || l.Physical.EndTime.IsZero() {
			return errors.New("physical lesson requires start and end dates")
		}
		if !l.Physical.EndTime.After(l.Physical.StartTime) {
			return errors.New("end date must be after start date")
		}
	case LessonOnline:
		if l.Online == nil {
			return errors.New("online lesson requires meeting details")
		}
		if strings.TrimSpace(l.Online.Name) == "" {
			return errors.New("lesson name is required")
		}
		if l.Online.MeetingType != MeetingInstant && l.Online.MeetingType != MeetingSchedule {
			return fmt.Errorf("invalid meeting type %q", l.Online.MeetingType)
		}
		if l.Online.MeetingType == MeetingSchedule && l.Online.StartTime == nil {
			return errors.New("scheduled meeting requires a start time")
		}
		if strings.TrimSpace(l.Online.MeetingURL) == "" {
			return errors.New("online lesson requires a meeting url")
		}
	}
	return nil
}

func (l *Lesson) Name() string {
	switch {
	case l.Video != nil:
		return l.Video.Name
	case l.Physical != nil:
		return l.Physical.Name
	case l.Online != nil:
		return l.Online.Name
	}
	return ""
}

// Media lists the blobs this lesson owns. Online lessons own none.
func (l *Lesson) Media() []OwnedMedia {
	var out []OwnedMedia
	switch {
	case l.Video != nil:
		if !l.Video.Video.IsZero() {
			out = append(out, OwnedMedia{Media: l.Video.Video, Kind: MediaVideo})
		}
		if !l.Video.Thumbnail.IsZero() {
			out = append(out, OwnedMedia{Media: l.Video.Thumbnail, Kind: MediaImage})
		}
	case l.Physical != nil:
		if !l.Physical.Thumbnail.IsZero() {
			out = append(out, OwnedMedia{Media: l.Physical.Thumbnail, Kind: MediaImage})
		}
	}
	return out
}
