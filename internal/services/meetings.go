package services

import (
	"context"
	"time"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/meeting"
)

type MeetingService interface {
	Create(ctx context.Context, topic, kind string, startTime *time.Time) (*meeting.Meeting, error)
}

type meetingService struct {
	log      *logger.Logger
	provider meeting.Provider
}

func NewMeetingService(baseLog *logger.Logger, provider meeting.Provider) MeetingService {
	return &meetingService{log: baseLog.With("service", "MeetingService"), provider: provider}
}

func (s *meetingService) Create(ctx context.Context, topic, kind string, startTime *time.Time) (*meeting.Meeting, error) {
	if s.provider == nil {
		return nil, apperr.Upstream("Meeting provider is not configured", nil)
	}
	req, err := meeting.Request{Topic: topic, Kind: meeting.Kind(kind), StartTime: startTime}.Normalize()
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	m, err := s.provider.CreateMeeting(ctx, req)
	if err != nil {
		s.log.Error("failed to create meeting", "kind", req.Kind, "error", err)
		return nil, apperr.Upstream("Failed to create meeting", err)
	}
	return m, nil
}
