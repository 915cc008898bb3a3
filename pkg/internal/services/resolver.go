package services

import (
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/database"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/spf13/viper"
)

// OnlineMeetingResolver maps a provider-side online meeting id from a
// webhook notification back to a stored meeting. It sits behind an interface
// so the webhook handlers can be tested without a database.
type OnlineMeetingResolver interface {
	ResolveOnlineMeeting(onlineMeetingID string) (models.Meeting, bool)
}

type dbMeetingResolver struct{}

func NewMeetingResolver() OnlineMeetingResolver {
	return dbMeetingResolver{}
}

// ResolveOnlineMeeting prefers an exact provider event id match. Failing
// that, notifications reference the conference thread rather than the
// calendar event, so fall back to the most recent conference meeting whose
// scheduled window overlaps the sweep window.
func (dbMeetingResolver) ResolveOnlineMeeting(onlineMeetingID string) (models.Meeting, bool) {
	if meeting, ok := FindMeetingByProviderIDs(models.MeetingProviderTeams, onlineMeetingID); ok {
		return meeting, true
	}

	window := viper.GetInt("pipeline.sweep_window_hours")
	if window <= 0 {
		window = 12
	}
	threshold := time.Now().Add(-time.Duration(window) * time.Hour)

	var meeting models.Meeting
	if err := database.C.
		Preload("Attendees").
		Where("provider = ? AND scheduled_at >= ?", models.MeetingProviderTeams, threshold).
		Order("scheduled_at DESC").
		First(&meeting).Error; err != nil {
		return meeting, false
	}
	return meeting, true
}
