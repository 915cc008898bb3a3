package services

import (
	"github.com/boardwalkhq/boardwalk/pkg/internal/database"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

func GetMeeting(id uint) (models.Meeting, error) {
	var meeting models.Meeting
	if err := database.C.
		Preload("Attendees").
		Where("id = ?", id).
		First(&meeting).Error; err != nil {
		return meeting, err
	}
	return meeting, nil
}

func GetMeetingByProviderEventID(provider models.MeetingProvider, eventID string) (models.Meeting, error) {
	var meeting models.Meeting
	if err := database.C.
		Preload("Attendees").
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		First(&meeting).Error; err != nil {
		return meeting, err
	}
	return meeting, nil
}

// FindMeetingByProviderIDs returns the first meeting whose provider event id
// matches any of the candidates, in candidate order. Webhook payloads often
// carry several ids for the same meeting (numeric id, instance UUID) and any
// of them may be the one we stored.
func FindMeetingByProviderIDs(provider models.MeetingProvider, candidates ...string) (models.Meeting, bool) {
	for _, candidate := range candidates {
		if len(candidate) == 0 {
			continue
		}
		if meeting, err := GetMeetingByProviderEventID(provider, candidate); err == nil {
			return meeting, true
		}
	}
	return models.Meeting{}, false
}

// SaveMeetingJoinURL backfills a join URL discovered during provider-side
// resolution. Failures are logged only; the ingestion that triggered the
// discovery must not fail over a bookkeeping write.
func SaveMeetingJoinURL(meeting models.Meeting, joinURL string) {
	if err := database.C.Model(&models.Meeting{}).
		Where("id = ?", meeting.ID).
		Update("online_join_url", joinURL).Error; err != nil {
		log.Warn().Err(err).Uint("meeting", meeting.ID).
			Msg("An error occurred when saving the discovered join url...")
	}
}
