package services

import (
	"context"
	"strings"

	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/providers"
	"github.com/boardwalkhq/boardwalk/pkg/internal/subtitle"
	"github.com/rs/zerolog/log"
)

var strategies = map[models.MeetingProvider]providers.Strategy{}

// SetupProviders builds the per-provider transcript strategies. Must be
// called once after configuration is loaded and before any ingestion runs.
func SetupProviders() {
	teams := providers.NewTeamsStrategy()
	teams.SaveJoinURL = SaveMeetingJoinURL

	strategies = map[models.MeetingProvider]providers.Strategy{
		models.MeetingProviderTeams: teams,
		models.MeetingProviderZoom:  providers.NewZoomStrategy(),
	}
}

// IngestTranscript runs the whole pipeline for one meeting: locate the
// transcript at the provider, download it, parse the subtitle track,
// attribute speakers against the attendee roster and persist the result.
// It returns the number of utterances stored.
func IngestTranscript(ctx context.Context, meetingID uint) (int, error) {
	meeting, err := GetMeeting(meetingID)
	if err != nil {
		return 0, err
	}

	if len(meeting.Provider) == 0 || len(meeting.ProviderEventID) == 0 {
		return 0, &providers.ConfigurationError{Reason: "the meeting carries no provider binding to ingest from"}
	}
	strategy, ok := strategies[meeting.Provider]
	if !ok {
		return 0, &providers.UnsupportedProviderError{Provider: meeting.Provider}
	}

	result, err := strategy.FetchTranscript(ctx, meeting)
	if err != nil {
		return 0, err
	}

	cues := subtitle.Parse(string(result.Content))
	if len(cues) == 0 {
		return 0, &providers.NotReadyError{Hint: "the downloaded transcript contains no usable cues yet; try again shortly"}
	}

	utterances := MapCueUtterances(cues, meeting.Attendees)
	transcript, err := UpsertTranscript(meeting.ID, meeting.Provider, result.TranscriptID, result.Meta, utterances)
	if err != nil {
		return 0, err
	}

	log.Info().Uint("meeting", meeting.ID).Str("provider", meeting.Provider).
		Int("utterances", len(utterances)).
		Msg("Ingested a meeting transcript.")

	if err := NotifyTranscriptIngested(meeting, transcript); err != nil {
		log.Warn().Err(err).Uint("meeting", meeting.ID).
			Msg("An error occurred when delivering the transcript notification...")
	}

	return len(utterances), nil
}

// MapCueUtterances turns parsed cues into utterance rows, resolving each
// speaker against the attendee roster. An email match wins over a name
// match; both are case-insensitive.
func MapCueUtterances(cues []subtitle.Cue, attendees []models.Attendee) []models.Utterance {
	byEmail := make(map[string]*models.Attendee)
	byName := make(map[string]*models.Attendee)
	for idx := range attendees {
		attendee := &attendees[idx]
		if attendee.Email != nil && len(*attendee.Email) > 0 {
			byEmail[strings.ToLower(*attendee.Email)] = attendee
		}
		if len(attendee.Name) > 0 {
			byName[strings.ToLower(attendee.Name)] = attendee
		}
	}

	out := make([]models.Utterance, 0, len(cues))
	for idx, cue := range cues {
		utterance := models.Utterance{
			Position: idx,
			Start:    cue.Start,
			End:      cue.End,
			Text:     cue.Text,
		}
		if len(cue.SpeakerName) > 0 {
			utterance.SpeakerName = &cues[idx].SpeakerName
		}
		if len(cue.SpeakerEmail) > 0 {
			utterance.SpeakerEmail = &cues[idx].SpeakerEmail
		}

		var attendee *models.Attendee
		if len(cue.SpeakerEmail) > 0 {
			attendee = byEmail[strings.ToLower(cue.SpeakerEmail)]
		}
		if attendee == nil && len(cue.SpeakerName) > 0 {
			attendee = byName[strings.ToLower(cue.SpeakerName)]
		}
		if attendee != nil {
			utterance.UserID = attendee.UserID
		}

		out = append(out, utterance)
	}

	return out
}
