package services

import (
	"context"
	"testing"
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/database"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/providers"
	"github.com/boardwalkhq/boardwalk/pkg/internal/subtitle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	result *providers.Result
	err    error
}

func (s stubStrategy) FetchTranscript(ctx context.Context, meeting models.Meeting) (*providers.Result, error) {
	return s.result, s.err
}

func TestMapCueUtterancesAttribution(t *testing.T) {
	attendees := []models.Attendee{
		{Name: "Alice Smith", Email: strPtr("Alice@Example.com"), UserID: uintPtr(11)},
		{Name: "Bob Jones", UserID: uintPtr(22)},
		{Name: "No Account"},
	}

	cues := []subtitle.Cue{
		{Text: "Email wins over the mismatching name.", SpeakerName: "Somebody Else", SpeakerEmail: "alice@example.com"},
		{Text: "Name match, case-insensitive.", SpeakerName: "bob jones"},
		{Text: "Roster hit without a linked account.", SpeakerName: "No Account"},
		{Text: "Unknown speaker.", SpeakerName: "Guest"},
		{Text: "No speaker at all."},
	}

	utterances := MapCueUtterances(cues, attendees)
	require.Len(t, utterances, 5)

	require.NotNil(t, utterances[0].UserID)
	assert.Equal(t, uint(11), *utterances[0].UserID)
	assert.Equal(t, "Somebody Else", *utterances[0].SpeakerName)

	require.NotNil(t, utterances[1].UserID)
	assert.Equal(t, uint(22), *utterances[1].UserID)

	assert.Nil(t, utterances[2].UserID)
	assert.Nil(t, utterances[3].UserID)

	assert.Nil(t, utterances[4].UserID)
	assert.Nil(t, utterances[4].SpeakerName)

	for idx, utterance := range utterances {
		assert.Equal(t, idx, utterance.Position)
	}
}

func TestIngestTranscriptEndToEnd(t *testing.T) {
	newTestDB(t)
	meeting := seedMeeting(t, models.Meeting{
		Title:           "Quarterly Review",
		Provider:        models.MeetingProviderTeams,
		ProviderEventID: "evt-1",
		ScheduledAt:     time.Now().Add(-2 * time.Hour),
		Duration:        60,
		Attendees: []models.Attendee{
			{Name: "Alice Smith", Email: strPtr("alice@example.com"), UserID: uintPtr(11)},
		},
	})

	track := "WEBVTT\n" +
		"\n" +
		"00:00:01.000 --> 00:00:02.000\n" +
		"Alice Smith <alice@example.com>: Point one.\n" +
		"\n" +
		"00:00:03.000 --> 00:00:04.000\n" +
		"Alice Smith <alice@example.com>: Point two.\n" +
		"\n" +
		"00:00:05.000 --> 00:00:06.000\n" +
		"Point three, unattributed.\n"

	strategies = map[models.MeetingProvider]providers.Strategy{
		models.MeetingProviderTeams: stubStrategy{result: &providers.Result{
			TranscriptID: "tr-1",
			Content:      []byte(track),
			Meta:         map[string]any{"status": "completed"},
		}},
	}

	count, err := IngestTranscript(context.Background(), meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stored, err := GetMeetingTranscript(meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, "tr-1", stored.ProviderTranscriptID)
	require.Len(t, stored.Utterances, 3)
	require.NotNil(t, stored.Utterances[0].UserID)
	assert.Equal(t, uint(11), *stored.Utterances[0].UserID)
	assert.Nil(t, stored.Utterances[2].UserID)

	// A corrected track replaces the stored one wholesale.
	revised := "WEBVTT\n" +
		"\n" +
		"00:00:01.000 --> 00:00:02.000\n" +
		"Alice Smith <alice@example.com>: Only point.\n" +
		"\n" +
		"00:00:03.000 --> 00:00:04.000\n" +
		"Closing remark.\n"

	strategies[models.MeetingProviderTeams] = stubStrategy{result: &providers.Result{
		TranscriptID: "tr-2",
		Content:      []byte(revised),
	}}

	count, err = IngestTranscript(context.Background(), meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored, err = GetMeetingTranscript(meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, "tr-2", stored.ProviderTranscriptID)
	require.Len(t, stored.Utterances, 2)
	assert.Equal(t, "Only point.", stored.Utterances[0].Text)
}

func TestIngestTranscriptUnsupportedProvider(t *testing.T) {
	newTestDB(t)
	meeting := seedMeeting(t, models.Meeting{Provider: "carrier-pigeon", ProviderEventID: "evt-1"})

	strategies = map[models.MeetingProvider]providers.Strategy{}

	_, err := IngestTranscript(context.Background(), meeting.ID)

	var unsupported *providers.UnsupportedProviderError
	require.ErrorAs(t, err, &unsupported)
}

func TestIngestTranscriptEmptyTrackIsNotReady(t *testing.T) {
	newTestDB(t)
	meeting := seedMeeting(t, models.Meeting{Provider: models.MeetingProviderZoom, ProviderEventID: "evt-1"})

	strategies = map[models.MeetingProvider]providers.Strategy{
		models.MeetingProviderZoom: stubStrategy{result: &providers.Result{
			TranscriptID: "tr-1",
			Content:      []byte("WEBVTT\n"),
		}},
	}

	_, err := IngestTranscript(context.Background(), meeting.ID)

	var notReady *providers.NotReadyError
	require.ErrorAs(t, err, &notReady)

	var transcriptCount int64
	require.NoError(t, database.C.Model(&models.Transcript{}).Count(&transcriptCount).Error)
	assert.Equal(t, int64(0), transcriptCount)
}
