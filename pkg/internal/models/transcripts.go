package models

import (
	"time"

	"gorm.io/datatypes"
)

// Transcript is unique per (meeting, provider); re-ingesting the same meeting
// updates the row in place and wholly replaces its utterances.
type Transcript struct {
	BaseModel

	MeetingID            uint              `json:"meeting_id" gorm:"uniqueIndex:idx_transcripts_meeting_provider"`
	Provider             string            `json:"provider" gorm:"uniqueIndex:idx_transcripts_meeting_provider"`
	ProviderTranscriptID string            `json:"provider_transcript_id"`
	IngestedAt           time.Time         `json:"ingested_at"`
	ProviderMeta         datatypes.JSONMap `json:"provider_meta"`

	Utterances []Utterance `json:"utterances" gorm:"constraint:OnDelete:CASCADE"`
}

// Utterance is one persisted cue, ordered by Position within its transcript.
// Start and End are offsets from the beginning of the recording.
type Utterance struct {
	BaseModel

	TranscriptID uint          `json:"transcript_id"`
	Position     int           `json:"position"`
	Start        time.Duration `json:"start"`
	End          time.Duration `json:"end"`
	Text         string        `json:"text"`
	SpeakerName  *string       `json:"speaker_name"`
	SpeakerEmail *string       `json:"speaker_email"`
	UserID       *uint         `json:"user_id"`
}
