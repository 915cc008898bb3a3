package models

import "time"

type MeetingProvider = string

const (
	MeetingProviderTeams = MeetingProvider("teams")
	MeetingProviderZoom  = MeetingProvider("zoom")
)

// Meeting is owned by the meetings subsystem; the transcript pipeline only
// reads it, except for OnlineJoinURL which it may backfill from the provider.
type Meeting struct {
	BaseModel

	Title           string    `json:"title"`
	Provider        string    `json:"provider"`
	ProviderEventID string    `json:"provider_event_id"`
	ProviderMailbox *string   `json:"provider_mailbox"`
	HostIdentity    *string   `json:"host_identity"`
	OnlineJoinURL   *string   `json:"online_join_url"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Duration        int       `json:"duration"`

	Attendees   []Attendee   `json:"attendees" gorm:"constraint:OnDelete:CASCADE"`
	Transcripts []Transcript `json:"transcripts" gorm:"constraint:OnDelete:CASCADE"`
}

// EndedAt is the scheduled end of the meeting, Duration being in minutes.
func (v Meeting) EndedAt() time.Time {
	return v.ScheduledAt.Add(time.Duration(v.Duration) * time.Minute)
}

type Attendee struct {
	BaseModel

	Name      string  `json:"name"`
	Email     *string `json:"email"`
	UserID    *uint   `json:"user_id"`
	MeetingID uint    `json:"meeting_id"`
}
