package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/fetch"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/tokens"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"golang.org/x/sync/singleflight"
)

// joinURLThreadRe extracts the conference thread id embedded in a join URL,
// which is the only handle some events ever get when the provider never
// materializes a distinct online-meeting record.
var joinURLThreadRe = regexp.MustCompile(`19(?:%3[aA]|:)meeting_([A-Za-z0-9+/=%-]+?)(?:%40|@)thread\.v2`)

// TeamsStrategy locates transcripts through the calendar/meeting provider's
// REST surface, falling back from the primary to the secondary API surface
// on retryable failures.
type TeamsStrategy struct {
	client         *http.Client
	supplier       *tokens.Supplier
	sf             singleflight.Group
	endpoints      []string
	defaultMailbox string

	// SaveJoinURL persists a join URL discovered during resolution back onto
	// the meeting record; nil disables the write-back.
	SaveJoinURL func(meeting models.Meeting, joinURL string)
}

func NewTeamsStrategy() *TeamsStrategy {
	endpoints := viper.GetStringSlice("teams.endpoints")
	if len(endpoints) == 0 {
		endpoints = []string{
			"https://graph.microsoft.com/v1.0",
			"https://graph.microsoft.com/beta",
		}
	}

	tenant := viper.GetString("teams.tenant_id")
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", viper.GetString("teams.client_id"))
	form.Set("client_secret", viper.GetString("teams.client_secret"))
	form.Set("scope", "https://graph.microsoft.com/.default")

	return &TeamsStrategy{
		client: &http.Client{Timeout: 30 * time.Second},
		supplier: &tokens.Supplier{
			TokenURL: fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(tenant)),
			Form:     form,
		},
		endpoints:      endpoints,
		defaultMailbox: viper.GetString("teams.default_mailbox"),
	}
}

// teamsTransientCodes are opaque provider error codes that mark a failure as
// transient regardless of the HTTP status it rode in on.
var teamsTransientCodes = map[string]struct{}{
	"UnknownError":        {},
	"generalException":    {},
	"serviceNotAvailable": {},
}

func teamsRetryable(f fetch.Failure) bool {
	if f.Err != nil {
		return true
	}
	switch f.Status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusTooManyRequests:
		return true
	}
	if f.Status >= 500 {
		return true
	}
	_, ok := teamsTransientCodes[f.Code]
	return ok
}

// token serializes refreshes through a singleflight group; the supplier
// itself is not concurrency-safe.
func (s *TeamsStrategy) token(ctx context.Context) (string, error) {
	value, err, _ := s.sf.Do("token", func() (any, error) {
		return s.supplier.Token(ctx)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (s *TeamsStrategy) FetchTranscript(ctx context.Context, meeting models.Meeting) (*Result, error) {
	mailbox, err := s.resolveMailbox(meeting)
	if err != nil {
		return nil, err
	}

	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	onlineID, err := s.resolveOnlineMeetingID(ctx, token, mailbox, meeting)
	if err != nil {
		return nil, err
	}

	entry, err := s.selectTranscript(ctx, token, mailbox, onlineID)
	if err != nil {
		return nil, err
	}

	content, err := s.downloadTranscript(ctx, token, mailbox, onlineID, entry.ID)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, &NotReadyError{Hint: "the transcript exists but has no content yet; try again shortly"}
	}

	return &Result{
		TranscriptID: entry.ID,
		Content:      content,
		Meta: map[string]any{
			"online_meeting_id": onlineID,
			"mailbox":           mailbox,
			"status":            entry.Status,
			"created":           entry.CreatedDateTime,
		},
	}, nil
}

// resolveMailbox picks the mailbox the provider calls are issued against:
// explicit per-meeting mailbox, else the host identity, else the configured
// default.
func (s *TeamsStrategy) resolveMailbox(meeting models.Meeting) (string, error) {
	if meeting.ProviderMailbox != nil && len(*meeting.ProviderMailbox) > 0 {
		return *meeting.ProviderMailbox, nil
	}
	if meeting.HostIdentity != nil && len(*meeting.HostIdentity) > 0 {
		return *meeting.HostIdentity, nil
	}
	if len(s.defaultMailbox) > 0 {
		return s.defaultMailbox, nil
	}
	return "", &ConfigurationError{Reason: "no mailbox is set on the meeting, no host identity is known, and no default mailbox is configured"}
}

// resolveOnlineMeetingID finds the provider-side conference id for the
// calendar event, trying the direct lookup, then the expanded event, then a
// pattern match on the join URL.
func (s *TeamsStrategy) resolveOnlineMeetingID(ctx context.Context, token, mailbox string, meeting models.Meeting) (string, error) {
	eventPath := fmt.Sprintf("/users/%s/events/%s", url.PathEscape(mailbox), url.PathEscape(meeting.ProviderEventID))

	resp, err := fetch.Do(ctx, s.client, s.variants(token, eventPath+"/onlineMeeting"), graphErrorCode, teamsRetryable)
	if err == nil {
		var payload struct {
			ID string `json:"id"`
		}
		_ = jsoniter.Unmarshal(resp.Body, &payload)
		if len(payload.ID) > 0 {
			return payload.ID, nil
		}
	} else if isStatus(err, http.StatusNotFound) {
		return "", &NotFoundError{Resource: "the meeting"}
	} else if ctx.Err() != nil {
		return "", ctx.Err()
	}

	var joinURL string
	resp, err = fetch.Do(ctx, s.client, s.variants(token, eventPath+"?$expand=onlineMeeting"), graphErrorCode, teamsRetryable)
	if err == nil {
		var payload struct {
			OnlineMeeting struct {
				ID      string `json:"id"`
				JoinURL string `json:"joinUrl"`
			} `json:"onlineMeeting"`
			OnlineMeetingURL string `json:"onlineMeetingUrl"`
		}
		_ = jsoniter.Unmarshal(resp.Body, &payload)

		joinURL = payload.OnlineMeeting.JoinURL
		if len(joinURL) == 0 {
			joinURL = payload.OnlineMeetingURL
		}
		if len(joinURL) > 0 && meeting.OnlineJoinURL == nil && s.SaveJoinURL != nil {
			s.SaveJoinURL(meeting, joinURL)
		}

		if len(payload.OnlineMeeting.ID) > 0 {
			return payload.OnlineMeeting.ID, nil
		}
	} else if isStatus(err, http.StatusNotFound) {
		return "", &NotFoundError{Resource: "the meeting"}
	} else if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if len(joinURL) == 0 && meeting.OnlineJoinURL != nil {
		joinURL = *meeting.OnlineJoinURL
	}
	if id := OnlineMeetingIDFromJoinURL(joinURL); len(id) > 0 {
		return id, nil
	}

	return "", &ConfigurationError{Reason: "the calendar event is not a conference-enabled event"}
}

// OnlineMeetingIDFromJoinURL recovers the conference thread id embedded in a
// join URL; it returns "" when the URL carries none.
func OnlineMeetingIDFromJoinURL(joinURL string) string {
	match := joinURLThreadRe.FindStringSubmatch(joinURL)
	if match == nil {
		return ""
	}
	fragment := match[1]
	if decoded, err := url.QueryUnescape(fragment); err == nil {
		fragment = decoded
	}
	return "19:meeting_" + fragment + "@thread.v2"
}

type transcriptEntry struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	CreatedDateTime time.Time `json:"createdDateTime"`
}

// transcriptDone reports whether an entry's status counts as finished. An
// absent status is treated as ready; the provider omits the field on some
// API surfaces even for completed transcripts.
func transcriptDone(status string) bool {
	switch strings.ToLower(status) {
	case "", "completed", "complete", "ready", "published", "succeeded", "success":
		return true
	}
	return false
}

func (s *TeamsStrategy) selectTranscript(ctx context.Context, token, mailbox, onlineID string) (*transcriptEntry, error) {
	path := fmt.Sprintf("/users/%s/onlineMeetings/%s/transcripts", url.PathEscape(mailbox), url.PathEscape(onlineID))

	resp, err := fetch.Do(ctx, s.client, s.variants(token, path), graphErrorCode, teamsRetryable)
	if err != nil {
		// The provider overloads 400 for "processing not finished".
		if isStatus(err, http.StatusBadRequest) {
			return nil, &NotReadyError{Hint: "the transcript is not available yet; the provider has not finished processing the recording"}
		}
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}

	var payload struct {
		Value []transcriptEntry `json:"value"`
	}
	if err := jsoniter.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decoding transcript listing: %w", err)
	}

	done := lo.Filter(payload.Value, func(entry transcriptEntry, _ int) bool {
		if !transcriptDone(entry.Status) {
			log.Debug().Str("transcript", entry.ID).Str("status", entry.Status).
				Msg("Skipping transcript entry that is not finished yet...")
			return false
		}
		return true
	})
	if len(done) == 0 {
		return nil, &NotReadyError{Hint: "no transcript has been published for this meeting yet"}
	}

	pick := lo.MaxBy(done, func(a transcriptEntry, b transcriptEntry) bool {
		return a.CreatedDateTime.After(b.CreatedDateTime)
	})
	return &pick, nil
}

func (s *TeamsStrategy) downloadTranscript(ctx context.Context, token, mailbox, onlineID, transcriptID string) ([]byte, error) {
	path := fmt.Sprintf(
		"/users/%s/onlineMeetings/%s/transcripts/%s/content?$format=text/vtt",
		url.PathEscape(mailbox), url.PathEscape(onlineID), url.PathEscape(transcriptID),
	)

	resp, err := fetch.Do(ctx, s.client, s.variants(token, path), graphErrorCode, teamsRetryable)
	if err != nil {
		return nil, fmt.Errorf("downloading transcript content: %w", err)
	}

	return resp.Body, nil
}

// variants issues the same call against every configured API surface in
// order, primary first.
func (s *TeamsStrategy) variants(token, path string) []fetch.Variant {
	out := make([]fetch.Variant, 0, len(s.endpoints))
	for _, endpoint := range s.endpoints {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+token)
		header.Set("Accept", "application/json")
		out = append(out, fetch.Variant{Method: http.MethodGet, URL: endpoint + path, Header: header})
	}
	return out
}

func isStatus(err error, status int) bool {
	var statusErr *fetch.StatusError
	return errors.As(err, &statusErr) && statusErr.Status == status
}
