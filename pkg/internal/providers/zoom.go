package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/fetch"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/tokens"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/singleflight"
)

// ZoomStrategy walks the cloud-recording provider's discovery chain:
// recordings by meeting id, then meeting detail for the durable UUID, then
// past instances, then per-instance recordings.
type ZoomStrategy struct {
	client   *http.Client
	supplier *tokens.Supplier
	sf       singleflight.Group
	endpoint string

	// DownloadOptions tunes the content-download backoff; the zero value
	// keeps the defaults.
	DownloadOptions fetch.DownloadOptions
}

func NewZoomStrategy() *ZoomStrategy {
	endpoint := viper.GetString("zoom.endpoint")
	if len(endpoint) == 0 {
		endpoint = "https://api.zoom.us/v2"
	}
	authEndpoint := viper.GetString("zoom.auth_endpoint")
	if len(authEndpoint) == 0 {
		authEndpoint = "https://zoom.us/oauth/token"
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", viper.GetString("zoom.account_id"))

	basic := base64.StdEncoding.EncodeToString([]byte(
		viper.GetString("zoom.client_id") + ":" + viper.GetString("zoom.client_secret"),
	))
	header := http.Header{}
	header.Set("Authorization", "Basic "+basic)

	return &ZoomStrategy{
		client: &http.Client{Timeout: 60 * time.Second},
		supplier: &tokens.Supplier{
			TokenURL: authEndpoint,
			Form:     form,
			Header:   header,
		},
		endpoint: endpoint,
	}
}

func zoomRetryable(f fetch.Failure) bool {
	if f.Err != nil {
		return true
	}
	return f.Status == http.StatusTooManyRequests || f.Status >= 500
}

func (s *ZoomStrategy) token(ctx context.Context) (string, error) {
	value, err, _ := s.sf.Do("token", func() (any, error) {
		return s.supplier.Token(ctx)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

type zoomRecordingFile struct {
	ID          string `json:"id"`
	FileType    string `json:"file_type"`
	Status      string `json:"status"`
	DownloadURL string `json:"download_url"`
}

type zoomRecordingSet struct {
	UUID           string              `json:"uuid"`
	RecordingFiles []zoomRecordingFile `json:"recording_files"`
}

// transcriptFile finds the transcript track in a recording set. Only the
// exact TRANSCRIPT and CC file types qualify; everything else is ignored.
func transcriptFile(set *zoomRecordingSet) *zoomRecordingFile {
	if set == nil {
		return nil
	}
	for idx := range set.RecordingFiles {
		file := &set.RecordingFiles[idx]
		if file.FileType == "TRANSCRIPT" || file.FileType == "CC" {
			return file
		}
	}
	return nil
}

func (s *ZoomStrategy) FetchTranscript(ctx context.Context, meeting models.Meeting) (*Result, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	eventID := meeting.ProviderEventID

	// Step 1: the recording set is often reachable straight by meeting id.
	set, err := s.recordings(ctx, token, "/meetings/"+url.PathEscape(eventID)+"/recordings")
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return nil, err
	}
	if file := transcriptFile(set); file != nil {
		return s.download(ctx, token, set, file)
	}

	// Step 2: fall back to the durable meeting UUID.
	meetingUUID, err := s.meetingUUID(ctx, token, eventID)
	if err != nil {
		return nil, err
	}

	// Step 3: enumerate past instances, most recent first.
	instances, err := s.pastInstances(ctx, token, meetingUUID)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, &NotReadyError{Hint: "the meeting has no recorded instances yet; it may not have occurred, or it was not recorded to the provider's cloud"}
	}

	// Step 4: first instance with a transcript track wins.
	for _, instance := range instances {
		set, err := s.recordings(ctx, token, "/past_meetings/"+encodeMeetingUUID(instance.UUID)+"/recordings")
		if err != nil {
			if isStatus(err, http.StatusNotFound) {
				continue
			}
			return nil, err
		}
		if file := transcriptFile(set); file != nil {
			return s.download(ctx, token, set, file)
		}
		log.Debug().Str("instance", instance.UUID).
			Msg("Recorded instance carries no transcript track, checking earlier instances...")
	}

	return nil, &NotReadyError{Hint: "no transcript was found in any recorded instance; enable cloud recording with audio transcript for this meeting and record it to the cloud"}
}

func (s *ZoomStrategy) recordings(ctx context.Context, token, path string) (*zoomRecordingSet, error) {
	resp, err := fetch.Do(ctx, s.client, s.variant(token, path), zoomErrorCode, zoomRetryable)
	if err != nil {
		return nil, err
	}

	var set zoomRecordingSet
	if err := jsoniter.Unmarshal(resp.Body, &set); err != nil {
		return nil, fmt.Errorf("decoding recording set: %w", err)
	}
	return &set, nil
}

func (s *ZoomStrategy) meetingUUID(ctx context.Context, token, eventID string) (string, error) {
	resp, err := fetch.Do(ctx, s.client, s.variant(token, "/meetings/"+url.PathEscape(eventID)), zoomErrorCode, zoomRetryable)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return "", &NotFoundError{Resource: "the meeting"}
		}
		return "", fmt.Errorf("fetching meeting detail: %w", err)
	}

	var payload struct {
		UUID string `json:"uuid"`
	}
	if err := jsoniter.Unmarshal(resp.Body, &payload); err != nil || len(payload.UUID) == 0 {
		return "", &NotFoundError{Resource: "the meeting"}
	}
	return payload.UUID, nil
}

type zoomInstance struct {
	UUID      string    `json:"uuid"`
	StartTime time.Time `json:"start_time"`
}

func (s *ZoomStrategy) pastInstances(ctx context.Context, token, meetingUUID string) ([]zoomInstance, error) {
	resp, err := fetch.Do(ctx, s.client, s.variant(token, "/past_meetings/"+encodeMeetingUUID(meetingUUID)+"/instances"), zoomErrorCode, zoomRetryable)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing past instances: %w", err)
	}

	var payload struct {
		Meetings []zoomInstance `json:"meetings"`
	}
	if err := jsoniter.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decoding past instances: %w", err)
	}

	sort.Slice(payload.Meetings, func(i, j int) bool {
		return payload.Meetings[i].StartTime.After(payload.Meetings[j].StartTime)
	})
	return payload.Meetings, nil
}

// download pulls the transcript content. The provider requires the bearer
// token as an access_token query parameter on signed download URLs, not as
// an Authorization header.
func (s *ZoomStrategy) download(ctx context.Context, token string, set *zoomRecordingSet, file *zoomRecordingFile) (*Result, error) {
	target := file.DownloadURL
	if strings.Contains(target, "?") {
		target += "&access_token=" + url.QueryEscape(token)
	} else {
		target += "?access_token=" + url.QueryEscape(token)
	}

	content, err := fetch.Download(ctx, s.client, fetch.Variant{Method: http.MethodGet, URL: target}, s.DownloadOptions)
	if err != nil {
		return nil, fmt.Errorf("downloading transcript file: %w", err)
	}
	if len(content) == 0 {
		return nil, &NotReadyError{Hint: "the transcript file exists but has no content yet; try again shortly"}
	}

	return &Result{
		TranscriptID: file.ID,
		Content:      content,
		Meta: map[string]any{
			"recording_uuid": set.UUID,
			"file_type":      file.FileType,
			"file_status":    file.Status,
		},
	}, nil
}

func (s *ZoomStrategy) variant(token, path string) []fetch.Variant {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return []fetch.Variant{{Method: http.MethodGet, URL: s.endpoint + path, Header: header}}
}

// encodeMeetingUUID escapes a meeting UUID for use in a path segment. UUIDs
// that begin with a slash or contain consecutive slashes must be
// double-encoded per the provider's API contract.
func encodeMeetingUUID(meetingUUID string) string {
	if strings.HasPrefix(meetingUUID, "/") || strings.Contains(meetingUUID, "//") {
		return url.QueryEscape(url.QueryEscape(meetingUUID))
	}
	return url.PathEscape(meetingUUID)
}
