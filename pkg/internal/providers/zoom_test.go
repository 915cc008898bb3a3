package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/boardwalkhq/boardwalk/pkg/internal/fetch"
	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	"github.com/boardwalkhq/boardwalk/pkg/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newZoomStrategyFor(t *testing.T, server *httptest.Server) *ZoomStrategy {
	t.Helper()
	return &ZoomStrategy{
		client: server.Client(),
		supplier: &tokens.Supplier{
			TokenURL: server.URL + "/token",
			Form:     url.Values{},
			Client:   server.Client(),
		},
		endpoint:        server.URL + "/v2",
		DownloadOptions: fetch.DownloadOptions{BackoffBase: time.Millisecond},
	}
}

func TestZoomFetchTranscriptByMeetingID(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(mux)
	mux.HandleFunc("/v2/meetings/9001/recordings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"uu-1","recording_files":[
			{"id":"f-video","file_type":"MP4","download_url":"https://ignored"},
			{"id":"f-cc","file_type":"TRANSCRIPT","status":"completed","download_url":"` + serverURL(r) + `/download"}
		]}`))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		w.Write([]byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHello.\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	strategy := newZoomStrategyFor(t, server)
	result, err := strategy.FetchTranscript(context.Background(), models.Meeting{
		Provider:        models.MeetingProviderZoom,
		ProviderEventID: "9001",
	})

	require.NoError(t, err)
	assert.Equal(t, "f-cc", result.TranscriptID)
	assert.Contains(t, string(result.Content), "Hello.")
	assert.Equal(t, "uu-1", result.Meta["recording_uuid"])
}

func TestZoomWalksPastInstances(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(mux)
	mux.HandleFunc("/v2/meetings/9001/recordings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":3301,"message":"no recording"}`))
	})
	mux.HandleFunc("/v2/meetings/9001", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"base-uuid"}`))
	})
	mux.HandleFunc("/v2/past_meetings/base-uuid/instances", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meetings":[
			{"uuid":"inst-old","start_time":"2026-01-01T09:00:00Z"},
			{"uuid":"inst-new","start_time":"2026-01-02T09:00:00Z"}
		]}`))
	})
	mux.HandleFunc("/v2/past_meetings/inst-new/recordings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":3301}`))
	})
	mux.HandleFunc("/v2/past_meetings/inst-old/recordings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"inst-old","recording_files":[
			{"id":"f-cc","file_type":"CC","download_url":"` + serverURL(r) + `/download"}
		]}`))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nFrom an instance.\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	strategy := newZoomStrategyFor(t, server)
	result, err := strategy.FetchTranscript(context.Background(), models.Meeting{ProviderEventID: "9001"})

	require.NoError(t, err)
	assert.Equal(t, "f-cc", result.TranscriptID)
	assert.Contains(t, string(result.Content), "From an instance.")
}

func TestZoomUnknownMeetingIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(mux)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":3001,"message":"meeting does not exist"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	strategy := newZoomStrategyFor(t, server)
	_, err := strategy.FetchTranscript(context.Background(), models.Meeting{ProviderEventID: "9999"})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestZoomNoInstancesMeansNotReady(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(mux)
	mux.HandleFunc("/v2/meetings/9001/recordings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v2/meetings/9001", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"base-uuid"}`))
	})
	mux.HandleFunc("/v2/past_meetings/base-uuid/instances", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meetings":[]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	strategy := newZoomStrategyFor(t, server)
	_, err := strategy.FetchTranscript(context.Background(), models.Meeting{ProviderEventID: "9001"})

	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
}

func TestZoomExhaustedInstancesMeansNotReady(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(mux)
	mux.HandleFunc("/v2/meetings/9001/recordings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v2/meetings/9001", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"base-uuid"}`))
	})
	mux.HandleFunc("/v2/past_meetings/base-uuid/instances", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meetings":[{"uuid":"inst-1","start_time":"2026-01-01T09:00:00Z"}]}`))
	})
	mux.HandleFunc("/v2/past_meetings/inst-1/recordings", func(w http.ResponseWriter, r *http.Request) {
		// Recorded, but only video tracks.
		w.Write([]byte(`{"uuid":"inst-1","recording_files":[{"id":"f-video","file_type":"MP4"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	strategy := newZoomStrategyFor(t, server)
	_, err := strategy.FetchTranscript(context.Background(), models.Meeting{ProviderEventID: "9001"})

	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Contains(t, notReady.Hint, "cloud recording")
}

func TestZoomRetryablePredicate(t *testing.T) {
	assert.True(t, zoomRetryable(failureOf(http.StatusTooManyRequests, "")))
	assert.True(t, zoomRetryable(failureOf(http.StatusBadGateway, "")))
	// A 404 must surface so the discovery chain can move on.
	assert.False(t, zoomRetryable(failureOf(http.StatusNotFound, "3301")))
	assert.False(t, zoomRetryable(failureOf(http.StatusBadRequest, "")))
}

func TestEncodeMeetingUUID(t *testing.T) {
	assert.Equal(t, "abc==", encodeMeetingUUID("abc=="))
	assert.Equal(t, url.QueryEscape(url.QueryEscape("/starts-with-slash")), encodeMeetingUUID("/starts-with-slash"))
	assert.Equal(t, url.QueryEscape(url.QueryEscape("a//b")), encodeMeetingUUID("a//b"))
}

// serverURL reconstructs the test server's base URL from inside a handler.
func serverURL(r *http.Request) string {
	return "http://" + r.Host
}
