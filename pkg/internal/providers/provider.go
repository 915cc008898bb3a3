// Package providers locates and downloads finished meeting transcripts from
// the supported conferencing services.
package providers

import (
	"context"
	"strconv"

	"github.com/boardwalkhq/boardwalk/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
)

// Result is a located transcript: the provider's own id for it, the raw
// subtitle-track content, and whatever metadata is worth keeping for audit.
type Result struct {
	TranscriptID string
	Content      []byte
	Meta         map[string]any
}

// Strategy resolves, selects and downloads the transcript of one meeting.
type Strategy interface {
	FetchTranscript(ctx context.Context, meeting models.Meeting) (*Result, error)
}

// graphErrorCode pulls the error code out of a Graph-style error envelope
// ({"error":{"code":...,"message":...}}). Unparseable bodies yield "".
func graphErrorCode(body []byte) string {
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := jsoniter.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Code
}

// zoomErrorCode pulls the numeric code out of a Zoom-style error body
// ({"code":...,"message":...}).
func zoomErrorCode(body []byte) string {
	var envelope struct {
		Code int `json:"code"`
	}
	if err := jsoniter.Unmarshal(body, &envelope); err != nil || envelope.Code == 0 {
		return ""
	}
	return strconv.Itoa(envelope.Code)
}
