package api

import (
	"context"
	"regexp"

	"github.com/boardwalkhq/boardwalk/pkg/internal/services"
	"github.com/boardwalkhq/boardwalk/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// onlineMeetingResourceRe pulls the online meeting id out of a notification
// resource path like "communications/onlineMeetings('<id>')/transcripts".
var onlineMeetingResourceRe = regexp.MustCompile(`onlineMeetings\('([^']+)'\)`)

// MeetingResolver maps notification resource ids onto stored meetings;
// overridable in tests.
var MeetingResolver services.OnlineMeetingResolver = services.NewMeetingResolver()

// validateTeamsSubscription answers the subscription handshake: the provider
// sends a validation token and expects it echoed back verbatim as plain text.
func validateTeamsSubscription(c *fiber.Ctx) error {
	token := c.Query("validationToken")
	if len(token) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "missing validation token")
	}
	return c.SendString(token)
}

func receiveTeamsNotifications(c *fiber.Ctx) error {
	// The handshake may ride on a POST as well.
	if token := c.Query("validationToken"); len(token) > 0 {
		return c.SendString(token)
	}

	var data struct {
		Value []struct {
			ClientState    string `json:"clientState"`
			ChangeType     string `json:"changeType"`
			LifecycleEvent string `json:"lifecycleEvent"`
			Resource       string `json:"resource"`
		} `json:"value" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	expectedState := viper.GetString("teams.client_state")
	for _, item := range data.Value {
		if len(item.LifecycleEvent) > 0 {
			log.Debug().Str("event", item.LifecycleEvent).
				Msg("Skipping a subscription lifecycle notification...")
			continue
		}
		if len(expectedState) > 0 && item.ClientState != expectedState {
			log.Warn().Str("resource", item.Resource).
				Msg("Dropping a notification that carries a mismatched client state...")
			continue
		}

		match := onlineMeetingResourceRe.FindStringSubmatch(item.Resource)
		if match == nil {
			log.Debug().Str("resource", item.Resource).
				Msg("Skipping a notification that does not reference an online meeting...")
			continue
		}

		meeting, ok := MeetingResolver.ResolveOnlineMeeting(match[1])
		if !ok {
			log.Warn().Str("online_meeting", match[1]).
				Msg("Could not match a notification to any stored meeting...")
			continue
		}

		go func(meetingID uint) {
			ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
			defer cancel()
			if _, err := services.IngestTranscript(ctx, meetingID); err != nil {
				log.Warn().Err(err).Uint("meeting", meetingID).
					Msg("An error occurred when ingesting a notified transcript...")
			}
		}(meeting.ID)
	}

	// Always acknowledge; the provider retries and eventually disables
	// subscriptions that keep failing.
	return c.SendStatus(fiber.StatusAccepted)
}
