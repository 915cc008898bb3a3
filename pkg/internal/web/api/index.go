package api

import (
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		webhooks := api.Group("/webhooks").Name("Webhooks API")
		{
			webhooks.Get("/teams", validateTeamsSubscription)
			webhooks.Post("/teams", receiveTeamsNotifications)
			webhooks.Post("/zoom", receiveZoomEvent)
		}

		meetings := api.Group("/meetings").Name("Meetings API")
		{
			meetings.Get("/:meetingId/transcript", getMeetingTranscript)
			meetings.Post("/:meetingId/transcript/ingest", ingestMeetingTranscript)
		}
	}
}
