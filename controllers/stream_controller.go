package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/customs-tracker-api/services"
)

// StreamHeartbeatInterval is how often an idle stream sends a comment to keep proxies from closing it
var StreamHeartbeatInterval = 15 * time.Second

// StreamCustoms handles GET /api/v1/customs/stream - pushes committed custom changes as Server-Sent Events.
// Events can be dropped for slow clients, so a client should refetch the board after reconnecting.
func StreamCustoms(c *gin.Context) {
	feed := services.GetChangeFeed()
	if feed == nil {
		respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Change feed is not configured")
		return
	}

	subscription, err := feed.Subscribe(services.CustomsCollection)
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Could not subscribe to changes")
		return
	}
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(StreamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-subscription.Events():
			if !ok {
				return
			}
			if err := writeChangeEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeChangeEvent(w io.Writer, event services.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
