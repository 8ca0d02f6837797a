package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
)

// sseFrameCap bounds the stream queue. The producer never blocks on a slow
// client; the drain loop keeps consuming after a disconnect so the producer
// can finish.
const sseFrameCap = 1024

func sseHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// writeFrame sends one `data: <json>` frame. Returns false once the client
// has disconnected; disconnect is checked per frame.
func writeFrame(c *gin.Context, v any) bool {
	select {
	case <-c.Request.Context().Done():
		return false
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

// streamFrames drains the frame channel onto the SSE response. After a client
// disconnect the remaining frames are consumed and discarded, so the
// background producer always runs to completion.
func streamFrames(c *gin.Context, frames <-chan any) {
	sseHeaders(c)
	connected := true
	for frame := range frames {
		if connected {
			connected = writeFrame(c, frame)
		}
	}
}
