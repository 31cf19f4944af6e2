package server

// segmentRequest is the body of POST /api/videos/{id}/segments.
type segmentRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// positionRequest is the body of PUT /api/videos/{id}/position.
type positionRequest struct {
	Position float64 `json:"position"`
}

// watchMessage is a player event received on the watch channel. CurrentTime
// is optional; when present it updates the reported playhead before the
// event is handled.
type watchMessage struct {
	Event       string   `json:"event"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
}

// watchReply is sent back on the watch channel.
type watchReply struct {
	Type     string `json:"type"`
	Progress any    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	replyProgress = "progress"
	replyError    = "error"
)
