package types

import "time"

// EventType represents the type of real-time event pushed to a client.
type EventType string

const (
	EventSubmissionProgress  EventType = "submission.progress"
	EventSubmissionCompleted EventType = "submission.completed"
	EventSubmissionFailed    EventType = "submission.failed"
)

// Event is the envelope sent over WebSocket.
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// Stage of the submission pipeline.
type Stage string

const (
	StageValidating Stage = "validating"
	StageUploading  Stage = "uploading"
	StageSaving     Stage = "saving"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// ProgressEvent reports overall pipeline progress. Progress is a percentage
// in [0,100]; FileProgress carries per-role upload percentages during the
// uploading stage.
type ProgressEvent struct {
	Stage        Stage                `json:"stage"`
	Progress     float64              `json:"progress"`
	Message      string               `json:"message"`
	FileProgress map[FileRole]float64 `json:"file_progress,omitempty"`
}

// SubmissionCompletedEvent is pushed once a document id is assigned.
type SubmissionCompletedEvent struct {
	SubmissionID  string `json:"submission_id"`
	ApplicationID string `json:"application_id"`
}

// SubmissionFailedEvent is pushed when the pipeline reaches the error state.
type SubmissionFailedEvent struct {
	Code    string `json:"code"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
