package events

import (
	"github.com/cifan-festival/submission-service/internal/services/submission"
	"github.com/cifan-festival/submission-service/internal/types"
)

// Hub is the push surface the publisher needs.
type Hub interface {
	BroadcastToUser(userID string, event *types.Event)
	IsUserConnected(userID string) bool
}

// Publisher bridges the submission pipeline's progress stream onto the
// WebSocket hub so the submitting user sees live per-file percentages.
type Publisher struct {
	hub Hub
}

func NewPublisher(hub Hub) *Publisher {
	return &Publisher{hub: hub}
}

// ProgressSink returns a sink that forwards pipeline events to the given
// user. Nothing is sent when the user has no live connection.
func (p *Publisher) ProgressSink(userID string) submission.ProgressSink {
	return func(ev types.ProgressEvent) {
		if !p.hub.IsUserConnected(userID) {
			return
		}
		p.hub.BroadcastToUser(userID, types.NewEvent(types.EventSubmissionProgress, ev))
	}
}

// PublishCompleted pushes the terminal success event with the assigned
// document id.
func (p *Publisher) PublishCompleted(userID string, result submission.Result) {
	if !p.hub.IsUserConnected(userID) {
		return
	}
	p.hub.BroadcastToUser(userID, types.NewEvent(types.EventSubmissionCompleted, types.SubmissionCompletedEvent{
		SubmissionID:  result.SubmissionID,
		ApplicationID: result.ApplicationID,
	}))
}

// PublishFailed pushes the terminal failure event with the stable error
// triple so the client can render stage-specific guidance.
func (p *Publisher) PublishFailed(userID string, perr *submission.PipelineError) {
	if !p.hub.IsUserConnected(userID) {
		return
	}
	p.hub.BroadcastToUser(userID, types.NewEvent(types.EventSubmissionFailed, types.SubmissionFailedEvent{
		Code:    perr.Code,
		Stage:   perr.Stage,
		Message: perr.Message,
	}))
}
