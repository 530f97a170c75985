package commands

import (
	"context"

	"github.com/Strum355/log"
)

type interactionError struct {
	err     error
	message string
}

// Handle logs the error and tells the user what went wrong
func (e *interactionError) Handle(ctx context.Context, r *interactionReply) {
	log.WithFields(contextFields(ctx, log.Fields{"error": e.err})).Error(e.message)
	if err := r.Whisper(e.message); err != nil {
		log.WithFields(contextFields(ctx, log.Fields{"error": err})).Error("Failed to send error response")
	}
}
