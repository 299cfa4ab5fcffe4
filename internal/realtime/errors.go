package realtime

// Error codes sent back to clients in error frames.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeMessageRejected  = "message_rejected"
	ErrCodeReactionRejected = "reaction_rejected"
)
