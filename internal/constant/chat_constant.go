package constant

import "time"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"

	ChatVisibilityPublic  = "public"
	ChatVisibilityPrivate = "private"
)

const (
	// QuotaWindowHours is the trailing window used when counting a user's
	// messages for rate gating.
	QuotaWindowHours = 24

	// MaxGenerationSteps bounds internal model/tool round-trips per request.
	MaxGenerationSteps = 5

	// RequestTimeout is the hard wall-clock ceiling for one chat request,
	// including the model invocation.
	RequestTimeout = 30 * time.Second

	// StreamBufferSize is the capacity of the UI event channel between the
	// transcoder and the transport writer.
	StreamBufferSize = 64

	// HistoryPageSize is the default page size for chat history pagination.
	HistoryPageSize = 10

	TitleMaxLength = 80
)

const (
	// GenerationFinishedTopic carries post-stream usage snapshots to the
	// usage consumer.
	GenerationFinishedTopic = "CHAT_GENERATION_FINISHED"
)
