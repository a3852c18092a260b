package llm

import "context"

// Operation names used for logging and by test doubles to route scripted replies.
const (
	OpExtract   = "extract"
	OpRepair    = "repair"
	OpClassify  = "classify"
	OpSummarize = "summarize"
	OpPing      = "ping"
)

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Operation   string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	JSON        bool // ask the provider for a JSON object response
}

// Completion is the provider's reply.
type Completion struct {
	Content          string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Completer is the language model port the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
