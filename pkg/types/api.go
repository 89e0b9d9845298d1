package types

// ChatMessage is a single role/content pair in a chat completion request.
type ChatMessage struct {
	// Role of the author ("system", "user" or "assistant").
	// example: user
	Role string `json:"role" example:"user"`
	// Text content of the message.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// ChatCompletionRequest is the body for POST /v1/chat/completions.
// Temperature and MaxTokens are pointers so an explicit 0 (greedy sampling)
// stays distinguishable from an omitted field (server default).
type ChatCompletionRequest struct {
	// Ordered conversation messages.
	Messages []ChatMessage `json:"messages"`
	// Sampling temperature (omitted = server default 0.7).
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Maximum number of new tokens (omitted = server default 1024).
	// example: 1024
	MaxTokens *int `json:"max_tokens,omitempty" example:"1024"`
	// Accepted for compatibility; responses are buffered either way.
	Stream bool `json:"stream,omitempty"`
}

// ChatChoice is one generated alternative in a completion response.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionResponse mirrors the OpenAI chat completion shape.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

// GuideRequest is the body for POST /generate_guide.
type GuideRequest struct {
	// example: Elden Ring
	Game string `json:"game" example:"Elden Ring"`
	// example: Legendary Armaments
	Achievement string `json:"achievement" example:"Legendary Armaments"`
}

// GuideResponse carries the generated guide in Markdown.
type GuideResponse struct {
	Guide string `json:"guide"`
}

// ExpertRequest is the body for POST /ask_expert.
type ExpertRequest struct {
	// example: Elden Ring
	Game string `json:"game" example:"Elden Ring"`
	// example: Where is the first boss?
	Question string `json:"question" example:"Where is the first boss?"`
	// Session the question belongs to; required.
	// example: abc-123
	SessionID string `json:"session_id" example:"abc-123"`
}

// ExpertResponse carries the expert answer.
type ExpertResponse struct {
	Answer string `json:"answer"`
}

// SessionCreateRequest is the body for POST /expert/sessions.
type SessionCreateRequest struct {
	// example: abc-123
	ID string `json:"id" example:"abc-123"`
	// example: Elden Ring
	Game string `json:"game" example:"Elden Ring"`
	// example: New Chat
	Title string `json:"title" example:"New Chat"`
}

// StatusOK is the trivial acknowledgement payload.
type StatusOK struct {
	// example: ok
	Status string `json:"status" example:"ok"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
	// Whether acceleration hardware was detected.
	GPU bool `json:"gpu"`
	// Device name when detected, "None" otherwise.
	// example: NVIDIA GeForce RTX 3080
	GPUName string `json:"gpu_name" example:"NVIDIA GeForce RTX 3080"`
	// Whether the model instance finished loading.
	ModelLoaded bool `json:"model_loaded"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
