// Package inference provides a unified interface for text generation with
// large language models.
//
// Two adapters are included: Gemini, which speaks Google's generateContent
// REST API, and Client, which speaks any OpenAI-compatible chat completions
// API (Groq, OpenAI, Together, vLLM, Ollama). Cascade tries a list of model
// names against one provider until one answers.
//
// Example usage:
//
//	gemini, _ := inference.NewGemini(
//	    inference.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    inference.WithTemperature(0.8),
//	)
//	cascade, _ := inference.NewCascade(gemini, []string{"gemini-2.0-flash", "gemini-1.5-flash"})
//
//	resp, _ := cascade.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{inference.NewUserMessage("Hello!")},
//	})
package inference

import "context"

// Provider generates chat completions.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name identifies the provider in logs and errors.
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// ChatRequest for chat completions. Zero values fall back to the
// provider's configured defaults.
type ChatRequest struct {
	// Messages is the conversation history.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// TopP controls nucleus sampling.
	TopP float64

	// TopK limits sampling to the K most likely tokens. Gemini only.
	TopK int

	// Stop sequences that halt generation.
	Stop []string
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
