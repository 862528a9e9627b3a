package domain

// ChatMessage is the provider-agnostic chat message shape sent to
// OpenAI-compatible completion endpoints.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
