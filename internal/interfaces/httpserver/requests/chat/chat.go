package chatrequests

// TurnRequest is one user turn posted to the chat endpoint. ConversationID
// zero starts a new conversation for authenticated callers; anonymous
// callers always get a volatile exchange. Stream defaults to true.
type TurnRequest struct {
	ConversationID uint   `json:"conversation_id"`
	Content        string `json:"content" binding:"required"`
	ImageURL       string `json:"image_url"`
	Model          string `json:"model"`
	Stream         *bool  `json:"stream"`
}

// WantsStream reports whether the caller asked for an SSE response.
func (r TurnRequest) WantsStream() bool {
	return r.Stream == nil || *r.Stream
}
