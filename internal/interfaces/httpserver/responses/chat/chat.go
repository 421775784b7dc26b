package chatresponses

// TurnResponse is the non-streaming chat result. ConversationID is zero for
// anonymous exchanges that were never persisted.
type TurnResponse struct {
	Object               string `json:"object"`
	ConversationID       uint   `json:"conversation_id,omitempty"`
	ConversationPublicID string `json:"conversation_public_id,omitempty"`
	Content              string `json:"content"`
	Model                string `json:"model"`
}

// StreamEvent is one SSE payload on the chat stream. Exactly one field is
// set per event: Delta while fragments arrive, Error on terminal failure,
// Done with the resolved conversation once the stream completes.
type StreamEvent struct {
	Delta string     `json:"delta,omitempty"`
	Error string     `json:"error,omitempty"`
	Done  *DoneEvent `json:"done,omitempty"`
}

// DoneEvent closes a successful stream.
type DoneEvent struct {
	ConversationID       uint   `json:"conversation_id,omitempty"`
	ConversationPublicID string `json:"conversation_public_id,omitempty"`
	Model                string `json:"model,omitempty"`
}
