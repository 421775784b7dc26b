package modelresponses

// ModelResponse describes one chat model available to callers.
type ModelResponse struct {
	ID             string `json:"id"`
	Object         string `json:"object"`
	SupportsImages bool   `json:"supports_images"`
}

// ModelListResponse is the list envelope for models.
type ModelListResponse struct {
	Object string          `json:"object"`
	Data   []ModelResponse `json:"data"`
}
