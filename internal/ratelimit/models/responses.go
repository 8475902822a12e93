package models

// ResetResponse is returned by the admin reset endpoint.
type ResetResponse struct {
	Message     string `json:"message"`
	KeysDeleted int    `json:"keys_deleted"`
}

// RateLimitExceededResponse is the 429 body.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
	Limit      string `json:"limit"`
}

// HitsResponse wraps the recent denial records.
type HitsResponse struct {
	Hits  []HitRecord `json:"hits"`
	Count int         `json:"count"`
}
