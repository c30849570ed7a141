package models

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Envelope wraps every response body, both from the REST backend and from this server.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// Page is the backend's paginated payload. Number is 0-based.
type Page[T any] struct {
	Content       []T   `json:"content" validate:"dive"`
	TotalPages    int   `json:"totalPages" validate:"gte=0"`
	TotalElements int64 `json:"totalElements" validate:"gte=0"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}
