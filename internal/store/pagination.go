package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// CheckoutCursor points after the last attempt of the previous page in (created_at, id) order.
type CheckoutCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

const maxUUID = "ffffffff-ffff-ffff-ffff-ffffffffffff"

func EncodeCursor(cursor CheckoutCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor returns a cursor before everything when encoded is empty.
func DecodeCursor(encoded string) (CheckoutCursor, error) {
	var cursor CheckoutCursor
	if encoded == "" {
		return CheckoutCursor{
			CreatedAt: time.Now().Add(24 * time.Hour),
			ID:        maxUUID,
		}, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, err
	}

	err = json.Unmarshal(data, &cursor)
	return cursor, err
}
