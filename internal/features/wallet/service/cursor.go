package service

import (
	"encoding/base64"
	"strings"
	"time"

	"qai-backend/internal/features/wallet/models"
)

// EncodeCursor renders a keyset position as base64("RFC3339Nano|id").
func EncodeCursor(c models.Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (*models.Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &models.Cursor{CreatedAt: createdAt, ID: id}, nil
}
