package session

import (
	"fmt"

	"github.com/google/uuid"
)

// NewToken mints a fresh session token from 128 bits of crypto/rand output,
// rendered in canonical UUID form.
func NewToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("mint session token: %w", err)
	}
	return id.String(), nil
}
