// Package record holds the on-disk shapes shared by the document-oriented
// store backends.
package record

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"apparel-studio/core"
)

// User keeps the password hash, which core.User never serialises.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash []byte    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func EncodeUser(u *core.User) ([]byte, error) {
	return json.Marshal(User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	})
}

func DecodeUser(data []byte) (*core.User, error) {
	var r User
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &core.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}, nil
}

// NormalizeEmail is the identity used for account lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailKey turns an email into a single safe path segment.
func EmailKey(email string) string {
	return url.PathEscape(NormalizeEmail(email))
}
