// Package credentials keeps the CLI's bearer token in the OS keyring, keyed
// by the API base URL it was issued for.
package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "habits"

var (
	ErrNotFound    = errors.New("no token stored for this server")
	ErrUnavailable = errors.New("OS keyring is not available")
)

func SaveToken(baseURL, token string) error {
	if baseURL == "" || token == "" {
		return errors.New("server and token must not be empty")
	}
	if err := keyring.Set(service, baseURL, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

func LoadToken(baseURL string) (string, error) {
	tok, err := keyring.Get(service, baseURL)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tok, nil
}

func DeleteToken(baseURL string) error {
	if err := keyring.Delete(service, baseURL); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// Resolve picks the token for baseURL: an explicit token (from
// HABITS_AUTH_TOKEN) wins, then the keyring. A missing or unavailable
// keyring yields an empty token so unauthenticated servers still work.
func Resolve(baseURL, explicit string) string {
	if explicit != "" {
		return explicit
	}
	tok, err := LoadToken(baseURL)
	if err != nil {
		return ""
	}
	return tok
}
