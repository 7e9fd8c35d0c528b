// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes used across the server. Connection IDs are minted on every
// WebSocket/SSE accept; activity IDs on every recorded feed entry.
const (
	ConnectionPrefix = "cn-"
	ActivityPrefix   = "act-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Connection returns a new connection ID.
func Connection() (string, error) {
	return GenerateWithPrefix(ConnectionPrefix)
}

// Activity returns a new activity feed entry ID.
func Activity() (string, error) {
	return GenerateWithPrefix(ActivityPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
