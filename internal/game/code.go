package game

import (
	"crypto/rand"
	"strings"
)

const (
	minRoomCodeLen = 6
	maxRoomCodeLen = 7
	roomCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NormalizeRoomCode trims code and uppercases ASCII letters, then checks it is 6-7 chars
// of [A-Z0-9]. Non-ASCII input is rejected before any case mapping.
func NormalizeRoomCode(code string) (string, error) {
	c := strings.TrimSpace(code)
	if len(c) < minRoomCodeLen || len(c) > maxRoomCodeLen {
		return "", ErrInvalidRoomCode
	}
	b := []byte(c)
	for i, ch := range b {
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
			b[i] = ch
		}
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return "", ErrInvalidRoomCode
		}
	}
	return string(b), nil
}

// GenerateRoomCode returns a random 6 character room code.
func GenerateRoomCode() string {
	b := make([]byte, minRoomCodeLen)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = roomCodeChars[int(b[i])%len(roomCodeChars)]
	}
	return string(b)
}
