package service

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewConversationID returns a random version 4 UUID string.
func NewConversationID() string {
	return uuid.NewString()
}

// ValidConversationID reports whether s has the exact shape NewConversationID
// produces: a canonical, lower-case, version 4 UUID.
func ValidConversationID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.String() == s
}

// NewOrderNumber returns a human-readable order number such as ORD-20260115-K7QX2M.
func NewOrderNumber(now time.Time) string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = orderNumberAlphabet[int(b[i])%len(orderNumberAlphabet)]
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + string(b)
}
