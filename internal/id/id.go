package id

import "crypto/rand"

// NewAttemptID creates a short alphanumeric ID that tags every log line of
// one exam attempt, so interleaved attempts can be told apart in the logs.
func NewAttemptID() string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	for i := range b {
		b[i] = chars[b[i]%byte(len(chars))]
	}
	return string(b)
}
