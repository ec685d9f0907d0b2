package signature

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// ErrSigningSecretMissing is returned by Sign and SignAt when no secret is given.
var ErrSigningSecretMissing = errors.New("signing_secret_missing")

// Signed carries the header values a sender attaches to a delivery.
type Signed struct {
	Signature string `json:"signature"`
	Timestamp string `json:"timestamp"`
	// Body is the exact byte sequence that was signed.
	Body []byte `json:"-"`
}

// Sign signs payload with the current time when timestamp is empty.
func Sign(payload any, secret, timestamp string) (Signed, error) {
	return SignAt(payload, secret, timestamp, time.Now())
}

// SignAt is Sign with an explicit clock reading. Strings and byte slices are
// signed verbatim; any other value is JSON encoded first.
func SignAt(payload any, secret, timestamp string, now time.Time) (Signed, error) {
	if secret == "" {
		return Signed{}, ErrSigningSecretMissing
	}
	if timestamp == "" {
		timestamp = strconv.FormatInt(now.Unix(), 10)
	}

	var body []byte
	switch v := payload.(type) {
	case string:
		body = []byte(v)
	case []byte:
		body = v
	case json.RawMessage:
		body = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return Signed{}, err
		}
		body = encoded
	}

	return Signed{
		Signature: hex.EncodeToString(compute(body, timestamp, secret)),
		Timestamp: timestamp,
		Body:      body,
	}, nil
}
