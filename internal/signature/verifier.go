// Package signature verifies and produces HMAC-SHA256 webhook signatures over
// "{raw body}.{unix timestamp}".
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxTimestampAge bounds the replay window in either direction.
const MaxTimestampAge = 300 * time.Second

// Reason is a machine-readable verification outcome.
type Reason string

const (
	ReasonValid            Reason = "valid"
	ReasonNoSecret         Reason = "no_secret"
	ReasonMissingSignature Reason = "missing_signature"
	ReasonMissingTimestamp Reason = "missing_timestamp"
	ReasonInvalidTimestamp Reason = "invalid_timestamp"
	ReasonExpired          Reason = "timestamp_expired"
	ReasonInvalidFormat    Reason = "invalid_format"
	ReasonLengthMismatch   Reason = "length_mismatch"
	ReasonMismatch         Reason = "mismatch"
)

// Result is produced fresh on every call and is never cached.
type Result struct {
	Valid             bool   `json:"valid"`
	Error             string `json:"error,omitempty"`
	Reason            Reason `json:"reason"`
	ExpectedSignature string `json:"-"`
	ProvidedSignature string `json:"providedSignature,omitempty"`
	TimestampAge      *int64 `json:"timestampAge,omitempty"`
}

// ErrorPtr returns the error message or nil when the result is valid.
func (r Result) ErrorPtr() *string {
	if r.Valid || r.Error == "" {
		return nil
	}
	msg := r.Error
	return &msg
}

// Verify checks signature and timestamp against the raw payload. The checks
// run in a fixed order and stop at the first failure. secret is the value
// current at call time; an empty secret marks every delivery unverified.
func Verify(payload []byte, signature, timestamp, secret string, now time.Time) Result {
	result := Result{ProvidedSignature: signature}

	if secret == "" {
		return result.fail(ReasonNoSecret, "no secret configured")
	}
	if strings.TrimSpace(signature) == "" {
		return result.fail(ReasonMissingSignature, "missing signature header")
	}
	if strings.TrimSpace(timestamp) == "" {
		return result.fail(ReasonMissingTimestamp, "missing timestamp header")
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return result.fail(ReasonInvalidTimestamp, "invalid timestamp")
	}
	age := now.Unix() - ts
	if age < 0 {
		age = -age
	}
	result.TimestampAge = &age
	if age > int64(MaxTimestampAge/time.Second) {
		return result.fail(ReasonExpired, fmt.Sprintf("timestamp expired: %ds old (max %ds)", age, int64(MaxTimestampAge/time.Second)))
	}

	expected := compute(payload, timestamp, secret)
	result.ExpectedSignature = hex.EncodeToString(expected)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return result.fail(ReasonInvalidFormat, "invalid signature format: "+err.Error())
	}
	if len(provided) != len(expected) {
		return result.fail(ReasonLengthMismatch, "signature length mismatch")
	}

	if !hmac.Equal(provided, expected) {
		return result.fail(ReasonMismatch, "signature mismatch")
	}

	result.Valid = true
	result.Reason = ReasonValid
	return result
}

func (r Result) fail(reason Reason, msg string) Result {
	r.Valid = false
	r.Reason = reason
	r.Error = msg
	return r
}

func compute(payload []byte, timestamp, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(timestamp))
	return mac.Sum(nil)
}
