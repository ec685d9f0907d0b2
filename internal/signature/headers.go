package signature

// Header keys are a compatibility contract with the sender and must match
// byte for byte.
const (
	HeaderSignature = "X-OilPriceAPI-Signature"
	HeaderTimestamp = "X-OilPriceAPI-Signature-Timestamp"
	HeaderEvent     = "X-OilPriceAPI-Event"
	HeaderEventID   = "X-OilPriceAPI-Event-ID"
)
