package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/service"
)

// Event types the reconciler understands. Anything else is accepted and
// ignored so new provider event types don't break deliveries.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

// DefaultTolerance bounds how old a signed timestamp may be before the
// delivery is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// Event is a verified payment-provider webhook event.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// OrderID returns the order referenced in the event metadata, or "".
func (e *Event) OrderID() string { return e.Data.Object.Metadata["orderId"] }

// UserID returns the user referenced in the event metadata, or "".
func (e *Event) UserID() string { return e.Data.Object.Metadata["userId"] }

// VerifyAndParse authenticates a webhook delivery and decodes it. payload
// must be the exact bytes received on the wire; any re-serialization before
// this point invalidates the signature. An empty secret is a hard failure,
// never a verification skip.
func VerifyAndParse(payload []byte, signatureHeader, secret string) (*Event, error) {
	return verifyAndParseAt(payload, signatureHeader, secret, time.Now(), DefaultTolerance)
}

func verifyAndParseAt(payload []byte, signatureHeader, secret string, now time.Time, tolerance time.Duration) (*Event, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook secret is not configured")
	}

	ts, sigs, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidSignature, err)
	}

	if tolerance > 0 {
		signedAt := time.Unix(ts, 0)
		if now.Sub(signedAt) > tolerance || signedAt.Sub(now) > tolerance {
			return nil, fmt.Errorf("%w: timestamp outside tolerance", service.ErrInvalidSignature)
		}
	}

	expected := computeSignature(payload, ts, secret)
	ok := false
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: no matching v1 signature", service.ErrInvalidSignature)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed event payload", service.ErrValidation)
	}
	if event.ID == "" {
		return nil, fmt.Errorf("%w: event has no id", service.ErrValidation)
	}
	return &event, nil
}

// parseSignatureHeader splits a "t=1699000000,v1=abc..." header into the
// signed timestamp and the candidate signatures.
func parseSignatureHeader(header string) (int64, []string, error) {
	var ts int64 = -1
	var sigs []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			v, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("bad timestamp %q", kv[1])
			}
			ts = v
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}

	if ts < 0 {
		return 0, nil, fmt.Errorf("missing timestamp")
	}
	if len(sigs) == 0 {
		return 0, nil, fmt.Errorf("missing v1 signature")
	}
	return ts, sigs, nil
}

func computeSignature(payload []byte, ts int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
