package paddle

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
)

// Signature is a parsed Paddle-Signature header.
type Signature struct {
	Timestamp string
	Digest    string
}

// ParseSignatureHeader parses Paddle's "ts=<unix-seconds>;h1=<hex>" header.
// Values are split on the first "=" so an embedded "=" does not break parsing.
func ParseSignatureHeader(header string) (Signature, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Signature{}, pkgerrors.New(pkgerrors.CodeSignatureFormat, "signature header is empty")
	}

	parts := map[string]string{}
	for _, segment := range strings.Split(header, ";") {
		key, value, found := strings.Cut(segment, "=")
		if !found || strings.TrimSpace(key) == "" {
			return Signature{}, pkgerrors.New(pkgerrors.CodeSignatureFormat, fmt.Sprintf("unparsable signature segment %q", segment))
		}
		parts[strings.TrimSpace(key)] = value
	}

	sig := Signature{Timestamp: parts["ts"], Digest: parts["h1"]}
	if sig.Timestamp == "" {
		return Signature{}, pkgerrors.New(pkgerrors.CodeSignatureFormat, "signature header missing ts")
	}
	if sig.Digest == "" {
		return Signature{}, pkgerrors.New(pkgerrors.CodeSignatureFormat, "signature header missing h1")
	}
	return sig, nil
}

// VerifySignature authenticates a webhook delivery. The signed payload is
// "{ts}:{body}" and the digest is hex-encoded HMAC-SHA256 under the webhook
// secret, compared in constant time. An empty secret skips verification
// (local/dev opt-out) and must be surfaced as a warning by the caller.
func VerifySignature(payload []byte, header, secret string) error {
	if secret == "" {
		return nil
	}

	sig, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	signedPayload := sig.Timestamp + ":" + string(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig.Digest)) {
		return pkgerrors.New(pkgerrors.CodeSignature, "paddle signature mismatch")
	}
	return nil
}

// VerifyWebhook applies VerifySignature with the client's configured secret,
// logging when verification is skipped.
func (c *Client) VerifyWebhook(ctx context.Context, payload []byte, header string, logg *logger.Logger) error {
	secret := c.SigningSecret()
	if secret == "" {
		if logg != nil {
			logg.Warn(ctx, "paddle webhook secret not configured, skipping signature verification")
		}
		return nil
	}
	return VerifySignature(payload, header, secret)
}
