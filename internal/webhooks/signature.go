// Package webhooks implements signature verification for inbound provider
// webhooks. Each provider signs deliveries differently; both schemes here
// reduce to an HMAC-SHA256 over request material compared in constant time.
//
// Verification failures are authentication errors: the handler responds 401
// and the payload must not reach business logic.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// MaxTimestampSkew bounds how old a signed HubSpot request may be before it
// is rejected as a possible replay.
const MaxTimestampSkew = 5 * time.Minute

// VerifyShopifyHMAC checks the X-Shopify-Hmac-Sha256 header: a base64-encoded
// HMAC-SHA256 of the raw request body keyed with the app's webhook secret.
func VerifyShopifyHMAC(secret string, body []byte, headerB64 string) bool {
	if secret == "" || headerB64 == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(headerB64))
}

// VerifyHubSpotV3 checks the x-hubspot-signature (v3) header: a base64-encoded
// HMAC-SHA256 over method + uri + body + timestamp, keyed with the app's
// client secret. The accompanying x-hubspot-request-timestamp must be within
// MaxTimestampSkew of now (epoch milliseconds).
func VerifyHubSpotV3(secret, method, uri string, body []byte, signature, timestamp string, now time.Time) bool {
	if secret == "" || signature == "" || timestamp == "" {
		return false
	}
	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	sent := time.UnixMilli(ms)
	if now.Sub(sent) > MaxTimestampSkew || sent.Sub(now) > MaxTimestampSkew {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method))
	mac.Write([]byte(uri))
	mac.Write(body)
	mac.Write([]byte(timestamp))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
