// Package crypto implements the request signature codec, license key
// hashing, and license key generation.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
)

// Sign computes the validation request signature: HMAC-SHA256 over the
// canonical payload "licenseKey|appID|timestamp" (timestamp as decimal Unix
// seconds), base64-encoded without padding. Pure function of its inputs.
func Sign(licenseKey, appID string, timestamp int64, secret string) string {
	payload := licenseKey + "|" + appID + "|" + strconv.FormatInt(timestamp, 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature and compares it in constant time.
func VerifySignature(licenseKey, appID string, timestamp int64, signature, secret string) bool {
	expected := Sign(licenseKey, appID, timestamp, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HashKey returns the SHA-256 hex digest of a plaintext license key. This is
// the only form of the key that is ever stored, looked up, or logged.
func HashKey(licenseKey string) string {
	sum := sha256.Sum256([]byte(licenseKey))
	return hex.EncodeToString(sum[:])
}
