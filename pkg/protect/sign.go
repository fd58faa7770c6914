package protect

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// signRequest computes the validation request signature: HMAC-SHA256 over
// the canonical payload "licenseKey|appID|timestamp" (timestamp as decimal
// Unix seconds), base64-encoded without padding. Mirrors the server codec
// so the SDK stays importable without the server packages.
func signRequest(licenseKey, appID string, timestamp int64, secret string) string {
	payload := licenseKey + "|" + appID + "|" + strconv.FormatInt(timestamp, 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}
