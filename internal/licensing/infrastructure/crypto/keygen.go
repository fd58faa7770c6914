package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// KeyPattern is the structural shape of every generated license key:
// prefix, app code, 8 hex chars of issuance time, 16 hex chars of HMAC.
var KeyPattern = regexp.MustCompile(`^LIC-[A-Z0-9]+-[0-9A-F]{8}-[0-9A-F]{16}$`)

const maxAppCodeLen = 20

// NormalizeAppCode derives the key's app code segment from an application
// name: uppercased, stripped to A-Z and 0-9, truncated to 20 chars, "APP"
// when nothing usable remains.
func NormalizeAppCode(appName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(appName) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) > maxAppCodeLen {
		code = code[:maxAppCodeLen]
	}
	if code == "" {
		return "APP"
	}
	return code
}

// GenerateKey produces a new license key of the form
// LIC-{APPCODE}-{TIMESTAMP_HEX}-{HMAC_TRUNCATED}. A 4-byte random nonce is
// mixed into the HMAC so keys generated within the same second stay unique.
func GenerateKey(appCode, secret string) (string, error) {
	tsHex := fmt.Sprintf("%08X", time.Now().Unix())

	var nonce [4]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to read key nonce: %w", err)
	}

	message := secret + "|" + appCode + "|" + tsHex + "|" + hex.EncodeToString(nonce[:])
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	truncated := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))[:16]

	return fmt.Sprintf("LIC-%s-%s-%s", appCode, tsHex, truncated), nil
}

// CreateKeyPair generates a key and its storage digest. The plaintext is
// surfaced to the caller exactly once; only the digest is persisted.
func CreateKeyPair(appCode, secret string) (plaintext, keyHash string, err error) {
	plaintext, err = GenerateKey(appCode, secret)
	if err != nil {
		return "", "", err
	}
	return plaintext, HashKey(plaintext), nil
}
