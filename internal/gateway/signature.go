package gateway

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"time"
)

// AuthScheme prefixes the Authorization header value.
const AuthScheme = "GWSv2"

// signer produces the per-request Authorization header the gateway requires:
// an HMAC-SHA256 over nonce, timestamp, request path and body.
type signer struct {
	apiKey    string
	secretKey string
	now       func() time.Time
	nonce     func() string
}

func newSigner(apiKey, secretKey string) *signer {
	return &signer{
		apiKey:    apiKey,
		secretKey: secretKey,
		now:       time.Now,
		nonce:     randomNonce,
	}
}

// authorization returns the header value for a request to path with body.
func (s *signer) authorization(path string, body []byte) string {
	nonce := s.nonce()
	timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	signature := Sign(s.secretKey, nonce, timestamp, path, body)

	auth := "apiKey:" + s.apiKey +
		"&nonce:" + nonce +
		"&timestamp:" + timestamp +
		"&signature:" + signature

	return AuthScheme + " " + base64.StdEncoding.EncodeToString([]byte(auth))
}

// Sign computes hex(HMAC-SHA256(secret, nonce + timestamp + path + body)).
func Sign(secretKey, nonce, timestamp, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(nonce))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func randomNonce() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
