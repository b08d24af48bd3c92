package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Verification failures are distinguishable so callers can tell tampering
// from plain expiry.
var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

// DownloadClaims are the authenticated contents of a report download token.
type DownloadClaims struct {
	JobID     string    `json:"job_id"`
	File      string    `json:"file"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DownloadSigner mints and verifies self-authenticating report download
// tokens. A token is base64url(JSON claims) + "." + hex HMAC-SHA256 over the
// encoded claims, so the download endpoint needs no session.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner constructs a signer with the provided secret and TTL.
// A zero TTL falls back to 24 hours.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign mints a token granting access to one stored report file.
func (s *DownloadSigner) Sign(jobID, file string) (string, time.Time, error) {
	if jobID == "" || file == "" {
		return "", time.Time{}, fmt.Errorf("jobID and file required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}

	claims := DownloadClaims{
		JobID:     jobID,
		File:      file,
		ExpiresAt: time.Now().UTC().Add(s.ttl).Truncate(time.Second),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode download claims: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + s.signature(body), claims.ExpiresAt, nil
}

// Verify checks a token's signature and expiry and returns its claims.
// When allowExpired is true the expiry check is skipped; cleanup routines
// use this to resolve files behind stale tokens.
func (s *DownloadSigner) Verify(token string, allowExpired bool) (*DownloadClaims, error) {
	body, signature, ok := strings.Cut(token, ".")
	if !ok || body == "" || signature == "" {
		return nil, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(s.signature(body)), []byte(signature)) {
		return nil, ErrTokenSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	var claims DownloadClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrTokenMalformed
	}
	if !allowExpired && time.Now().After(claims.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

func (s *DownloadSigner) signature(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}
