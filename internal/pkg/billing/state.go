package billing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

const stateKeyInfo = "guildpay oauth state v1"

// StateClaims is the payload of the OAuth state parameter. It ties a Stripe
// authorization round trip to the guild that started it.
type StateClaims struct {
	GuildID   string `json:"guild_id"`
	RoleID    string `json:"role_id,omitempty"`
	Nonce     string `json:"nonce"`
	ExpiresAt int64  `json:"exp"`
}

// StateSigner issues and verifies HMAC-signed state tokens.
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStateSigner derives the signing key from the session secret so the raw
// secret is never used for two purposes.
func NewStateSigner(secret string, ttl time.Duration) (*StateSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("secret is required for state signing")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(stateKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive state key: %w", err)
	}
	return &StateSigner{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL is how long an issued state stays valid.
func (s *StateSigner) TTL() time.Duration { return s.ttl }

// Issue creates a fresh state for guildID. roleID is the optional default
// role the link is stored with.
func (s *StateSigner) Issue(guildID, roleID string) (string, *StateClaims, error) {
	nonce, err := randomToken(18)
	if err != nil {
		return "", nil, err
	}
	claims := &StateClaims{
		GuildID:   guildID,
		RoleID:    roleID,
		Nonce:     nonce,
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", nil, err
	}
	token := fmt.Sprintf("%s.%s", base64.RawURLEncoding.EncodeToString(payload), base64.RawURLEncoding.EncodeToString(s.sign(payload)))
	return token, claims, nil
}

// Verify checks signature and expiry. It does not consume the nonce.
func (s *StateSigner) Verify(token string) (*StateClaims, error) {
	parts := strings.SplitN(strings.TrimSpace(token), ".", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid state format")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, errors.New("invalid state payload encoding")
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.New("invalid state signature encoding")
	}
	if !hmac.Equal(sig, s.sign(payload)) {
		return nil, errors.New("invalid state signature")
	}
	var claims StateClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.New("invalid state payload")
	}
	if s.now().Unix() > claims.ExpiresAt {
		return nil, errors.New("state expired")
	}
	if claims.GuildID == "" || claims.Nonce == "" {
		return nil, errors.New("state is incomplete")
	}
	return &claims, nil
}

func (s *StateSigner) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func randomToken(size int) (string, error) {
	if size < 16 {
		size = 16
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
