// Package privacy keeps real-world identities out of stores and logs.
//
// Identities are hashed at the boundary with a keyed one-way hash; only the
// hash and a last-4 display fragment survive. IPs are anonymized before they
// reach log lines.
package privacy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"unicode"

	"golang.org/x/crypto/hkdf"

	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
)

// identity length bounds: national IDs, employee numbers and passport numbers
// all fall well inside this range.
const (
	minIdentityLen = 4
	maxIdentityLen = 64
)

// hashKeyInfo namespaces the derived key so rotating the master secret for
// another purpose never silently changes identity hashes.
var hashKeyInfo = []byte("assent/identity-hash/v1")

// IdentityHasher derives stable, salted identity hashes. The salt is a
// server-held secret rotated independently of this engine.
type IdentityHasher struct {
	key []byte
}

// NewIdentityHasher derives the hashing key from the master salt via HKDF.
func NewIdentityHasher(salt string) (*IdentityHasher, error) {
	if salt == "" {
		return nil, fmt.Errorf("identity salt is required")
	}
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(salt), nil, hashKeyInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive identity hash key: %w", err)
	}
	return &IdentityHasher{key: key}, nil
}

// Hash validates a raw identity and returns its keyed hash plus the last-4
// display fragment. The raw value must never be retained past this call.
//
// Errors: returns CodeInvalidInput for empty, too-short, too-long, or
// non-printable identities.
func (h *IdentityHasher) Hash(rawIdentity string) (domain.IdentityHash, string, error) {
	trimmed := strings.TrimSpace(rawIdentity)
	if err := validateIdentity(trimmed); err != nil {
		return "", "", err
	}

	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(trimmed))
	digest := hex.EncodeToString(mac.Sum(nil))

	return domain.IdentityHash(digest), last4(trimmed), nil
}

func validateIdentity(s string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identity cannot be empty")
	}
	if len(s) < minIdentityLen {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is too short")
	}
	if len(s) > maxIdentityLen {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is too long")
	}
	for _, r := range s {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return dErrors.New(dErrors.CodeInvalidInput, "identity contains invalid characters")
		}
	}
	return nil
}

func last4(s string) string {
	runes := []rune(s)
	if len(runes) <= 4 {
		return string(runes)
	}
	return string(runes[len(runes)-4:])
}

// AnonymizeIP truncates an IP for logging: IPv4 keeps the /24, IPv6 keeps the
// /32 prefix. Full addresses only ever land in the ledger itself.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0/24", v4[0], v4[1], v4[2])
	}
	masked := parsed.Mask(net.CIDRMask(32, 128))
	return masked.String() + "/32"
}
