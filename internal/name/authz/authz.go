// Package authz builds and verifies the canonical authorization message that
// gates every registrar mutation. The exact byte sequence produced by
// Message.Canonical is what the holder signs and what the verifier re-derives;
// any ordering or optionality mismatch between the two sides is a silent
// security bug, so both live here.
package authz

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	dErrors "hvn/pkg/domain-errors"
)

// Action binds a message to exactly one registrar mutation type.
type Action string

const (
	ActionRegister Action = "register"
	ActionRenew    Action = "renew"
	ActionUpdate   Action = "update"
)

const (
	// MaxClockSkew bounds how far IssuedAt may drift from server time.
	MaxClockSkew = 120 * time.Second
	// ValidityWindow is the fixed message lifetime; ExpiresAt must equal
	// IssuedAt + ValidityWindow exactly.
	ValidityWindow = 5 * time.Minute

	header = "hvn registrar authorization"
)

// Message is the deterministic, field-ordered plaintext a holder signs to
// authorize a mutation. ProfileCID participates only for register/update.
type Message struct {
	Action     Action
	TLD        string
	Label      string // normalized
	Signer     string // 0x address
	Nonce      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ProfileCID string
}

// Canonical renders the exact byte sequence to be signed. Fixed field order,
// one `key: value` line per field, lowercase signer, unix-second timestamps,
// and the profile_cid line present only for register/update when non-empty.
func (m Message) Canonical() string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\naction: ")
	b.WriteString(string(m.Action))
	b.WriteString("\ntld: ")
	b.WriteString(m.TLD)
	b.WriteString("\nlabel: ")
	b.WriteString(m.Label)
	b.WriteString("\nsigner: ")
	b.WriteString(strings.ToLower(m.Signer))
	b.WriteString("\nnonce: ")
	b.WriteString(m.Nonce)
	fmt.Fprintf(&b, "\nissued_at: %d", m.IssuedAt.Unix())
	fmt.Fprintf(&b, "\nexpires_at: %d", m.ExpiresAt.Unix())
	if m.ProfileCID != "" && (m.Action == ActionRegister || m.Action == ActionUpdate) {
		b.WriteString("\nprofile_cid: ")
		b.WriteString(m.ProfileCID)
	}
	return b.String()
}

// Verify checks timestamps and the signature over the canonical message.
// Failures carry distinct coded reasons but no detail that would let an
// attacker binary-search a valid signature.
func Verify(m Message, signature string, now time.Time) error {
	skew := now.Sub(m.IssuedAt)
	if skew > MaxClockSkew || skew < -MaxClockSkew {
		return dErrors.New(dErrors.CodeClockSkew, "authorization timestamp outside allowed window")
	}
	if !m.ExpiresAt.Equal(m.IssuedAt.Add(ValidityWindow)) {
		return dErrors.New(dErrors.CodeClockSkew, "authorization expiry inconsistent with issue time")
	}
	if now.After(m.ExpiresAt) {
		return dErrors.New(dErrors.CodeAuthExpired, "authorization message expired")
	}

	recovered, err := RecoverSigner(m.Canonical(), signature)
	if err != nil {
		return dErrors.New(dErrors.CodeBadSignature, "signature verification failed")
	}
	if !strings.EqualFold(recovered.Hex(), m.Signer) {
		return dErrors.New(dErrors.CodeBadSignature, "signature verification failed")
	}
	return nil
}

// RecoverSigner recovers the address that produced an EIP-191 personal
// signature over msg. Both 0/1 and 27/28 recovery-id encodings are accepted,
// matching what wallets emit for personal_sign.
func RecoverSigner(msg, signature string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(PersonalHash(msg), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// PersonalHash applies the EIP-191 personal-message prefix and hashes.
func PersonalHash(msg string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return crypto.Keccak256([]byte(prefixed))
}
