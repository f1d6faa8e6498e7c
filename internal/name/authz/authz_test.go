package authz

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	dErrors "hvn/pkg/domain-errors"
)

func signerAndKey(t *testing.T) (string, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), key
}

func sign(t *testing.T, key *ecdsa.PrivateKey, msg string) string {
	t.Helper()
	sig, err := crypto.Sign(PersonalHash(msg), key)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(sig)
}

func testMessage(signer string, now time.Time) Message {
	return Message{
		Action:    ActionRegister,
		TLD:       "heaven",
		Label:     "luna",
		Signer:    signer,
		Nonce:     "nonce-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(ValidityWindow),
	}
}

func TestCanonical(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	m := Message{
		Action:     ActionRegister,
		TLD:        "heaven",
		Label:      "luna",
		Signer:     "0xAbCd000000000000000000000000000000001234",
		Nonce:      "n-42",
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(ValidityWindow),
		ProfileCID: "bafy123",
	}
	want := strings.Join([]string{
		"hvn registrar authorization",
		"action: register",
		"tld: heaven",
		"label: luna",
		"signer: 0xabcd000000000000000000000000000000001234",
		"nonce: n-42",
		"issued_at: 1700000000",
		"expires_at: 1700000300",
		"profile_cid: bafy123",
	}, "\n")
	require.Equal(t, want, m.Canonical())

	t.Run("profile cid omitted for renew", func(t *testing.T) {
		renew := m
		renew.Action = ActionRenew
		require.NotContains(t, renew.Canonical(), "profile_cid")
	})

	t.Run("profile cid omitted when empty", func(t *testing.T) {
		bare := m
		bare.ProfileCID = ""
		require.NotContains(t, bare.Canonical(), "profile_cid")
	})
}

func TestVerify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	signer, key := signerAndKey(t)

	t.Run("valid signature accepted", func(t *testing.T) {
		m := testMessage(signer, now)
		require.NoError(t, Verify(m, sign(t, key, m.Canonical()), now))
	})

	t.Run("wallet style v27 accepted", func(t *testing.T) {
		m := testMessage(signer, now)
		raw, err := hex.DecodeString(strings.TrimPrefix(sign(t, key, m.Canonical()), "0x"))
		require.NoError(t, err)
		raw[crypto.RecoveryIDOffset] += 27
		require.NoError(t, Verify(m, hex.EncodeToString(raw), now))
	})

	t.Run("signer mixed case accepted", func(t *testing.T) {
		m := testMessage("0x"+strings.ToUpper(signer[2:]), now)
		require.NoError(t, Verify(m, sign(t, key, m.Canonical()), now))
	})

	t.Run("signature over different nonce rejected", func(t *testing.T) {
		m := testMessage(signer, now)
		other := m
		other.Nonce = "nonce-2"
		err := Verify(m, sign(t, key, other.Canonical()), now)
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadSignature))
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		_, otherKey := signerAndKey(t)
		m := testMessage(signer, now)
		err := Verify(m, sign(t, otherKey, m.Canonical()), now)
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadSignature))
	})

	t.Run("garbage signature rejected", func(t *testing.T) {
		m := testMessage(signer, now)
		err := Verify(m, "0xdeadbeef", now)
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadSignature))
	})

	t.Run("issued too far in past", func(t *testing.T) {
		m := testMessage(signer, now.Add(-MaxClockSkew-time.Second))
		err := Verify(m, sign(t, key, m.Canonical()), now)
		require.True(t, dErrors.HasCode(err, dErrors.CodeClockSkew))
	})

	t.Run("issued in future", func(t *testing.T) {
		m := testMessage(signer, now.Add(MaxClockSkew+time.Second))
		err := Verify(m, sign(t, key, m.Canonical()), now)
		require.True(t, dErrors.HasCode(err, dErrors.CodeClockSkew))
	})

	t.Run("expiry not pinned to window", func(t *testing.T) {
		m := testMessage(signer, now)
		m.ExpiresAt = m.IssuedAt.Add(ValidityWindow + time.Minute)
		err := Verify(m, sign(t, key, m.Canonical()), now)
		require.True(t, dErrors.HasCode(err, dErrors.CodeClockSkew))
	})

	t.Run("skew boundary accepted", func(t *testing.T) {
		m := testMessage(signer, now.Add(-MaxClockSkew))
		require.NoError(t, Verify(m, sign(t, key, m.Canonical()), now))
	})
}

func TestRecoverSigner(t *testing.T) {
	signer, key := signerAndKey(t)
	msg := "hello heaven"
	got, err := RecoverSigner(msg, sign(t, key, msg))
	require.NoError(t, err)
	require.Equal(t, signer, got.Hex())

	_, err = RecoverSigner(msg, "not-hex")
	require.Error(t, err)

	_, err = RecoverSigner(msg, "0xffff")
	require.Error(t, err)
}
