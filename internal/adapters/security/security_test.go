package security

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

func TestJWTSignerRoundTrip(t *testing.T) {
	signer, err := NewEphemeralJWTSigner("test-key")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	claims := ports.SessionClaims{
		UserID:    uuid.New(),
		Email:     "a@x.io",
		SessionID: uuid.New(),
		AttemptID: 42,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := signer.ParseAndValidate(token)
	require.NoError(t, err)
	require.Equal(t, claims.UserID, got.UserID)
	require.Equal(t, claims.SessionID, got.SessionID)
	require.Equal(t, int64(42), got.AttemptID)
	require.Equal(t, "a@x.io", got.Email)
	require.Equal(t, "test-key", got.KeyID)
	require.True(t, claims.ExpiresAt.Equal(got.ExpiresAt))
}

func TestJWTSignerRejectsExpiredAndForeignTokens(t *testing.T) {
	signer, err := NewEphemeralJWTSigner("k1")
	require.NoError(t, err)
	other, err := NewEphemeralJWTSigner("k1")
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	expired, err := signer.Sign(ports.SessionClaims{
		UserID: uuid.New(), SessionID: uuid.New(), IssuedAt: past, ExpiresAt: past.Add(time.Minute),
	})
	require.NoError(t, err)
	_, err = signer.ParseAndValidate(expired)
	require.Error(t, err)

	foreign, err := other.Sign(ports.SessionClaims{
		UserID: uuid.New(), SessionID: uuid.New(), IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = signer.ParseAndValidate(foreign)
	require.Error(t, err)

	_, err = signer.ParseAndValidate("not-a-token")
	require.Error(t, err)
}

func TestNewJWTSignerFromPEM(t *testing.T) {
	ephemeral, err := NewEphemeralJWTSigner("pem")
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(ephemeral.privateKey)})
	pubDER, err := x509.MarshalPKIXPublicKey(ephemeral.publicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	signer, err := NewJWTSigner("pem", string(privPEM), string(pubPEM))
	require.NoError(t, err)
	require.Equal(t, "pem", signer.KeyID())

	_, err = NewJWTSigner("", string(privPEM), string(pubPEM))
	require.Error(t, err)
	_, err = NewJWTSigner("pem", "garbage", string(pubPEM))
	require.Error(t, err)

	mismatched, err := NewEphemeralJWTSigner("x")
	require.NoError(t, err)
	otherDER, err := x509.MarshalPKIXPublicKey(&mismatched.privateKey.PublicKey)
	require.NoError(t, err)
	_, err = NewJWTSigner("pem", string(privPEM), string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: otherDER})))
	require.Error(t, err)
}

func TestBcryptOTPHasher(t *testing.T) {
	h := NewBcryptOTPHasher(0)
	hash, err := h.Hash("123456")
	require.NoError(t, err)
	require.NotEqual(t, "123456", hash)
	require.NoError(t, h.Compare(hash, "123456"))
	require.Error(t, h.Compare(hash, "654321"))
}

func TestNumericCodeGenerator(t *testing.T) {
	gen := NewNumericCodeGenerator()
	for i := 0; i < 50; i++ {
		code, err := gen.Generate(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
	}
	_, err := gen.Generate(0)
	require.Error(t, err)
}
