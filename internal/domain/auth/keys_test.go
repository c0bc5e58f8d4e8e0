package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, sub string) jwt.Token {
	t.Helper()
	now := time.Now().UTC()
	token, err := jwt.NewBuilder().
		Subject(sub).
		Issuer(testIssuer).
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Claim("sid", "session-1").
		Build()
	require.NoError(t, err)
	return token
}

func TestKeyStoreSignVerifyRoundtrip(t *testing.T) {
	ks := newTestKeyStore(t)

	signed, err := ks.Sign(buildToken(t, "user-1"))
	require.NoError(t, err)

	claims, err := ks.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject())
	assert.Equal(t, "session-1", claims.GetSid())
	require.NoError(t, claims.Validate(testIssuer))
}

func TestKeyStoreRejectsForeignSignature(t *testing.T) {
	ks := newTestKeyStore(t)
	other := newTestKeyStore(t)

	signed, err := other.Sign(buildToken(t, "user-1"))
	require.NoError(t, err)

	_, err = ks.Verify(signed)
	assert.Error(t, err)
}

func TestKeyStoreUnknownActiveKid(t *testing.T) {
	ks := newTestKeyStore(t)
	ks.ActiveKid = "missing"

	_, err := ks.Sign(buildToken(t, "user-1"))
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestLoadKeysVerifiesOldKidsDuringRotation(t *testing.T) {
	dir := t.TempDir()

	writeKey := func(kid string) *rsa.PrivateKey {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
		path := filepath.Join(dir, "private-"+kid+".pem")
		require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
		return priv
	}

	oldPriv := writeKey("2025")
	writeKey("2026")

	// a token signed while 2025 was active
	oldStore, err := NewKeyStore(oldPriv, "2025")
	require.NoError(t, err)
	signed, err := oldStore.Sign(buildToken(t, "user-1"))
	require.NoError(t, err)

	ks, err := LoadKeys(dir, "2026")
	require.NoError(t, err)

	// new store signs with 2026 but still verifies the 2025 token
	claims, err := ks.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject())

	_, err = ks.Sign(buildToken(t, "user-2"))
	assert.NoError(t, err)
}

func TestLoadKeysRejectsMissingDirectory(t *testing.T) {
	_, err := LoadKeys(filepath.Join(t.TempDir(), "absent"), "dev")
	assert.Error(t, err)
}

func TestJWKSExposesOnlyPublicKeys(t *testing.T) {
	ks := newTestKeyStore(t)

	public := ks.JWKS()
	require.Equal(t, 1, public.Len())

	key, ok := public.Key(0)
	require.True(t, ok)

	// a private exponent on an exported key would leak the signing key
	var d []byte
	assert.Error(t, key.Get("d", &d))
}
