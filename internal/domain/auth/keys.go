package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// KeyStore holds the RSA keys used to sign and verify access tokens.
// Verification matches the kid from the token header against the set, which
// keeps old keys valid during rotation.
type KeyStore struct {
	ActiveKid string
	KeySet    jwk.Set
}

// NewKeyStore builds a single-key store from an in-memory RSA key.
// Used in development and tests where no key directory exists.
func NewKeyStore(priv *rsa.PrivateKey, kid string) (*KeyStore, error) {
	keySet := jwk.NewSet()

	jwkKey, err := importRSAKey(priv, kid)
	if err != nil {
		return nil, err
	}
	if err := keySet.AddKey(jwkKey); err != nil {
		return nil, fmt.Errorf("failed to add key to set: %w", err)
	}

	return &KeyStore{ActiveKid: kid, KeySet: keySet}, nil
}

// LoadKeys reads every private-<kid>.pem from the directory into a key set.
func LoadKeys(path, activeKid string) (*KeyStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("keys directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keys path %q is not a directory", path)
	}

	keySet := jwk.NewSet()

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keys directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		if !strings.HasPrefix(fileName, "private") || filepath.Ext(fileName) != ".pem" {
			continue
		}

		kid := strings.TrimPrefix(fileName, "private-")
		kid = strings.TrimSuffix(kid, ".pem")
		if kid == "" {
			continue
		}

		privData, err := os.ReadFile(filepath.Join(path, fileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %w", fileName, err)
		}

		priv, err := parseRSAPrivateKey(privData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", fileName, err)
		}

		jwkKey, err := importRSAKey(priv, kid)
		if err != nil {
			return nil, err
		}

		if err := keySet.AddKey(jwkKey); err != nil {
			return nil, fmt.Errorf("failed to add key to set: %w", err)
		}
	}

	return &KeyStore{ActiveKid: activeKid, KeySet: keySet}, nil
}

func parseRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	pkcs8Key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := pkcs8Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an RSA private key")
	}
	return rsaKey, nil
}

func importRSAKey(priv *rsa.PrivateKey, kid string) (jwk.Key, error) {
	jwkKey, err := jwk.Import(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to JWK: %w", err)
	}
	if err := jwkKey.Set(jwk.KeyIDKey, keyID(kid)); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}
	if err := jwkKey.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}
	return jwkKey, nil
}

func keyID(kid string) string {
	if strings.HasPrefix(kid, "key-") {
		return kid
	}
	return fmt.Sprintf("key-%s", kid)
}

// GetActiveKey returns the key currently used for signing
func (ks *KeyStore) GetActiveKey() (jwk.Key, error) {
	key, ok := ks.KeySet.LookupKeyID(keyID(ks.ActiveKid))
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// Sign signs the token with the active key using RS256. The key ID is set on
// the key, so it is included in the token header.
func (ks *KeyStore) Sign(token jwt.Token) (string, error) {
	key, err := ks.GetActiveKey()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), key))
	if err != nil {
		return "", err
	}

	return string(signed), nil
}

// Verify checks the token signature against the key set and returns the
// parsed claims. Expiry and issuer are validated separately by the caller so
// the failure modes stay distinguishable.
func (ks *KeyStore) Verify(tokenString string) (*AccessTokenClaims, error) {
	verifiedToken, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(ks.KeySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, err
	}

	return newAccessTokenClaims(verifiedToken), nil
}

// JWKS returns the public half of the key set
func (ks *KeyStore) JWKS() jwk.Set {
	publicSet, err := jwk.PublicSetOf(ks.KeySet)
	if err != nil {
		return jwk.NewSet()
	}
	return publicSet
}
