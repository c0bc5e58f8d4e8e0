package user

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestHashPasswordRoundtrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("hunter22", hash))
	assert.False(t, VerifyPassword("wrong", hash))
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	first, err := HashPassword("hunter22")
	require.NoError(t, err)
	second, err := HashPassword("hunter22")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("hunter22", first))
	assert.True(t, VerifyPassword("hunter22", second))
}

func TestVerifyPasswordMalformedHashes(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "hunter22"},
		{"wrong variant", "$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$a2V5"},
		{"wrong version", "$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$a2V5"},
		{"missing sections", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA"},
		{"garbage parameters", "$argon2id$v=19$m=what$c2FsdA$a2V5"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=3,p=2$!!!$a2V5"},
		{"bad key encoding", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifyPassword("hunter22", tt.hash))
		})
	}
}

func TestVerifyPasswordHonorsRecordedParameters(t *testing.T) {
	// a hash created under an older, cheaper cost still verifies because the
	// parameters are read from the hash, not from the current defaults
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("hunter22"), salt, 1, 32*1024, 1, 32)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 32*1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	assert.True(t, VerifyPassword("hunter22", encoded))
	assert.False(t, VerifyPassword("wrong", encoded))
}
