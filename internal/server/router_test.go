package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hatchboard/backend/internal/database"
	"github.com/hatchboard/backend/internal/domain/auth"
	"github.com/hatchboard/backend/internal/domain/user"
)

type singleUserRepo struct {
	user *user.User
}

func (r *singleUserRepo) Create(_ context.Context, _ *user.User) error { return nil }

func (r *singleUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *singleUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	if r.user != nil && r.user.Email == email {
		return r.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *singleUserRepo) Update(_ context.Context, _ *user.User) error { return nil }
func (r *singleUserRepo) Delete(_ context.Context, _ uuid.UUID) error  { return nil }

func TestHealthEndpoint(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ks, err := auth.NewKeyStore(priv, "test")
	require.NoError(t, err)

	userID := uuid.New()
	repo := &singleUserRepo{user: &user.User{
		BaseModel: database.BaseModel{ID: userID},
		Email:     "founder@example.com",
		IsActive:  true,
	}}

	mw := auth.NewMiddleware(ks, repo, nil, "hatchboard-test")

	tokens, err := auth.NewTokenService(auth.TokenServiceConfig{
		Users:         repo,
		Keys:          ks,
		RefreshSecret: []byte("refresh-secret-for-tests"),
		Issuer:        "hatchboard-test",
	})
	require.NoError(t, err)

	app := fiber.New()
	SetupRoutes(app, auth.NewHandler(tokens, user.NewService(repo), repo), mw)

	doHealth := func(t *testing.T, bearer string) map[string]any {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	t.Run("anonymous", func(t *testing.T) {
		body := doHealth(t, "")
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, false, body["authenticated"])
	})

	t.Run("garbage token still healthy", func(t *testing.T) {
		body := doHealth(t, "junk")
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, false, body["authenticated"])
	})

	t.Run("valid token reported", func(t *testing.T) {
		now := time.Now().UTC()
		token, err := jwt.NewBuilder().
			Subject(userID.String()).
			Issuer("hatchboard-test").
			IssuedAt(now).
			Expiration(now.Add(time.Minute)).
			Claim("sid", uuid.NewString()).
			Build()
		require.NoError(t, err)
		signed, err := ks.Sign(token)
		require.NoError(t, err)

		body := doHealth(t, signed)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, true, body["authenticated"])
	})
}
