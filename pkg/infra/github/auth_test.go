package github_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	githubinfra "github.com/m-mizutani/drover/pkg/infra/github"
)

func testPrivateKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	gt.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func TestAppAuth_Bootstrap(t *testing.T) {
	tokenRequests := 0
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app/installations":
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 5}, {"id": 9}})
		case "/app/installations/5/access_tokens":
			tokenRequests++
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token":      "inst-token-5",
				"expires_at": time.Now().Add(time.Hour).Format(time.RFC3339),
			})
		case "/app/installations/9/access_tokens":
			// One installation degraded: its token mint fails.
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	auth, err := githubinfra.NewAppAuth(12345, testPrivateKey(t),
		githubinfra.WithAuthBaseURL(server.URL),
	)
	gt.NoError(t, err)
	gt.NoError(t, auth.Bootstrap(context.Background()))

	gt.Number(t, tokenRequests).Equal(1)
	gt.Value(t, strings.HasPrefix(gotAuth, "Bearer ")).Equal(true)

	// Cached token for installation 5, app identity fallback for the rest.
	gt.Value(t, auth.AuthHeader(5)).Equal("token inst-token-5")
	gt.Value(t, strings.HasPrefix(auth.AuthHeader(9), "Bearer ")).Equal(true)
	gt.Value(t, strings.HasPrefix(auth.AuthHeader(0), "Bearer ")).Equal(true)
}

func TestAppAuth_RefreshReplacesToken(t *testing.T) {
	tokenRequests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app/installations":
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 5}})
		case "/app/installations/5/access_tokens":
			tokenRequests++
			token := "token-1"
			if tokenRequests > 1 {
				token = "token-2"
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token":      token,
				"expires_at": time.Now().Add(time.Hour).Format(time.RFC3339),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	auth, err := githubinfra.NewAppAuth(12345, testPrivateKey(t),
		githubinfra.WithAuthBaseURL(server.URL),
		githubinfra.WithCooldown(0),
	)
	gt.NoError(t, err)
	gt.NoError(t, auth.Bootstrap(context.Background()))
	gt.Value(t, auth.AuthHeader(5)).Equal("token token-1")

	gt.NoError(t, auth.Refresh(context.Background(), 5))
	gt.Value(t, auth.AuthHeader(5)).Equal("token token-2")
	gt.Number(t, tokenRequests).Equal(2)
}

func TestAppAuth_RefreshCooldownBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "t",
			"expires_at": time.Now().Add(time.Hour).Format(time.RFC3339),
		})
	}))
	defer server.Close()

	auth, err := githubinfra.NewAppAuth(12345, testPrivateKey(t),
		githubinfra.WithAuthBaseURL(server.URL),
		githubinfra.WithCooldown(50*time.Millisecond),
	)
	gt.NoError(t, err)

	start := time.Now()
	gt.NoError(t, auth.Refresh(context.Background(), 5))
	gt.Value(t, time.Since(start) >= 50*time.Millisecond).Equal(true)
}

func TestAppAuth_StaticTokenFallback(t *testing.T) {
	auth, err := githubinfra.NewAppAuth(0, nil, githubinfra.WithStaticToken("legacy-token"))
	gt.NoError(t, err)
	gt.NoError(t, auth.Bootstrap(context.Background()))

	gt.Value(t, auth.AuthHeader(5)).Equal("token legacy-token")
	gt.Value(t, auth.AuthHeader(0)).Equal("token legacy-token")

	// Refresh is a no-op in static-token mode.
	gt.NoError(t, auth.Refresh(context.Background(), 5))
}

func TestAppAuth_RequiresCredentials(t *testing.T) {
	_, err := githubinfra.NewAppAuth(0, nil)
	gt.Error(t, err)
}

func TestAppAuth_RejectsBrokenKey(t *testing.T) {
	_, err := githubinfra.NewAppAuth(12345, []byte("not a pem key"))
	gt.Error(t, err)
}
