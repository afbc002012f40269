package commerce_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"eazshop.com/eazshop-web/internal/commerce"
)

func TestClientLogin(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "correct horse" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok_abc",
			"data": map[string]any{
				"user": map[string]any{"_id": "user_1", "email": body["email"]},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client := commerce.NewClient(srv.URL)

	sess, err := client.Login(context.Background(), "ama@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "tok_abc", sess.Token)
	require.Equal(t, "user_1", sess.UserID)
	require.Equal(t, "ama@example.com", sess.Email)

	_, err = client.Login(context.Background(), "ama@example.com", "wrong")
	require.ErrorIs(t, err, commerce.ErrBadCredentials)
}

func TestFakeLoginIsStablePerEmail(t *testing.T) {
	t.Parallel()

	fake := commerce.NewFake()

	first, err := fake.Login(context.Background(), "ama@example.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, first.Token)

	second, err := fake.Login(context.Background(), "ama@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, first.Token, second.Token)

	_, err = fake.Login(context.Background(), "ama@example.com", "")
	require.ErrorIs(t, err, commerce.ErrBadCredentials)
}
