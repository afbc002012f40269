package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrBadCredentials is returned when the API rejects a login attempt.
var ErrBadCredentials = errors.New("commerce: bad credentials")

// AccountSession is the result of a successful login: the bearer token the
// storefront forwards on API calls plus the customer identity for the
// session cookie.
type AccountSession struct {
	Token  string
	UserID string
	Email  string
}

// Identity is the authentication surface of the commerce API.
type Identity interface {
	Login(ctx context.Context, email, password string) (AccountSession, error)
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (AccountSession, error) {
	body := map[string]any{
		"email":    strings.TrimSpace(email),
		"password": password,
	}
	payload, err := c.do(ctx, "POST", body, "auth", "login")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == 400 || apiErr.Status == 401) {
			return AccountSession{}, ErrBadCredentials
		}
		return AccountSession{}, err
	}

	var resp struct {
		Token string `json:"token"`
		Data  struct {
			User struct {
				ID    string `json:"_id"`
				Email string `json:"email"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return AccountSession{}, err
	}
	if resp.Token == "" {
		return AccountSession{}, ErrBadCredentials
	}
	return AccountSession{
		Token:  resp.Token,
		UserID: resp.Data.User.ID,
		Email:  resp.Data.User.Email,
	}, nil
}
