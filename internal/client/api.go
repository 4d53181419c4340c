package client

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"
)

// TokenPath is where the login response carries the bearer token.
const TokenPath = "data.token"

type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register calls POST /register. 201 and 409 are the expected statuses.
func (c *Client) Register(ctx context.Context, cr Credentials) (*Response, error) {
	return c.Do(ctx, Request{Name: "register", Method: http.MethodPost, Path: "/register", Body: cr})
}

// Login calls POST /login with email and password only.
func (c *Client) Login(ctx context.Context, email, password string) (*Response, error) {
	return c.Do(ctx, Request{
		Name:   "login",
		Method: http.MethodPost,
		Path:   "/login",
		Body:   Credentials{Email: email, Password: password},
	})
}

func (c *Client) ListUsers(ctx context.Context, token string) (*Response, error) {
	return c.Do(ctx, Request{Name: "list_users", Method: http.MethodGet, Path: "/users", Token: token})
}

func (c *Client) CreateUser(ctx context.Context, token string, cr Credentials) (*Response, error) {
	return c.Do(ctx, Request{Name: "create_user", Method: http.MethodPost, Path: "/users", Body: cr, Token: token})
}

// Token extracts a non-empty string token from a login body.
// Malformed JSON, a missing field, or a non-string value yield ok=false.
func Token(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	r := gjson.GetBytes(body, TokenPath)
	if r.Type != gjson.String || r.Str == "" {
		return "", false
	}
	return r.Str, true
}
