package scenario

import (
	"context"
	"fmt"
	"net/http"

	"authload/internal/client"
	"authload/internal/runner"
)

// Check names recorded by RegisterLogin.
const (
	CheckRegister   = "register: status 201 or 409"
	CheckLogin      = "login: status 200"
	CheckLoginToken = "login: token exists"
	CheckUsers      = "users: status 200"
)

// RegisterLogin registers a fresh identity, logs in with it and, when the
// login succeeds, makes one authenticated read. It needs no setup.
type RegisterLogin struct {
	Client *client.Client
	Checks CheckRecorder
}

func (s *RegisterLogin) Run(ctx context.Context, vu *runner.VU, _ struct{}) error {
	cr := client.Credentials{Name: "Load User", Email: email("loaduser", vu), Password: password}

	reg, err := s.Client.Register(ctx, cr)
	// 409 means another iteration drew the same identity first.
	check(s.Checks, CheckRegister, err == nil && oneOf(reg.Status, http.StatusCreated, http.StatusConflict))
	if err != nil {
		return err
	}

	login, err := s.Client.Login(ctx, cr.Email, cr.Password)
	loggedIn := check(s.Checks, CheckLogin, err == nil && login.Status == http.StatusOK)
	token, hasToken := client.Token(login.Body)
	check(s.Checks, CheckLoginToken, hasToken)
	if err != nil {
		return err
	}
	if !loggedIn {
		return nil
	}
	if !hasToken {
		return fmt.Errorf("login for %s returned 200 without %s", cr.Email, client.TokenPath)
	}

	users, err := s.Client.ListUsers(ctx, token)
	check(s.Checks, CheckUsers, err == nil && users.Status == http.StatusOK)
	return err
}
