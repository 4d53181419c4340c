package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"authload/internal/client"
	"authload/internal/runner"
)

const (
	CheckGetUsers   = "get users 200"
	CheckCreateUser = "create user 201 or 409"

	// DefaultWriteProbability is the share of iterations that also create a user.
	DefaultWriteProbability = 0.05
)

var ErrSetupLogin = errors.New("setup login failed")

// SharedToken is a read-heavy, write-light workload. Setup obtains one
// token that every virtual user then reuses.
type SharedToken struct {
	Client *client.Client
	Checks CheckRecorder
	Log    *zap.Logger

	// Pre-provisioned account. When empty, setup registers a shared one.
	Email    string
	Password string

	WriteProbability float64
	// Draw returns a value in [0,1) compared against WriteProbability.
	// Nil uses the VU's own random source.
	Draw func(vu *runner.VU) float64
	// Now stamps the shared account address. Nil uses time.Now.
	Now func() time.Time
}

func (s *SharedToken) Setup(ctx context.Context) (string, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	addr, pass := s.Email, s.Password
	if addr == "" || pass == "" {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		addr = fmt.Sprintf("k6_shared_%d@example.test", now().UnixMilli())
		pass = password
		// Only the login outcome decides setup, so a failed register is logged and skipped.
		reg, err := s.Client.Register(ctx, client.Credentials{Name: "K6 Shared", Email: addr, Password: pass})
		if err != nil {
			log.Warn("register shared user failed", zap.String("email", addr), zap.Error(err))
		} else {
			log.Info("registered shared user", zap.String("email", addr), zap.Int("status", reg.Status))
		}
	} else {
		log.Info("using provided credentials", zap.String("email", addr))
	}

	resp, err := s.Client.Login(ctx, addr, pass)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSetupLogin, err)
	}
	if resp.Status != http.StatusOK {
		return "", fmt.Errorf("%w: %s got status %d", ErrSetupLogin, addr, resp.Status)
	}
	token, ok := client.Token(resp.Body)
	if !ok {
		return "", fmt.Errorf("%w: response has no %s", ErrSetupLogin, client.TokenPath)
	}
	return token, nil
}

func (s *SharedToken) Run(ctx context.Context, vu *runner.VU, token string) error {
	users, err := s.Client.ListUsers(ctx, token)
	check(s.Checks, CheckGetUsers, err == nil && users.Status == http.StatusOK)
	if err != nil {
		return err
	}

	if s.draw(vu) >= s.WriteProbability {
		return nil
	}
	cr := client.Credentials{Name: "k6 user", Email: email("k6_user", vu), Password: password}
	created, err := s.Client.CreateUser(ctx, token, cr)
	check(s.Checks, CheckCreateUser, err == nil && oneOf(created.Status, http.StatusCreated, http.StatusConflict))
	return err
}

func (s *SharedToken) draw(vu *runner.VU) float64 {
	if s.Draw != nil {
		return s.Draw(vu)
	}
	return vu.Rand.Float64()
}
