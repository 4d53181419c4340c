// Package dummy is an in-memory stand-in for the authentication-gated API
// that load runs target. It answers /register, /login and /users with the
// same statuses and response envelope as the real service.
package dummy

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Port int

	// FailRate is the fraction of requests answered with 500.
	FailRate float64
	// Latency adds a random delay in [0, Latency) to every request.
	Latency time.Duration
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type account struct {
	User
	password string
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// API holds users and issued tokens in memory.
type API struct {
	cfg ServerConfig

	mu     sync.RWMutex
	users  map[string]*account // by normalized email
	order  []string
	tokens map[string]int // token -> user id
	nextID int

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewAPI(cfg ServerConfig) *API {
	return &API{
		cfg:    cfg,
		users:  make(map[string]*account),
		tokens: make(map[string]int),
		nextID: 1,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", a.register)
	mux.HandleFunc("POST /login", a.login)
	mux.HandleFunc("GET /users", a.authed(a.listUsers))
	mux.HandleFunc("POST /users", a.authed(a.register))
	return a.chaos(mux)
}

// UserCount reports how many accounts exist.
func (a *API) UserCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.users)
}

func (a *API) float() float64 {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return a.rng.Float64()
}

func (a *API) chaos(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Latency > 0 {
			time.Sleep(time.Duration(a.float() * float64(a.cfg.Latency)))
		}
		if a.cfg.FailRate > 0 && a.float() < a.cfg.FailRate {
			writeJSON(w, http.StatusInternalServerError, envelope{Message: "Internal Server Error"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: "Missing or invalid token"})
			return
		}
		a.mu.RLock()
		_, known := a.tokens[token]
		a.mu.RUnlock()
		if !known {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: "Missing or invalid token"})
			return
		}
		next(w, r)
	}
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Invalid JSON"})
		return
	}
	email := normalize(in.Email)
	if in.Name == "" || !strings.Contains(email, "@") || len(in.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Validation error"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.users[email]; exists {
		writeJSON(w, http.StatusConflict, envelope{
			Message: "Conflict",
			Data:    map[string]string{"error": "Email already registered", "field": "email"},
		})
		return
	}
	acc := &account{
		User:     User{ID: a.nextID, Name: in.Name, Email: email, CreatedAt: time.Now().UTC()},
		password: in.Password,
	}
	a.nextID++
	a.users[email] = acc
	a.order = append(a.order, email)

	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "User registered successfully", Data: acc.User})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Invalid JSON"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.users[normalize(in.Email)]
	if !ok || acc.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, envelope{
			Message: "Unauthorized",
			Data:    map[string]string{"error": "Invalid email or password"},
		})
		return
	}
	token := uuid.NewString()
	a.tokens[token] = acc.ID

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Login successful",
		Data:    map[string]any{"user": acc.User, "token": token},
	})
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	users := make([]User, 0, len(a.order))
	for _, email := range a.order {
		users = append(users, a.users[email].User)
	}
	a.mu.RUnlock()

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Users fetched successfully",
		Data:    map[string]any{"users": users},
	})
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Start serves the API on cfg.Port in the background.
func Start(cfg ServerConfig, log *zap.Logger) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: NewAPI(cfg).Handler(),
	}
	log.Info("dummy server listening",
		zap.String("addr", "http://localhost"+addr),
		zap.Strings("endpoints", []string{"POST /register", "POST /login", "GET /users", "POST /users"}),
		zap.Float64("fail_rate", cfg.FailRate),
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("dummy server failed", zap.Error(err))
		}
	}()
	return server
}
