package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"apparel-studio/core"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL          = 7 * 24 * time.Hour
	minPasswordLength = 6

	DemoEmail    = "test@example.com"
	DemoPassword = "password123"
	DemoName     = "Usuario de Prueba"
)

var (
	jwtSecret  []byte
	bcryptCost = bcrypt.DefaultCost
)

// AppClaims represents the custom claims for the JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// InitAuth sets the signing secret. Without one a random secret is generated,
// so issued tokens stop working when the process restarts.
func InitAuth(secret string) {
	jwtSecret = []byte(secret)
	if len(jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Using an ephemeral secret; tokens will not survive a restart.")
		jwtSecret = make([]byte, 32)
		if _, err := rand.Read(jwtSecret); err != nil {
			logrus.Fatalf("failed to generate JWT secret: %v", err)
		}
	}
}

func createJWT(user *core.User) (string, error) {
	now := time.Now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: user.Email,
		Name:  user.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

type (
	registerRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	authResponse struct {
		User  *core.User `json:"user"`
		Token string     `json:"token"`
	}
)

func newUser(email, password, name string) (*core.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	return &core.User{
		ID:           "user-" + ulid.Make().String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}, nil
}

func respond(w http.ResponseWriter, r *http.Request, status int, user *core.User) {
	token, err := createJWT(user)
	if err != nil {
		logrus.Errorf("failed to create JWT: %s", err.Error())
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to create token"})
		return
	}
	render.Status(r, status)
	render.JSON(w, r, authResponse{User: user, Token: token})
}

func HandleRegister(users core.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Email, password and name are required"})
			return
		}
		if !strings.Contains(req.Email, "@") {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Email is not valid"})
			return
		}
		if len(req.Password) < minPasswordLength {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": fmt.Sprintf("Password must be at least %d characters", minPasswordLength)})
			return
		}

		user, err := newUser(req.Email, req.Password, req.Name)
		if err != nil {
			logrus.WithError(err).Error("Failed to hash password")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to register"})
			return
		}
		if err := users.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, core.ErrAlreadyExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, map[string]string{"error": "User already exists"})
				return
			}
			logrus.WithError(err).Error("Failed to create user")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to register"})
			return
		}

		logrus.WithField("user_id", user.ID).Info("User registered")
		respond(w, r, http.StatusCreated, user)
	}
}

func HandleLogin(users core.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		user, err := users.FindUserByEmail(r.Context(), req.Email)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			logrus.WithError(err).Error("Failed to look up user")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to log in"})
			return
		}
		if user == nil || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
			logrus.WithField("email", req.Email).Warn("Invalid login attempt")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Invalid email or password"})
			return
		}

		respond(w, r, http.StatusOK, user)
	}
}

// SeedDemoUser creates the demo account unless it already exists.
func SeedDemoUser(ctx context.Context, users core.UserStore) error {
	_, err := users.FindUserByEmail(ctx, DemoEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	user, err := newUser(DemoEmail, DemoPassword, DemoName)
	if err != nil {
		return err
	}
	if err := users.CreateUser(ctx, user); err != nil && !errors.Is(err, core.ErrAlreadyExists) {
		return err
	}
	logrus.WithField("email", DemoEmail).Info("Seeded demo user")
	return nil
}
