package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/model"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	UserID    string `json:"user_id"`
}

func (r registerRequest) validate() string {
	switch {
	case strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "":
		return "username, email, and password required"
	case !strings.Contains(r.Email, "@"):
		return "invalid email"
	case len(r.Password) < minPasswordLength:
		return "password must be at least 8 characters"
	}
	return ""
}

// handleRegister handles user registration
func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if msg := req.validate(); msg != "" {
		return errorJSON(c, http.StatusBadRequest, msg)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("bcrypt failed", logger.Err(err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}

	var id string
	err = s.db.QueryRowContext(c.Request().Context(), `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id`,
		req.Username, req.Email, string(hash),
	).Scan(&id)
	if err != nil {
		if strings.Contains(err.Error(), "unique") {
			return errorJSON(c, http.StatusConflict, "username or email already exists")
		}
		logger.Error("Failed to create user", logger.Err(err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}

	logger.Info("User registered", logger.F("username", req.Username))
	return s.respondWithToken(c, id, req.Username)
}

// handleLogin handles user login
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	var id, passwordHash string
	err := s.db.QueryRowContext(c.Request().Context(),
		`SELECT id, password_hash FROM users WHERE username = $1`,
		req.Username,
	).Scan(&id, &passwordHash)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error("Failed to load user", logger.Err(err))
		}
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	logger.Info("User logged in", logger.F("username", req.Username))
	return s.respondWithToken(c, id, req.Username)
}

func (s *Server) respondWithToken(c echo.Context, id, username string) error {
	token, expiresAt, err := s.issueToken(id, username)
	if err != nil {
		logger.Error("Failed to sign token", logger.Err(err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, authResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		UserID:    id,
	})
}

// handleMe returns current user info
func (s *Server) handleMe(c echo.Context) error {
	u := model.User{ID: userID(c)}
	err := s.db.QueryRowContext(c.Request().Context(),
		`SELECT username, email, created_at FROM users WHERE id = $1`,
		u.ID,
	).Scan(&u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}
