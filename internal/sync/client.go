// Package sync talks to the devpilot cloud document store.
package sync

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/config"
	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/model"
)

// DefaultServerURL is used until the user picks a server
const DefaultServerURL = "http://localhost:8080"

// Config is the persisted sync session
type Config struct {
	ServerURL     string `json:"server_url"`
	Token         string `json:"token"`
	UserID        string `json:"user_id"`
	Username      string `json:"username,omitempty"`
	LastSync      int64  `json:"last_sync"`
	EncryptionKey string `json:"encryption_key,omitempty"` // base64 AES key
	Salt          string `json:"salt,omitempty"`           // base64 pbkdf2 salt
}

// Status is a snapshot of the sync session for display
type Status struct {
	ServerURL   string
	Username    string
	UserID      string
	LastSync    int64
	LoggedIn    bool
	Encrypted   bool
	Fingerprint string
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Client is the sync client
type Client struct {
	config     *Config
	configPath string
	httpClient *http.Client
}

// DefaultConfigPath returns ~/.devpilot/sync.json
func DefaultConfigPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sync.json"), nil
}

// NewClient creates a sync client backed by the default session file
func NewClient() (*Client, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return NewClientAt(path, nil), nil
}

// NewClientAt creates a sync client backed by the session file at path
func NewClientAt(path string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{configPath: path, httpClient: hc}
	c.loadConfig()
	return c
}

func (c *Client) loadConfig() {
	c.config = &Config{ServerURL: DefaultServerURL}
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, c.config); err != nil {
		logger.Warn("Ignoring corrupt sync config", logger.F("path", c.configPath), logger.Err(err))
		c.config = &Config{ServerURL: DefaultServerURL}
	}
	if c.config.ServerURL == "" {
		c.config.ServerURL = DefaultServerURL
	}
}

func (c *Client) saveConfig() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0600)
}

// SetServer sets the sync server URL
func (c *Client) SetServer(url string) error {
	c.config.ServerURL = strings.TrimRight(url, "/")
	return c.saveConfig()
}

// IsLoggedIn returns true if a token is stored
func (c *Client) IsLoggedIn() bool {
	return c.config.Token != ""
}

// CanAutoSync reports whether background sync may run
func (c *Client) CanAutoSync() bool {
	return c.IsLoggedIn()
}

// Status returns the current session
func (c *Client) Status() Status {
	st := Status{
		ServerURL: c.config.ServerURL,
		Username:  c.config.Username,
		UserID:    c.config.UserID,
		LastSync:  c.config.LastSync,
		LoggedIn:  c.IsLoggedIn(),
	}
	if cr, err := c.crypto(); err == nil && cr != nil {
		st.Encrypted = true
		st.Fingerprint = cr.Fingerprint()
	}
	return st
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	UserID    string `json:"user_id"`
}

// Register creates an account and stores the session
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	var res authResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	return c.storeSession(username, res)
}

// Login authenticates with username and password
func (c *Client) Login(ctx context.Context, username, password string) error {
	var res authResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/login", map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return c.storeSession(username, res)
}

func (c *Client) storeSession(username string, res authResponse) error {
	c.config.Token = res.Token
	c.config.UserID = res.UserID
	c.config.Username = username
	c.config.LastSync = 0
	return c.saveConfig()
}

// Logout clears the session. The encryption key is kept.
func (c *Client) Logout() error {
	c.config.Token = ""
	c.config.UserID = ""
	c.config.Username = ""
	c.config.LastSync = 0
	return c.saveConfig()
}

// Me returns the account behind the stored token
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	if !c.IsLoggedIn() {
		return nil, fmt.Errorf("not logged in")
	}
	var u model.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetPassphrase derives a new document key and returns its fingerprint.
// Every local project is queued for re-upload under the new key by the
// caller.
func (c *Client) SetPassphrase(passphrase string) (string, error) {
	if len(passphrase) < 8 {
		return "", fmt.Errorf("passphrase must be at least 8 characters")
	}
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	cr := NewCrypto(passphrase, salt)
	c.config.Salt = base64.StdEncoding.EncodeToString(salt)
	c.config.EncryptionKey = cr.Key()
	if err := c.saveConfig(); err != nil {
		return "", err
	}
	return cr.Fingerprint(), nil
}

// ImportKey stores a key exported from another device and returns its
// fingerprint
func (c *Client) ImportKey(encoded string) (string, error) {
	cr, err := NewCryptoFromKey(strings.TrimSpace(encoded))
	if err != nil {
		return "", err
	}
	c.config.Salt = ""
	c.config.EncryptionKey = cr.Key()
	if err := c.saveConfig(); err != nil {
		return "", err
	}
	return cr.Fingerprint(), nil
}

// ExportKey returns the stored key, empty when encryption is off
func (c *Client) ExportKey() string {
	return c.config.EncryptionKey
}

// DisableEncryption forgets the document key
func (c *Client) DisableEncryption() error {
	c.config.Salt = ""
	c.config.EncryptionKey = ""
	return c.saveConfig()
}

// crypto returns nil when encryption is off
func (c *Client) crypto() (*Crypto, error) {
	if c.config.EncryptionKey == "" {
		return nil, nil
	}
	return NewCryptoFromKey(c.config.EncryptionKey)
}

// do sends an authenticated JSON request and decodes the JSON answer
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	url := c.config.ServerURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	logger.Debug("HTTP Request", logger.F("method", method), logger.F("url", url))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("HTTP request failed", logger.F("url", url), logger.Err(err))
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	logger.Debug("HTTP Response", logger.F("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid server response: %w", err)
	}
	return nil
}
