package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

// Client represents an HTTP client for the EnglishPod API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the given base URL, e.g.
// "https://courses.example.com" or "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Generous timeout because uploads carry whole lesson videos
			Timeout: 5 * time.Minute,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		IsAdmin bool   `json:"is_admin"`
		Role    string `json:"role"`
	} `json:"user"`
}

// CatalogEntry represents one item in the public catalog
type CatalogEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaType   string `json:"media_type"`
	IsFree      bool   `json:"is_free"`
	CreatedAt   string `json:"created_at"`
}

// ContentItem represents a created content item
type ContentItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	MediaType string `json:"media_type"`
	IsFree    bool   `json:"is_free"`
}

// CreateUserRequest represents an admin user-creation request
type CreateUserRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	IsAdmin         bool   `json:"is_admin"`
}

// UserDetail represents a user account in API responses
type UserDetail struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	Role    string `json:"role"`
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, parsed.Error)
	}
	return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(body))
}

func (c *Client) doJSON(method, path, token string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Login authenticates the user and returns a JWT token
func (c *Client) Login(email, password string) (*LoginResponse, error) {
	var loginResp LoginResponse
	err := c.doJSON("POST", "/api/auth/login", "", LoginRequest{
		Email:    email,
		Password: password,
	}, &loginResp)
	if err != nil {
		return nil, err
	}
	return &loginResp, nil
}

// Catalog fetches the public course catalog
func (c *Client) Catalog() ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := c.doJSON("GET", "/api/catalog", "", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateUser creates a user account (admin only)
func (c *Client) CreateUser(token string, req CreateUserRequest) (*UserDetail, error) {
	var user UserDetail
	if err := c.doJSON("POST", "/api/users", token, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers lists all user accounts (admin only)
func (c *Client) ListUsers(token string) ([]UserDetail, error) {
	var users []UserDetail
	if err := c.doJSON("GET", "/api/users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UploadContent uploads a new content item with an optional media file
// (admin only). file may be nil for exercise items.
func (c *Client) UploadContent(token, title, description, mediaType string, isFree bool, fileName string, file io.Reader) (*ContentItem, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       title,
		"description": description,
		"media_type":  mediaType,
		"is_free":     fmt.Sprintf("%t", isFree),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to build upload form: %w", err)
		}
	}

	if file != nil {
		part, err := mw.CreateFormFile("file", filepath.Base(fileName))
		if err != nil {
			return nil, fmt.Errorf("failed to build upload form: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, fmt.Errorf("failed to read media file: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload form: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/content", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var item ContentItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &item, nil
}
