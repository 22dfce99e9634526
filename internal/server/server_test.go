package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hankatuur/englishpod/internal/config"
	"github.com/Hankatuur/englishpod/internal/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: "0"},
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "test.sqlite")},
		Redis:    config.RedisConfig{Address: "127.0.0.1:6379"},
		Media:    config.MediaConfig{Root: t.TempDir()},
		Logging:  config.LoggingConfig{Level: "error", Format: "console"},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// setupAdmin runs first-run setup and returns the admin token
func setupAdmin(t *testing.T, srv *Server) string {
	t.Helper()

	w := doJSON(t, srv, "POST", "/api/setup", "", map[string]string{
		"email":    "admin@example.com",
		"password": "Passw0rd!",
		"name":     "Admin",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// signupMember registers a member account and returns its token and user id
func signupMember(t *testing.T, srv *Server, email string) (string, string) {
	t.Helper()

	w := doJSON(t, srv, "POST", "/api/auth/signup", "", map[string]string{
		"email":            email,
		"name":             "Member",
		"password":         "Secret1!",
		"confirm_password": "Secret1!",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode(t, w)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	user := resp["user"].(map[string]interface{})
	return token, user["id"].(string)
}

func uploadContent(t *testing.T, srv *Server, token, title, mediaType string, isFree bool, fileName string, fileData []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("media_type", mediaType))
	require.NoError(t, mw.WriteField("is_free", fmt.Sprintf("%t", isFree)))
	if fileData != nil {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/content", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestSetupAndLogin(t *testing.T) {
	srv := newTestServer(t)

	token := setupAdmin(t, srv)

	// Token identifies an admin
	w := doJSON(t, srv, "GET", "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "admin@example.com", me["email"])
	assert.Equal(t, true, me["is_admin"])
	assert.Equal(t, "admin", me["role"])

	// Setup only works once
	w = doJSON(t, srv, "POST", "/api/setup", "", map[string]string{
		"email":    "second@example.com",
		"password": "Passw0rd!",
		"name":     "Second",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Wrong password is rejected
	w = doJSON(t, srv, "POST", "/api/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "Wrong1!x",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct credentials log in
	w = doJSON(t, srv, "POST", "/api/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.NotEmpty(t, resp["token"])
}

func TestSignupValidationRunsBeforeDatabase(t *testing.T) {
	srv := newTestServer(t)
	setupAdmin(t, srv)

	cases := []struct {
		name string
		body map[string]string
		want string
	}{
		{
			name: "malformed email",
			body: map[string]string{
				"email": "a@b", "password": "Secret1!", "confirm_password": "Secret1!",
			},
			want: "Invalid email address",
		},
		{
			name: "weak password",
			body: map[string]string{
				"email": "new@example.com", "password": "abcdef", "confirm_password": "abcdef",
			},
			want: "Password must be at least 6 characters with an uppercase letter and a symbol",
		},
		{
			name: "mismatched confirmation",
			body: map[string]string{
				"email": "new@example.com", "password": "Secret1!", "confirm_password": "Secret2!",
			},
			want: "Passwords do not match",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, srv, "POST", "/api/auth/signup", "", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, decode(t, w)["error"])
		})
	}

	// Rejected signups must not leave account rows behind
	var count int64
	require.NoError(t, srv.GetDB().Model(&models.User{}).Where("email <> ?", "admin@example.com").Count(&count).Error)
	assert.Zero(t, count)

	// Duplicate email is caught after validation passes
	signupMember(t, srv, "member@example.com")
	w := doJSON(t, srv, "POST", "/api/auth/signup", "", map[string]string{
		"email": "member@example.com", "password": "Secret1!", "confirm_password": "Secret1!",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAccessControl(t *testing.T) {
	srv := newTestServer(t)
	adminToken := setupAdmin(t, srv)
	memberToken, memberID := signupMember(t, srv, "member@example.com")

	t.Run("guest reaches public routes", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/catalog", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("guest is sent home on member routes", func(t *testing.T) {
		// Unauthenticated visitors go to /, not to a login page
		w := doJSON(t, srv, "GET", "/api/content", "", nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("guest is sent home on admin routes", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/users", "", nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("member reaches member routes", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/content", memberToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("member is sent home on admin routes", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/users", memberToken, nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("admin reaches admin routes", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/users", adminToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("garbage token behaves as guest", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/content", "not-a-jwt", nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("missing profile fails closed on admin routes", func(t *testing.T) {
		// An admin token whose profile row has vanished reads as "not admin",
		// even though the session itself is still valid.
		require.NoError(t, srv.GetDB().Where("user_id <> ?", memberID).Delete(&models.Profile{}).Error)

		w := doJSON(t, srv, "GET", "/api/users", adminToken, nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		// Plain authenticated routes only need the session
		w = doJSON(t, srv, "GET", "/api/content", adminToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestUserAdministration(t *testing.T) {
	srv := newTestServer(t)
	adminToken := setupAdmin(t, srv)

	// Admin creates a member account
	w := doJSON(t, srv, "POST", "/api/users", adminToken, map[string]interface{}{
		"email":            "staff@example.com",
		"name":             "Staff",
		"password":         "Secret1!",
		"confirm_password": "Secret1!",
		"is_admin":         false,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "member", created["role"])
	staffID := created["id"].(string)

	// Listing shows both accounts with their roles
	w = doJSON(t, srv, "GET", "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)

	// Admins cannot delete their own account
	w = doJSON(t, srv, "GET", "/api/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	adminID := decode(t, w)["id"].(string)

	w = doJSON(t, srv, "DELETE", "/api/users/"+adminID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Deleting the member works and invalidates their session
	w = doJSON(t, srv, "DELETE", "/api/users/"+staffID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, "DELETE", "/api/users/"+staffID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentLifecycle(t *testing.T) {
	srv := newTestServer(t)
	adminToken := setupAdmin(t, srv)
	memberToken, _ := signupMember(t, srv, "member@example.com")

	pdfData := []byte("%PDF-1.4 fake course notes")

	// Locked PDF
	w := uploadContent(t, srv, adminToken, "Grammar Notes", "pdf", false, "notes.pdf", pdfData)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lockedID := decode(t, w)["id"].(string)

	// Free PDF
	w = uploadContent(t, srv, adminToken, "Starter Notes", "pdf", true, "starter.pdf", pdfData)
	require.Equal(t, http.StatusCreated, w.Code)
	freeID := decode(t, w)["id"].(string)

	t.Run("members cannot create content", func(t *testing.T) {
		w := uploadContent(t, srv, memberToken, "Nope", "pdf", true, "x.pdf", pdfData)
		assert.Equal(t, http.StatusSeeOther, w.Code)
	})

	t.Run("pdf requires a file", func(t *testing.T) {
		w := uploadContent(t, srv, adminToken, "No File", "pdf", true, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("catalog lists items without storage details", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/catalog", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var entries []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		require.Len(t, entries, 2)
		_, hasStorage := entries[0]["storage_path"]
		assert.False(t, hasStorage)
	})

	t.Run("free file streams to members", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/content/"+freeID+"/file", memberToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, pdfData, w.Body.Bytes())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	})

	t.Run("locked file needs a subscription", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/content/"+lockedID+"/file", memberToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = doJSON(t, srv, "POST", "/api/enrollments", memberToken, map[string]string{
			"order_id": "ORDER-100",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, srv, "GET", "/api/content/"+lockedID+"/file", memberToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metadata updates", func(t *testing.T) {
		free := true
		w := doJSON(t, srv, "PUT", "/api/content/"+lockedID, adminToken, map[string]interface{}{
			"title":   "Grammar Notes v2",
			"is_free": free,
		})
		require.Equal(t, http.StatusOK, w.Code)
		updated := decode(t, w)
		assert.Equal(t, "Grammar Notes v2", updated["title"])
		assert.Equal(t, true, updated["is_free"])
	})

	t.Run("delete removes item", func(t *testing.T) {
		w := doJSON(t, srv, "DELETE", "/api/content/"+freeID, adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, srv, "GET", "/api/content/"+freeID, memberToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestExerciseAnswers(t *testing.T) {
	srv := newTestServer(t)
	adminToken := setupAdmin(t, srv)
	memberToken, _ := signupMember(t, srv, "member@example.com")

	w := uploadContent(t, srv, adminToken, "Quiz 1", "exercise", true, "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quizID := decode(t, w)["id"].(string)

	w = doJSON(t, srv, "POST", "/api/content/"+quizID+"/exercises", adminToken, map[string]interface{}{
		"prompt":       "Pick the correct article: ___ apple",
		"options":      []string{"a", "an", "the"},
		"answer_index": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	exerciseID := decode(t, w)["id"].(string)

	// The answer index never leaves the server
	w = doJSON(t, srv, "GET", "/api/content/"+quizID, memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "answer_index")

	w = doJSON(t, srv, "POST", "/api/exercises/"+exerciseID+"/answer", memberToken, map[string]int{"answer_index": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["correct"])

	w = doJSON(t, srv, "POST", "/api/exercises/"+exerciseID+"/answer", memberToken, map[string]int{"answer_index": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["correct"])
}

func TestLockedContentNeedsSubscription(t *testing.T) {
	srv := newTestServer(t)
	adminToken := setupAdmin(t, srv)
	memberToken, _ := signupMember(t, srv, "member@example.com")

	w := uploadContent(t, srv, adminToken, "Unit Quiz", "exercise", false, "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quizID := decode(t, w)["id"].(string)

	w = doJSON(t, srv, "POST", "/api/content/"+quizID+"/exercises", adminToken, map[string]interface{}{
		"prompt":       "Choose the past tense of go",
		"options":      []string{"goed", "went", "gone"},
		"answer_index": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	exerciseID := decode(t, w)["id"].(string)

	w = uploadContent(t, srv, adminToken, "Workbook", "pdf", false, "wb.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, w.Code)
	pdfID := decode(t, w)["id"].(string)

	t.Run("locked exercise questions are closed to non-subscribers", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/content/"+quizID, memberToken, nil)
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Subscription required", decode(t, w)["error"])
		assert.NotContains(t, w.Body.String(), "past tense")
	})

	t.Run("locked exercise answers are not graded for non-subscribers", func(t *testing.T) {
		w := doJSON(t, srv, "POST", "/api/exercises/"+exerciseID+"/answer", memberToken, map[string]int{"answer_index": 1})
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.NotContains(t, w.Body.String(), "correct")
	})

	t.Run("locked pdf metadata is closed to non-subscribers", func(t *testing.T) {
		w := doJSON(t, srv, "GET", "/api/content/"+pdfID, memberToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("subscription opens the gate", func(t *testing.T) {
		w := doJSON(t, srv, "POST", "/api/enrollments", memberToken, map[string]string{
			"order_id": "ORDER-300",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, srv, "GET", "/api/content/"+quizID, memberToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "past tense")

		w = doJSON(t, srv, "POST", "/api/exercises/"+exerciseID+"/answer", memberToken, map[string]int{"answer_index": 1})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["correct"])
	})
}

func TestPlaybackPreviewWindows(t *testing.T) {
	srv := newTestServer(t)
	adminToken := setupAdmin(t, srv)
	memberToken, memberID := signupMember(t, srv, "member@example.com")

	videoData := []byte("not really mp4 but good enough for storage")

	w := uploadContent(t, srv, adminToken, "Lesson 1", "video", false, "lesson1.mp4", videoData)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lockedID := decode(t, w)["id"].(string)

	w = uploadContent(t, srv, adminToken, "Intro", "video", true, "intro.mp4", videoData)
	require.Equal(t, http.StatusCreated, w.Code)
	freeID := decode(t, w)["id"].(string)

	t.Run("free video plays without a window", func(t *testing.T) {
		w := doJSON(t, srv, "POST", "/api/content/"+freeID+"/play", memberToken, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode(t, w)
		assert.Nil(t, resp["window_millis"])
		assert.Equal(t, false, resp["preview_ended"])
	})

	t.Run("locked video with unknown duration gets the default window", func(t *testing.T) {
		w := doJSON(t, srv, "POST", "/api/content/"+lockedID+"/play", memberToken, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		resp := decode(t, w)
		require.NotNil(t, resp["window_millis"])
		assert.Equal(t, float64(5000), resp["window_millis"])
	})

	t.Run("short locked video gets the short window", func(t *testing.T) {
		require.NoError(t, srv.GetDB().Model(&models.ContentItem{}).
			Where("id = ?", lockedID).
			Update("duration_seconds", 45).Error)

		w := doJSON(t, srv, "POST", "/api/content/"+lockedID+"/play", memberToken, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		resp := decode(t, w)
		require.NotNil(t, resp["window_millis"])
		assert.Equal(t, float64(2000), resp["window_millis"])
	})

	t.Run("subscribers play without a window", func(t *testing.T) {
		require.NoError(t, srv.GetDB().Create(&models.Enrollment{
			UserID:  memberID,
			OrderID: "ORDER-200",
		}).Error)

		w := doJSON(t, srv, "POST", "/api/content/"+lockedID+"/play", memberToken, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Nil(t, decode(t, w)["window_millis"])
	})

	t.Run("session can be polled and stopped", func(t *testing.T) {
		w := doJSON(t, srv, "POST", "/api/content/"+freeID+"/play", memberToken, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		sid := decode(t, w)["session_id"].(string)

		w = doJSON(t, srv, "GET", "/api/play/"+sid, memberToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, srv, "DELETE", "/api/play/"+sid, memberToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, srv, "GET", "/api/play/"+sid, memberToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("sessions are private to their owner", func(t *testing.T) {
		otherToken, _ := signupMember(t, srv, "other@example.com")

		w := doJSON(t, srv, "POST", "/api/content/"+freeID+"/play", memberToken, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		sid := decode(t, w)["session_id"].(string)

		// Knowing the session id is not enough to poll or kill it
		w = doJSON(t, srv, "GET", "/api/play/"+sid, otherToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doJSON(t, srv, "DELETE", "/api/play/"+sid, otherToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		// The owner still holds a live session
		w = doJSON(t, srv, "GET", "/api/play/"+sid, memberToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = doJSON(t, srv, "DELETE", "/api/play/"+sid, memberToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("pdf cannot start playback", func(t *testing.T) {
		pdf := uploadContent(t, srv, adminToken, "Notes", "pdf", true, "n.pdf", []byte("%PDF"))
		require.Equal(t, http.StatusCreated, pdf.Code)
		id := decode(t, pdf)["id"].(string)

		w := doJSON(t, srv, "POST", "/api/content/"+id+"/play", memberToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSystemStatus(t *testing.T) {
	srv := newTestServer(t)
	adminToken := setupAdmin(t, srv)

	w := doJSON(t, srv, "GET", "/api/system", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "test", resp["version"])
	assert.Equal(t, float64(1), resp["users"])
	assert.Equal(t, float64(0), resp["active_playbacks"])
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "online", resp["status"])
	assert.Equal(t, "englishpod-api", resp["service"])

	// Timestamp is recent UTC
	ts, err := time.Parse(time.RFC3339, resp["timestamp"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}
