package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"crosspost/internal/services"
)

type httpService struct {
	baseURL     string
	username    string
	password    string
	sessionFile string
	client      *http.Client

	mu    sync.Mutex
	token string
}

type session struct {
	Token string `json:"token"`
}

// ensureSession returns a valid auth token, loading a persisted session from
// disk first and logging in only when none exists.
func (s *httpService) ensureSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	if s.sessionFile != "" {
		if data, err := os.ReadFile(s.sessionFile); err == nil {
			var saved session
			if err := json.Unmarshal(data, &saved); err == nil && saved.Token != "" {
				s.token = saved.Token
				return s.token, nil
			}
		}
	}

	token, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.token = token

	if s.sessionFile != "" {
		data, err := json.Marshal(session{Token: token})
		if err == nil {
			if mkErr := os.MkdirAll(filepath.Dir(s.sessionFile), 0o755); mkErr == nil {
				_ = os.WriteFile(s.sessionFile, data, 0o600)
			}
		}
	}
	return s.token, nil
}

// invalidateSession drops the cached token so the next call logs in again.
func (s *httpService) invalidateSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if s.sessionFile != "" {
		_ = os.Remove(s.sessionFile)
	}
}

func (s *httpService) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrPublish, "publisher", "login", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", services.Wrap(services.ErrPublish, "publisher", "login",
			fmt.Sprintf("returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}

	var result session
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", services.Wrap(services.ErrPublish, "publisher", "login", "decode response", err)
	}
	if result.Token == "" {
		return "", services.Wrap(services.ErrPublish, "publisher", "login", "empty token in response", nil)
	}
	return result.Token, nil
}

func (s *httpService) UploadPhoto(ctx context.Context, path, caption string) error {
	return s.upload(ctx, "/media/photo", []string{path}, caption)
}

func (s *httpService) UploadVideo(ctx context.Context, path, caption string) error {
	return s.upload(ctx, "/media/video", []string{path}, caption)
}

func (s *httpService) UploadAlbum(ctx context.Context, paths []string, caption string) error {
	return s.upload(ctx, "/media/album", paths, caption)
}

func (s *httpService) upload(ctx context.Context, endpoint string, paths []string, caption string) error {
	token, err := s.ensureSession(ctx)
	if err != nil {
		return err
	}

	err = s.uploadOnce(ctx, endpoint, paths, caption, token)
	if isAuthFailure(err) {
		// Stale persisted session: log in fresh and retry once.
		s.invalidateSession()
		token, err = s.ensureSession(ctx)
		if err != nil {
			return err
		}
		err = s.uploadOnce(ctx, endpoint, paths, caption, token)
	}
	return err
}

func (s *httpService) uploadOnce(ctx context.Context, endpoint string, paths []string, caption, token string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for idx, path := range paths {
		part, err := writer.CreateFormFile(fmt.Sprintf("file%d", idx), filepath.Base(path))
		if err != nil {
			return services.Wrap(services.ErrPublish, "publisher", "upload", "create form part", err)
		}
		f, err := os.Open(path)
		if err != nil {
			return services.Wrap(services.ErrPublish, "publisher", "upload", "open media file", err)
		}
		_, copyErr := io.Copy(part, f)
		f.Close()
		if copyErr != nil {
			return services.Wrap(services.ErrPublish, "publisher", "upload", "stream media file", copyErr)
		}
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return services.Wrap(services.ErrPublish, "publisher", "upload", "write caption field", err)
	}
	if err := writer.Close(); err != nil {
		return services.Wrap(services.ErrPublish, "publisher", "upload", "finalize form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, &body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrPublish, "publisher", "upload", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errAuthExpired
	}
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrPublish, "publisher", "upload",
			fmt.Sprintf("%s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var errAuthExpired = services.Wrap(services.ErrPublish, "publisher", "upload", "session expired", nil)

func isAuthFailure(err error) bool {
	return errors.Is(err, errAuthExpired)
}
