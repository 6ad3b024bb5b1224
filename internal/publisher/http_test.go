package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"crosspost/internal/publisher"
	"crosspost/internal/queue"
	"crosspost/internal/services"
	"crosspost/internal/testsupport"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (publisher.Service, string) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	cfg := testsupport.NewConfig(t)
	cfg.Publisher.BaseURL = server.URL
	cfg.Publisher.SessionFile = sessionFile
	return publisher.NewService(cfg), sessionFile
}

func writeMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testsupport.WriteFile(t, path, 64)
	return path
}

func TestUploadPhotoLogsInAndPersistsSession(t *testing.T) {
	var loginCount, uploadCount int
	svc, sessionFile := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			loginCount++
			var creds map[string]string
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
				t.Errorf("decode login body: %v", err)
			}
			if creds["username"] != "test" {
				t.Errorf("unexpected username %q", creds["username"])
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
		case "/media/photo":
			uploadCount++
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if r.FormValue("caption") != "#fyp" {
				t.Errorf("unexpected caption %q", r.FormValue("caption"))
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	path := writeMediaFile(t, "photo.jpg_converted.jpg")
	if err := svc.UploadPhoto(context.Background(), path, "#fyp"); err != nil {
		t.Fatalf("UploadPhoto failed: %v", err)
	}
	if loginCount != 1 || uploadCount != 1 {
		t.Fatalf("expected 1 login and 1 upload, got %d/%d", loginCount, uploadCount)
	}

	data, err := os.ReadFile(sessionFile)
	if err != nil {
		t.Fatalf("expected session file written: %v", err)
	}
	var saved struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &saved); err != nil || saved.Token != "tok-1" {
		t.Fatalf("unexpected session contents %q (err %v)", data, err)
	}

	// Second upload reuses the session without another login.
	if err := svc.UploadPhoto(context.Background(), path, "#fyp"); err != nil {
		t.Fatalf("second UploadPhoto failed: %v", err)
	}
	if loginCount != 1 {
		t.Fatalf("expected cached session, got %d logins", loginCount)
	}
}

func TestUploadRetriesAfterExpiredSession(t *testing.T) {
	var loginCount int
	tokens := []string{"stale", "fresh"}
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			token := tokens[0]
			if loginCount < len(tokens) {
				token = tokens[loginCount]
			}
			loginCount++
			_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
		case "/media/video":
			if r.Header.Get("Authorization") == "Bearer stale" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	})

	path := writeMediaFile(t, "clip.mp4_converted.mp4")
	if err := svc.UploadVideo(context.Background(), path, "caption"); err != nil {
		t.Fatalf("UploadVideo failed: %v", err)
	}
	if loginCount != 2 {
		t.Fatalf("expected re-login after 401, got %d logins", loginCount)
	}
}

func TestUploadAlbumSendsAllFiles(t *testing.T) {
	var fileCount int
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		case "/media/album":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			for range r.MultipartForm.File {
				fileCount++
			}
			w.WriteHeader(http.StatusOK)
		}
	})

	paths := []string{
		writeMediaFile(t, "a.jpg"),
		writeMediaFile(t, "b.jpg"),
	}
	if err := svc.UploadAlbum(context.Background(), paths, "caption"); err != nil {
		t.Fatalf("UploadAlbum failed: %v", err)
	}
	if fileCount != 2 {
		t.Fatalf("expected 2 files in album form, got %d", fileCount)
	}
}

func TestUploadFailureIsPublishError(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	path := writeMediaFile(t, "photo.jpg")
	err := svc.UploadPhoto(context.Background(), path, "caption")
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestUploadItemDispatch(t *testing.T) {
	rec := &recordingService{}
	ctx := context.Background()

	photoItem := &queue.Item{Attachments: []queue.Attachment{{Kind: queue.KindPhoto}}}
	if err := publisher.UploadItem(ctx, rec, photoItem, []string{"a.jpg"}, "c"); err != nil {
		t.Fatalf("UploadItem failed: %v", err)
	}
	videoItem := &queue.Item{Attachments: []queue.Attachment{{Kind: queue.KindVideo}}}
	if err := publisher.UploadItem(ctx, rec, videoItem, []string{"a.mp4"}, "c"); err != nil {
		t.Fatalf("UploadItem failed: %v", err)
	}
	if err := publisher.UploadItem(ctx, rec, photoItem, []string{"a.jpg", "b.jpg"}, "c"); err != nil {
		t.Fatalf("UploadItem failed: %v", err)
	}

	want := []string{"photo", "video", "album"}
	if len(rec.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, rec.calls)
	}
	for i, call := range want {
		if rec.calls[i] != call {
			t.Fatalf("expected calls %v, got %v", want, rec.calls)
		}
	}

	err := publisher.UploadItem(ctx, rec, photoItem, nil, "c")
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected publish error for empty media, got %v", err)
	}
	if len(rec.calls) != len(want) {
		t.Fatalf("expected no call for empty media, got %v", rec.calls)
	}
}

type recordingService struct {
	calls []string
}

func (r *recordingService) UploadPhoto(context.Context, string, string) error {
	r.calls = append(r.calls, "photo")
	return nil
}

func (r *recordingService) UploadVideo(context.Context, string, string) error {
	r.calls = append(r.calls, "video")
	return nil
}

func (r *recordingService) UploadAlbum(context.Context, []string, string) error {
	r.calls = append(r.calls, "album")
	return nil
}
