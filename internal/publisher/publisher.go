package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crosspost/internal/config"
	"crosspost/internal/queue"
	"crosspost/internal/services"
)

// Service is the external social platform client. Calls are all-or-nothing;
// the worker only distinguishes success from failure.
type Service interface {
	UploadPhoto(ctx context.Context, path, caption string) error
	UploadVideo(ctx context.Context, path, caption string) error
	UploadAlbum(ctx context.Context, paths []string, caption string) error
}

// NewService builds a publisher backed by the configured platform API. When
// no base URL is configured, a noop implementation is returned so queue-only
// commands work without credentials.
func NewService(cfg *config.Config) Service {
	baseURL := strings.TrimSpace(cfg.Publisher.BaseURL)
	if baseURL == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Publisher.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &httpService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    cfg.Publisher.Username,
		password:    cfg.Publisher.Password,
		sessionFile: cfg.Publisher.SessionFile,
		client:      &http.Client{Timeout: timeout},
	}
}

// UploadItem publishes the converted media of one queue item: several files
// become an album, a single file goes through the photo or video call. An
// item with no media cannot be published.
func UploadItem(ctx context.Context, svc Service, item *queue.Item, paths []string, caption string) error {
	if len(paths) > 1 {
		return svc.UploadAlbum(ctx, paths, caption)
	}
	if len(paths) == 1 && item.HasVideo() {
		return svc.UploadVideo(ctx, paths[0], caption)
	}
	if len(paths) == 1 {
		return svc.UploadPhoto(ctx, paths[0], caption)
	}
	return services.Wrap(services.ErrPublish, "publisher", "upload",
		fmt.Sprintf("item %d has no media to publish", item.ID), nil)
}

type noopService struct{}

func (noopService) UploadPhoto(context.Context, string, string) error   { return nil }
func (noopService) UploadVideo(context.Context, string, string) error   { return nil }
func (noopService) UploadAlbum(context.Context, []string, string) error { return nil }
