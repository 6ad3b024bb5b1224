package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"crosspost/internal/config"
)

const userAgent = "Crosspost-Go/0.1.0"

// Client is the outbound chat surface used by the intake handler and the
// status reconciler.
type Client interface {
	AddReaction(ctx context.Context, channelID, messageID int64, emoji string) error
	ClearReactions(ctx context.Context, channelID, messageID int64) error
	DeleteMessage(ctx context.Context, channelID, messageID int64) error
	SendEmbed(ctx context.Context, channelID int64, embed Embed, files ...string) (int64, error)
	EditEmbed(ctx context.Context, channelID, messageID int64, embed Embed) error
	RenameChannel(ctx context.Context, channelID int64, name string) error
	DownloadAttachment(ctx context.Context, attachmentURL string) (io.ReadCloser, error)
}

type restClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient builds a REST client for the chat platform API.
func NewClient(cfg *config.Config) Client {
	timeout := time.Duration(cfg.Discord.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &restClient{
		baseURL: strings.TrimRight(cfg.Discord.APIBaseURL, "/"),
		token:   cfg.Discord.Token,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewNopClient returns a client whose operations all succeed without doing
// anything. Used by CLI paths that never touch the chat platform.
func NewNopClient() Client {
	return nopClient{}
}

func (c *restClient) AddReaction(ctx context.Context, channelID, messageID int64, emoji string) error {
	path := fmt.Sprintf("/channels/%d/messages/%d/reactions/%s/@me", channelID, messageID, url.PathEscape(emoji))
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func (c *restClient) ClearReactions(ctx context.Context, channelID, messageID int64) error {
	path := fmt.Sprintf("/channels/%d/messages/%d/reactions", channelID, messageID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *restClient) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *restClient) SendEmbed(ctx context.Context, channelID int64, embed Embed, files ...string) (int64, error) {
	path := fmt.Sprintf("/channels/%d/messages", channelID)

	var created struct {
		ID string `json:"id"`
	}
	if len(files) == 0 {
		body := map[string]any{"embeds": []Embed{embed}}
		if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
			return 0, err
		}
	} else if err := c.sendEmbedWithFiles(ctx, path, embed, files, &created); err != nil {
		return 0, err
	}

	messageID, err := strconv.ParseInt(created.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse created message id %q: %w", created.ID, err)
	}
	return messageID, nil
}

// sendEmbedWithFiles posts a multipart message: a payload_json part carrying
// the embed and attachment descriptors, followed by one part per file.
func (c *restClient) sendEmbedWithFiles(ctx context.Context, path string, embed Embed, files []string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	attachments := make([]map[string]any, 0, len(files))
	for i, file := range files {
		attachments = append(attachments, map[string]any{"id": i, "filename": filepath.Base(file)})
	}
	payload, err := json.Marshal(map[string]any{"embeds": []Embed{embed}, "attachments": attachments})
	if err != nil {
		return fmt.Errorf("marshal message payload: %w", err)
	}
	if err := writer.WriteField("payload_json", string(payload)); err != nil {
		return fmt.Errorf("write payload part: %w", err)
	}

	for i, file := range files {
		part, err := writer.CreateFormFile(fmt.Sprintf("files[%d]", i), filepath.Base(file))
		if err != nil {
			return fmt.Errorf("create file part: %w", err)
		}
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open attachment %s: %w", file, err)
		}
		_, copyErr := io.Copy(part, f)
		f.Close()
		if copyErr != nil {
			return fmt.Errorf("read attachment %s: %w", file, copyErr)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("POST %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *restClient) EditEmbed(ctx context.Context, channelID, messageID int64, embed Embed) error {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	body := map[string]any{"embeds": []Embed{embed}}
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

func (c *restClient) RenameChannel(ctx context.Context, channelID int64, name string) error {
	path := fmt.Sprintf("/channels/%d", channelID)
	body := map[string]any{"name": name}
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// DownloadAttachment fetches the raw attachment bytes from the CDN URL the
// gateway delivered. The CDN does not require authentication.
func (c *restClient) DownloadAttachment(ctx context.Context, attachmentURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachmentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build attachment request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("attachment download returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *restClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type nopClient struct{}

func (nopClient) AddReaction(context.Context, int64, int64, string) error { return nil }
func (nopClient) ClearReactions(context.Context, int64, int64) error      { return nil }
func (nopClient) DeleteMessage(context.Context, int64, int64) error       { return nil }

func (nopClient) SendEmbed(context.Context, int64, Embed, ...string) (int64, error) {
	return 0, nil
}

func (nopClient) EditEmbed(context.Context, int64, int64, Embed) error { return nil }
func (nopClient) RenameChannel(context.Context, int64, string) error   { return nil }
func (nopClient) DownloadAttachment(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
