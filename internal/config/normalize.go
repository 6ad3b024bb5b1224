package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = ExpandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return err
	}
	if c.Paths.MediaDir, err = ExpandPath(strings.TrimSpace(c.Paths.MediaDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = ExpandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	if c.Publisher.SessionFile, err = ExpandPath(strings.TrimSpace(c.Publisher.SessionFile)); err != nil {
		return err
	}

	c.Discord.Token = strings.TrimSpace(c.Discord.Token)
	c.Discord.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Discord.APIBaseURL), "/")
	c.Discord.GatewayURL = strings.TrimSpace(c.Discord.GatewayURL)
	c.Publisher.BaseURL = strings.TrimRight(strings.TrimSpace(c.Publisher.BaseURL), "/")
	c.Publisher.Username = strings.TrimSpace(c.Publisher.Username)
	c.Publisher.Caption = strings.TrimSpace(c.Publisher.Caption)
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Discord.APIBaseURL == "" {
		c.Discord.APIBaseURL = defaultDiscordAPIBase
	}
	if c.Discord.GatewayURL == "" {
		c.Discord.GatewayURL = defaultGatewayURL
	}
	if c.Discord.RequestTimeout <= 0 {
		c.Discord.RequestTimeout = defaultRequestTimeout
	}
	if c.Publisher.RequestTimeout <= 0 {
		c.Publisher.RequestTimeout = defaultRequestTimeout
	}
	if c.Publisher.Caption == "" {
		c.Publisher.Caption = defaultCaption
	}
	if c.Workflow.UploadIntervalMinutes <= 0 {
		c.Workflow.UploadIntervalMinutes = defaultUploadInterval
	}
	if c.Workflow.ReconcileIntervalSeconds <= 0 {
		c.Workflow.ReconcileIntervalSeconds = defaultReconcileSeconds
	}
	if c.Workflow.ErrorRetrySeconds <= 0 {
		c.Workflow.ErrorRetrySeconds = defaultErrorRetry
	}
	if c.Media.MaxAttachments <= 0 {
		c.Media.MaxAttachments = defaultMaxAttachments
	}
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Media.JPEGQuality <= 0 || c.Media.JPEGQuality > 100 {
		c.Media.JPEGQuality = defaultJPEGQuality
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
