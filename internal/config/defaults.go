package config

const (
	defaultDataDir          = "~/.local/share/crosspost"
	defaultMediaDir         = "~/.local/share/crosspost/media"
	defaultLogDir           = "~/.local/share/crosspost/logs"
	defaultDiscordAPIBase   = "https://discord.com/api/v10"
	defaultGatewayURL       = "wss://gateway.discord.gg/?v=10&encoding=json"
	defaultRequestTimeout   = 15
	defaultSessionFile      = "~/.local/share/crosspost/session.json"
	defaultCaption          = "#fyp"
	defaultUploadInterval   = 60
	defaultReconcileSeconds = 30
	defaultErrorRetry       = 10
	defaultMaxAttachments   = 10
	defaultFFmpegBinary     = "ffmpeg"
	defaultJPEGQuality      = 90
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
		},
		Discord: Discord{
			APIBaseURL:     defaultDiscordAPIBase,
			GatewayURL:     defaultGatewayURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Publisher: Publisher{
			SessionFile:    defaultSessionFile,
			Caption:        defaultCaption,
			RequestTimeout: defaultRequestTimeout,
		},
		Workflow: Workflow{
			UploadIntervalMinutes:    defaultUploadInterval,
			ReconcileIntervalSeconds: defaultReconcileSeconds,
			ErrorRetrySeconds:        defaultErrorRetry,
		},
		Media: Media{
			MaxAttachments: defaultMaxAttachments,
			FFmpegBinary:   defaultFFmpegBinary,
			JPEGQuality:    defaultJPEGQuality,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
