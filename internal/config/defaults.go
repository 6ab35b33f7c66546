package config

const (
	defaultConfigPath            = "~/.config/sopgen/config.toml"
	defaultOutputDir             = "."
	defaultFramesDir             = "~/.local/share/sopgen/frames"
	defaultLogDir                = "~/.local/share/sopgen/logs"
	defaultHistoryDB             = "~/.local/share/sopgen/history.db"
	defaultIntervalSeconds       = 2.0
	defaultMaxWidth              = 512
	defaultJPEGQuality           = 2
	defaultSamplerTimeoutSeconds = 600
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-2.5-pro"
	defaultLLMReferer            = "https://github.com/sopgen/sopgen"
	defaultLLMTitle              = "sopgen"
	defaultLLMTimeoutSeconds     = 300
	defaultLLMTemperature        = 0.4
	defaultLLMTopP               = 0.95
	defaultLLMMaxTokens          = 8192
	defaultTranscriptionBaseURL  = "https://api.groq.com/openai/v1/audio/transcriptions"
	defaultTranscriptionModel    = "whisper-large-v3"
	defaultTranscriptionTimeout  = 300
	defaultCompany               = "Your Company"
	defaultNotifyRequestTimeout  = 10
	defaultAPIBind               = "127.0.0.1:7490"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			FramesDir: defaultFramesDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Sampler: Sampler{
			IntervalSeconds: defaultIntervalSeconds,
			MaxWidth:        defaultMaxWidth,
			JPEGQuality:     defaultJPEGQuality,
			TimeoutSeconds:  defaultSamplerTimeoutSeconds,
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
			TopP:           defaultLLMTopP,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Transcription: Transcription{
			Enabled:        true,
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Render: Render{
			Company: defaultCompany,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			OnSuccess:      true,
			OnFailure:      true,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
