package config

import (
	"strconv"

	"github.com/pitabwire/frame/config"
)

// TranscribeConfig holds configuration for the transcription service.
type TranscribeConfig struct {
	config.ConfigurationDefault

	DefaultBackend string `envDefault:"whisperasr" env:"TRANSCRIBE_BACKEND"`

	// whisperasr
	WhisperASRURL string `envDefault:"http://localhost:9000" env:"WHISPER_ASR_URL"`

	// scribe
	ScribeBaseURL  string `envDefault:"" env:"SCRIBE_BASE_URL"`
	ScribeAPIToken string `envDefault:"" env:"SCRIBE_API_TOKEN"`

	// azurespeech
	AzureSpeechKey       string `envDefault:""      env:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion    string `envDefault:""      env:"AZURE_SPEECH_REGION"`
	AzureDetectLanguages string `envDefault:""      env:"AZURE_DETECT_LANGUAGES"`
	FFmpegPath           string `envDefault:"ffmpeg" env:"FFMPEG_PATH"`

	// Shared transcription options.
	Language        string `envDefault:"auto"     env:"TRANSCRIBE_LANGUAGE"`
	Translate       bool   `envDefault:"false"    env:"TRANSLATE"`
	Timestamps      bool   `envDefault:"false"    env:"TIMESTAMPS"`
	TimestampFormat string `envDefault:"15:04:05" env:"TIMESTAMP_FORMAT"`
	Debug           bool   `envDefault:"false"    env:"TRANSCRIBE_DEBUG"`

	MaxUploadBytes  int64  `envDefault:"104857600" env:"MAX_UPLOAD_BYTES"`
	NotifyHooksFile string `envDefault:""          env:"NOTIFY_HOOKS_FILE"`

	WorkerPoolCount    int `envDefault:"2"  env:"WORKER_POOL_COUNT"`
	WorkerPoolCapacity int `envDefault:"50" env:"WORKER_POOL_CAPACITY"`
}

// BackendConfig flattens the settings into the string map handed to backend
// factories. Per-request overrides are merged on top of this map.
func (c *TranscribeConfig) BackendConfig() map[string]string {
	return map[string]string{
		"whisper_asr_url":        c.WhisperASRURL,
		"scribe_base_url":        c.ScribeBaseURL,
		"scribe_api_token":       c.ScribeAPIToken,
		"azure_speech_key":       c.AzureSpeechKey,
		"azure_region":           c.AzureSpeechRegion,
		"azure_detect_languages": c.AzureDetectLanguages,
		"ffmpeg_path":            c.FFmpegPath,
		"language":               c.Language,
		"translate":              strconv.FormatBool(c.Translate),
		"timestamps":             strconv.FormatBool(c.Timestamps),
		"timestamp_format":       c.TimestampFormat,
		"debug":                  strconv.FormatBool(c.Debug),
	}
}
