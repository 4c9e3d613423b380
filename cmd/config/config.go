package config

import (
	"log/slog"

	"github.com/spf13/viper"
)

func setViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")

	// Capture side. chunk size = round(samplerate * framelength); the same
	// samplerate/framelength pair must be used by every connected component
	// or the streaming speaker's exact-size contract is violated.
	viper.SetDefault("capture.samplerate", 16000)
	viper.SetDefault("capture.samplewidth", 2)
	viper.SetDefault("capture.framelength", 0.02)
	viper.SetDefault("capture.ptt.enabled", false)
	viper.SetDefault("capture.ptt.key", "m")

	// Playback side.
	viper.SetDefault("playback.samplerate", 44100)
	viper.SetDefault("playback.samplewidth", 2)
	viper.SetDefault("playback.framelength", 0.02)
	viper.SetDefault("playback.route", "both")
	viper.SetDefault("playback.file", "")

	// Dispatcher.
	viper.SetDefault("dispatcher.speed", 1.0)
	viper.SetDefault("dispatcher.continuous", true)
	viper.SetDefault("dispatcher.interrupt", true)

	// Recorder. Empty path disables recording.
	viper.SetDefault("record.path", "")
}

func LoadConfig(configFilePath string) {
	setViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("no config file found", "configFilePath", configFilePath)
		} else {
			slog.Error("error during config read", "err", err)
			panic(err)
		}
	}
}
