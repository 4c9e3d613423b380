package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/incremental-systems/dialogio/cmd/config"
	"github.com/incremental-systems/dialogio/internal/utils"
	"github.com/incremental-systems/dialogio/pkg/audio"
	"github.com/incremental-systems/dialogio/pkg/audioconv"
	"github.com/incremental-systems/dialogio/pkg/frame"
	"github.com/incremental-systems/dialogio/pkg/pipeline"
)

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	listDevices := flag.Bool("listDevices", false, "List available audio devices and exit.")
	flag.Parse()

	config.LoadConfig(*configFilePath)
	logFilePointer, err := utils.ConfigureDefaultLogger(
		viper.GetString("loglevel"),
		viper.GetString("logfile"),
	)
	if err != nil {
		slog.Error("could not configure logger", "err", err)
		panic(err)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	if *listDevices {
		showDevices()
		return
	}

	// --------------------------------------------------------------------------------

	captureRate := viper.GetInt("capture.samplerate")
	captureWidth := viper.GetInt("capture.samplewidth")
	captureFrameLength := viper.GetFloat64("capture.framelength")

	playbackRate := viper.GetInt("playback.samplerate")
	playbackWidth := viper.GetInt("playback.samplewidth")
	playbackFrameLength := viper.GetFloat64("playback.framelength")

	runner := pipeline.NewRunner(nil)

	// Capture chain: microphone (optionally push-to-talk gated) into the
	// recorder, when a recording path is configured.
	var microphone pipeline.Module
	if viper.GetBool("capture.ptt.enabled") {
		microphone = audio.NewMicrophonePTT(
			viper.GetString("capture.ptt.key"),
			captureFrameLength, captureRate, captureWidth,
		)
	} else {
		microphone = audio.NewMicrophone(captureFrameLength, captureRate, captureWidth)
	}

	if recordPath := viper.GetString("record.path"); recordPath != "" {
		recorder := audio.NewRecorder(recordPath, captureRate, captureWidth)
		runner.Pump(microphone, recorder)
	} else {
		runner.Pump(microphone)
	}

	// Playback chain: dispatcher pacing utterance slices into the streaming
	// speaker.
	dispatcher := audio.NewDispatcher(audio.DispatcherConfig{
		TargetFrameLength: playbackFrameLength,
		SampleRate:        playbackRate,
		SampleWidth:       playbackWidth,
		Speed:             viper.GetFloat64("dispatcher.speed"),
		Continuous:        viper.GetBool("dispatcher.continuous"),
		Interrupt:         viper.GetBool("dispatcher.interrupt"),
	})
	route, err := audio.ParseRouteMode(viper.GetString("playback.route"))
	if err != nil {
		slog.Error("invalid playback route", "err", err)
		panic(err)
	}
	var speaker pipeline.Module
	if route == audio.RouteBoth {
		speaker = audio.NewStreamingSpeaker(playbackFrameLength, playbackRate, playbackWidth)
	} else {
		// Sub-channel routing needs the blocking stereo path.
		speaker = audio.NewSpeaker(playbackRate, playbackWidth, route)
	}
	runner.Drain(dispatcher, speaker)

	if err := runner.Run(); err != nil {
		slog.Error("could not start pipeline", "err", err)
		panic(err)
	}
	defer runner.Stop()

	// --------------------------------------------------------------------------------

	// With a playback file configured, hand it to the dispatcher as one
	// utterance so it streams out in paced slices.
	if playbackFile := viper.GetString("playback.file"); playbackFile != "" {
		if err := dispatchFile(dispatcher, playbackFile, playbackRate, playbackWidth); err != nil {
			slog.Error("could not dispatch playback file", "file", playbackFile, "err", err)
		}
	}

	slog.Info("pipeline running, interrupt to stop")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")
}

func dispatchFile(dispatcher *audio.Dispatcher, path string, sampleRate int, sampleWidth int) error {
	raw, info, err := audioconv.LoadWAV(path)
	if err != nil {
		return err
	}
	if info.NumChannels != frame.NumChannels {
		return fmt.Errorf("playback file has %d channels, want mono", info.NumChannels)
	}
	if info.SampleRate != sampleRate {
		slog.Debug(
			"resampling playback file",
			"fileRate", info.SampleRate,
			"playbackRate", sampleRate,
		)
		raw = audioconv.Resample(raw, info.SampleRate, sampleRate)
	}

	af, err := frame.NewAudioFrame(raw, len(raw)/sampleWidth, sampleRate, sampleWidth)
	if err != nil {
		return err
	}
	utterance := frame.UtteranceFrame{AudioFrame: af, Dispatch: true}
	_, err = dispatcher.ProcessUpdate(pipeline.MessageFromFrame(utterance, pipeline.Add))
	return err
}

func showDevices() {
	inputs, outputs, err := audio.ListDevices()
	if err != nil {
		slog.Error("could not enumerate audio devices", "err", err)
		panic(err)
	}

	fmt.Println("Output Devices:")
	for _, d := range outputs {
		fmt.Printf("  %s (%d)\n", d.Name, d.Index)
	}
	fmt.Println("\nInput Devices:")
	for _, d := range inputs {
		fmt.Printf("  %s (%d)\n", d.Name, d.Index)
	}
}
