package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes one audio device known to the host API.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// ListDevices enumerates the available input and output devices. The device
// API is initialized for the duration of the call only.
func ListDevices() (inputs []Device, outputs []Device, err error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, nil, fmt.Errorf("enumerating devices: %w", err)
	}

	for i, info := range infos {
		d := Device{
			Index:             i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
		if info.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
		if info.MaxOutputChannels > 0 {
			outputs = append(outputs, d)
		}
	}
	return inputs, outputs, nil
}
