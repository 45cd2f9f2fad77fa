//go:build darwin

package recorder

import "github.com/gordonklaus/portaudio"

// MicName returns the PortAudio name of the default input device, or ""
// if there is none. CoreAudio names are already descriptive.
func MicName() string {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return ""
	}
	return dev.Name
}
