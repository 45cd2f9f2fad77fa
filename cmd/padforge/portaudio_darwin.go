//go:build darwin

package main

import "github.com/gordonklaus/portaudio"

// initPortAudio initializes PortAudio. On macOS, no stderr suppression is needed
// since CoreAudio doesn't produce ALSA/JACK noise.
func initPortAudio() error {
	return portaudio.Initialize()
}
