//go:build linux

package recorder

import (
	"os/exec"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// MicName returns a human-readable name for the default input device.
// It tries pactl (PulseAudio/PipeWire) first for a descriptive name,
// then falls back to the PortAudio device name.
func MicName() string {
	if name := micNameFromPactl(); name != "" {
		return name
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return ""
	}
	return dev.Name
}

func micNameFromPactl() string {
	out, err := exec.Command("pactl", "get-default-source").Output()
	if err != nil {
		return ""
	}
	source := strings.TrimSpace(string(out))
	if source == "" {
		return ""
	}

	out, err = exec.Command("pactl", "list", "sources").Output()
	if err != nil {
		return ""
	}
	return sourceDescription(string(out), source)
}

// sourceDescription finds the Description of the named source in
// `pactl list sources` output. Monitor sources capture playback, not a
// microphone, so they yield "".
func sourceDescription(listing, source string) string {
	inSource := false
	for _, line := range strings.Split(listing, "\n") {
		trimmed := strings.TrimSpace(line)
		if name, ok := strings.CutPrefix(trimmed, "Name: "); ok {
			inSource = name == source
			continue
		}
		if !inSource {
			continue
		}
		if desc, ok := strings.CutPrefix(trimmed, "Description: "); ok {
			if strings.HasPrefix(desc, "Monitor of ") {
				return ""
			}
			return desc
		}
	}
	return ""
}
