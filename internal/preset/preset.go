// Package preset builds the instrument-rack preset document that maps
// rendered samples onto drum-rack pads.
package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
)

// Document constants of the device host's preset format.
const (
	SchemaURL = "http://tech.ableton.com/schema/song/1.4.4/devicePreset.json"

	KindInstrumentRack = "instrumentRack"
	KindDrumRack       = "drumRack"
	KindDrumCell       = "drumCell"
	KindReverb         = "reverb"
	KindSaturator      = "saturator"

	LockID             = 1001
	InstrumentLockSeal = -973461132
	DrumRackLockSeal   = 830049224

	MacroCount = 8

	// BaseNote is the MIDI note of pad 0.
	BaseNote    = 36
	SendingNote = 60
	ChokeGroup  = 1
	SendAmount  = -70.0

	SamplesDir = "Samples"
)

// Drum cell parameter names.
const (
	ParamEnvelopeHold   = "Voice_Envelope_Hold"
	ParamEnvelopeDecay  = "Voice_Envelope_Decay"
	ParamPlaybackStart  = "Voice_PlaybackStart"
	ParamPlaybackLength = "Voice_PlaybackLength"
)

// ErrNoDrumRack is returned when a document lacks the drum rack its pads
// live in.
var ErrNoDrumRack = errors.New("preset has no drum rack")

// Parameters maps device parameter names to numbers or booleans.
type Parameters map[string]any

// DeviceData holds device-specific payload, such as a drum cell's sampleUri.
type DeviceData map[string]any

// Preset is the document root: a single instrument rack.
type Preset struct {
	Schema     string     `json:"$schema"`
	Kind       string     `json:"kind"`
	Name       string     `json:"name"`
	LockID     int        `json:"lockId"`
	LockSeal   int64      `json:"lockSeal"`
	Parameters Parameters `json:"parameters"`
	Chains     []Chain    `json:"chains"`
}

// Chain is one signal path of a rack.
type Chain struct {
	Name             string            `json:"name"`
	Color            int               `json:"color"`
	Devices          []Device          `json:"devices"`
	Mixer            Mixer             `json:"mixer"`
	DrumZoneSettings *DrumZoneSettings `json:"drumZoneSettings,omitempty"`
}

// Mixer is a chain's mixer strip.
type Mixer struct {
	Pan       float64 `json:"pan"`
	SoloCue   bool    `json:"solo-cue"`
	SpeakerOn bool    `json:"speakerOn"`
	Volume    float64 `json:"volume"`
	Sends     []Send  `json:"sends"`
}

// Send is a mixer send to a return chain.
type Send struct {
	IsEnabled bool    `json:"isEnabled"`
	Amount    float64 `json:"amount"`
}

// DrumZoneSettings binds a drum-rack chain to a MIDI note.
type DrumZoneSettings struct {
	ReceivingNote int `json:"receivingNote"`
	SendingNote   int `json:"sendingNote"`
	ChokeGroup    int `json:"chokeGroup"`
}

// Device is a node in the device tree. Racks carry chains and a lock;
// leaf devices carry DeviceData.
type Device struct {
	PresetURI    *string
	Kind         string
	Name         string
	LockID       int
	LockSeal     int64
	Parameters   Parameters
	Chains       []Chain
	ReturnChains []Chain
	DeviceData   DeviceData
}

// deviceJSON is Device's wire shape. Pointers distinguish absent keys from
// empty lists and objects.
type deviceJSON struct {
	PresetURI    *string     `json:"presetUri"`
	Kind         string      `json:"kind"`
	Name         string      `json:"name"`
	LockID       *int        `json:"lockId,omitempty"`
	LockSeal     *int64      `json:"lockSeal,omitempty"`
	Parameters   Parameters  `json:"parameters"`
	Chains       *[]Chain    `json:"chains,omitempty"`
	ReturnChains *[]Chain    `json:"returnChains,omitempty"`
	DeviceData   *DeviceData `json:"deviceData,omitempty"`
}

// IsRack reports whether the device holds chains.
func (d *Device) IsRack() bool {
	return d.Kind == KindDrumRack || d.Kind == KindInstrumentRack
}

func (d Device) MarshalJSON() ([]byte, error) {
	w := deviceJSON{
		PresetURI:  d.PresetURI,
		Kind:       d.Kind,
		Name:       d.Name,
		Parameters: d.Parameters,
	}
	if w.Parameters == nil {
		w.Parameters = Parameters{}
	}
	if d.IsRack() {
		chains := d.Chains
		if chains == nil {
			chains = []Chain{}
		}
		w.Chains = &chains
		if d.ReturnChains != nil {
			w.ReturnChains = &d.ReturnChains
		}
		if d.LockID != 0 {
			w.LockID = &d.LockID
			w.LockSeal = &d.LockSeal
		}
	} else {
		data := d.DeviceData
		if data == nil {
			data = DeviceData{}
		}
		w.DeviceData = &data
	}
	return json.Marshal(w)
}

func (d *Device) UnmarshalJSON(b []byte) error {
	var w deviceJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Device{
		PresetURI:  w.PresetURI,
		Kind:       w.Kind,
		Name:       w.Name,
		Parameters: w.Parameters,
	}
	if w.LockID != nil {
		d.LockID = *w.LockID
	}
	if w.LockSeal != nil {
		d.LockSeal = *w.LockSeal
	}
	if w.Chains != nil {
		d.Chains = *w.Chains
	}
	if w.ReturnChains != nil {
		d.ReturnChains = *w.ReturnChains
	}
	if w.DeviceData != nil {
		d.DeviceData = *w.DeviceData
	}
	return nil
}

func macros() Parameters {
	p := Parameters{"Enabled": true}
	for i := 0; i < MacroCount; i++ {
		p[fmt.Sprintf("Macro%d", i)] = 0.0
	}
	return p
}

func defaultMixer(sends ...Send) Mixer {
	if sends == nil {
		sends = []Send{}
	}
	return Mixer{
		Pan:       0,
		SoloCue:   false,
		SpeakerOn: true,
		Volume:    0,
		Sends:     sends,
	}
}

// Base returns the fixed skeleton: an instrument rack whose only chain
// holds an empty drum rack (with a reverb return chain) and a saturator.
func Base(name string) *Preset {
	reverb := Chain{
		Name:  "",
		Color: 0,
		Devices: []Device{{
			Kind:       KindReverb,
			Parameters: Parameters{},
			DeviceData: DeviceData{},
		}},
		Mixer: defaultMixer(Send{IsEnabled: false, Amount: SendAmount}),
	}
	drumRack := Device{
		Kind:         KindDrumRack,
		Name:         "",
		LockID:       LockID,
		LockSeal:     DrumRackLockSeal,
		Parameters:   macros(),
		Chains:       []Chain{},
		ReturnChains: []Chain{reverb},
	}
	saturator := Device{
		Kind:       KindSaturator,
		Name:       "Saturator",
		Parameters: Parameters{},
		DeviceData: DeviceData{},
	}
	return &Preset{
		Schema:     SchemaURL,
		Kind:       KindInstrumentRack,
		Name:       name,
		LockID:     LockID,
		LockSeal:   InstrumentLockSeal,
		Parameters: macros(),
		Chains: []Chain{{
			Name:    "",
			Color:   0,
			Devices: []Device{drumRack, saturator},
			Mixer:   defaultMixer(),
		}},
	}
}

// DefaultParameters returns the drum cell parameters every pad starts with.
func DefaultParameters() Parameters {
	return Parameters{ParamEnvelopeHold: 60.0}
}

// DrumRack returns the drum rack inside the root chain.
func (p *Preset) DrumRack() (*Device, error) {
	for c := range p.Chains {
		for d := range p.Chains[c].Devices {
			if p.Chains[c].Devices[d].Kind == KindDrumRack {
				return &p.Chains[c].Devices[d], nil
			}
		}
	}
	return nil, ErrNoDrumRack
}

// AppendVoicingChain adds pad padIndex to the drum rack: one drum cell
// named label, playing samplePath (relative to the bundle root) and
// triggered by MIDI note 36+padIndex. params override the defaults. An
// empty samplePath leaves the pad silent.
func (p *Preset) AppendVoicingChain(padIndex int, label string, params Parameters, samplePath string) error {
	rack, err := p.DrumRack()
	if err != nil {
		return err
	}
	if padIndex < 0 || BaseNote+padIndex > 127 {
		return fmt.Errorf("pad %d: no MIDI note available", padIndex)
	}

	merged := DefaultParameters()
	maps.Copy(merged, params)

	var uri any
	if samplePath != "" {
		uri = SampleURI(samplePath)
	}

	rack.Chains = append(rack.Chains, Chain{
		Name:  label,
		Color: 0,
		Devices: []Device{{
			Kind:       KindDrumCell,
			Name:       label,
			Parameters: merged,
			DeviceData: DeviceData{"sampleUri": uri},
		}},
		Mixer: defaultMixer(Send{IsEnabled: true, Amount: SendAmount}),
		DrumZoneSettings: &DrumZoneSettings{
			ReceivingNote: BaseNote + padIndex,
			SendingNote:   SendingNote,
			ChokeGroup:    ChokeGroup,
		},
	})
	return nil
}

// SampleRefs returns the unescaped sample paths referenced by drum cells,
// in pad order. Silent pads are skipped.
func (p *Preset) SampleRefs() ([]string, error) {
	rack, err := p.DrumRack()
	if err != nil {
		return nil, err
	}
	var refs []string
	for i, ch := range rack.Chains {
		ref, err := chainSampleRef(ch)
		if err != nil {
			return nil, fmt.Errorf("pad %d: %w", i, err)
		}
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// PadSampleRef returns the unescaped sample path of one pad, or "" for a
// silent pad.
func (p *Preset) PadSampleRef(padIndex int) (string, error) {
	rack, err := p.DrumRack()
	if err != nil {
		return "", err
	}
	if padIndex < 0 || padIndex >= len(rack.Chains) {
		return "", fmt.Errorf("pad %d: preset has %d pads", padIndex, len(rack.Chains))
	}
	return chainSampleRef(rack.Chains[padIndex])
}

func chainSampleRef(ch Chain) (string, error) {
	for _, d := range ch.Devices {
		if d.Kind != KindDrumCell {
			continue
		}
		raw, ok := d.DeviceData["sampleUri"].(string)
		if !ok || raw == "" {
			continue
		}
		path, err := url.PathUnescape(raw)
		if err != nil {
			return "", fmt.Errorf("sample uri %q: %w", raw, err)
		}
		return path, nil
	}
	return "", nil
}

// Validate checks the document shape: an instrument rack root holding
// exactly one drum rack whose chains are numbered from note 36 in order.
func (p *Preset) Validate() error {
	if p.Kind != KindInstrumentRack {
		return fmt.Errorf("root kind %q, want %s", p.Kind, KindInstrumentRack)
	}
	racks := 0
	for _, ch := range p.Chains {
		for _, d := range ch.Devices {
			if d.Kind == KindDrumRack {
				racks++
			}
		}
	}
	if racks != 1 {
		return fmt.Errorf("found %d drum racks, want 1", racks)
	}
	rack, _ := p.DrumRack()
	for i, ch := range rack.Chains {
		if ch.DrumZoneSettings == nil {
			return fmt.Errorf("pad %d has no drum zone settings", i)
		}
		if ch.DrumZoneSettings.ReceivingNote != BaseNote+i {
			return fmt.Errorf("pad %d receives note %d, want %d", i, ch.DrumZoneSettings.ReceivingNote, BaseNote+i)
		}
	}
	return nil
}

// Marshal serializes the preset as indented JSON.
func (p *Preset) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("marshal preset: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse reads a preset document and checks its shape.
func Parse(data []byte) (*Preset, error) {
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	return &p, nil
}

// SampleURI escapes each segment of a relative sample path the way
// JavaScript's encodeURIComponent does, keeping the separators.
func SampleURI(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = escapeComponent(s)
	}
	return strings.Join(segments, "/")
}

// SamplePath joins a file name onto the bundle's sample directory.
func SamplePath(fileName string) string {
	return SamplesDir + "/" + fileName
}

func escapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
