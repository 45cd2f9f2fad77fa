// Package bundle packs a preset document and its samples into one archive.
package bundle

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Danondso/padforge/internal/preset"
)

// Default file extensions of the device host.
const (
	DefaultPresetExtension = "ablpreset"
	DefaultBundleExtension = "ablpresetbundle"
)

var (
	// ErrDuplicateSampleName is returned when two samples share a file name.
	ErrDuplicateSampleName = errors.New("duplicate sample name")
	// ErrMissingSample is returned when the preset references a sample that
	// is not being packed.
	ErrMissingSample = errors.New("preset references missing sample")
	// ErrUnreferencedSample is returned for a sample no pad plays.
	ErrUnreferencedSample = errors.New("sample not referenced by preset")
)

// ArchiveWriter accumulates entries and produces the archive bytes.
type ArchiveWriter interface {
	AddEntry(path string, data []byte) error
	Finish() ([]byte, error)
}

// Sample is an encoded sample file destined for the Samples directory.
type Sample struct {
	Name string
	Data []byte
}

// Options controls Pack.
type Options struct {
	PresetExtension string // default "ablpreset"
}

// ZipWriter is an ArchiveWriter producing a Deflate-compressed zip.
// Entries carry a fixed timestamp so identical input gives identical bytes.
// AddEntry may be called from multiple goroutines.
type ZipWriter struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	zw       *zip.Writer
	finished bool
}

// modTime is stamped on every entry.
var modTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// NewZipWriter creates an empty in-memory zip archive.
func NewZipWriter() *ZipWriter {
	w := &ZipWriter{}
	w.zw = zip.NewWriter(&w.buf)
	w.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return w
}

func (w *ZipWriter) AddEntry(name string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finished {
		return fmt.Errorf("add %s: archive already finished", name)
	}
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modTime,
	}
	f, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

func (w *ZipWriter) Finish() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.finished {
		if err := w.zw.Close(); err != nil {
			return nil, fmt.Errorf("close zip: %w", err)
		}
		w.finished = true
	}
	return w.buf.Bytes(), nil
}

// FileName returns the bundle file name for a preset.
func FileName(presetName string) string {
	return presetName + "." + DefaultBundleExtension
}

// PresetEntry returns the archive path of the preset document.
func PresetEntry(ext string) string {
	if ext == "" {
		ext = DefaultPresetExtension
	}
	return "Preset." + ext
}

// Pack checks that the preset and samples reference each other exactly,
// then writes the preset document followed by every sample, in order, to
// w. On error nothing is finished and no bytes are returned.
func Pack(w ArchiveWriter, p *preset.Preset, samples []Sample, opts Options) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("pack preset: %w", err)
	}

	names := make(map[string]bool, len(samples))
	for _, s := range samples {
		if s.Name == "" || strings.Contains(s.Name, "/") {
			return nil, fmt.Errorf("pack sample %q: invalid file name", s.Name)
		}
		if names[s.Name] {
			return nil, fmt.Errorf("pack sample %q: %w", s.Name, ErrDuplicateSampleName)
		}
		names[s.Name] = true
	}

	refs, err := p.SampleRefs()
	if err != nil {
		return nil, fmt.Errorf("pack preset: %w", err)
	}
	referenced := make(map[string]bool, len(refs))
	for _, ref := range refs {
		dir, file := path.Split(ref)
		if dir != preset.SamplesDir+"/" || !names[file] {
			return nil, fmt.Errorf("pack preset: %q: %w", ref, ErrMissingSample)
		}
		referenced[file] = true
	}
	for _, s := range samples {
		if !referenced[s.Name] {
			return nil, fmt.Errorf("pack sample %q: %w", s.Name, ErrUnreferencedSample)
		}
	}

	doc, err := p.Marshal()
	if err != nil {
		return nil, err
	}
	if err := w.AddEntry(PresetEntry(opts.PresetExtension), doc); err != nil {
		return nil, err
	}
	for _, s := range samples {
		if err := w.AddEntry(preset.SamplePath(s.Name), s.Data); err != nil {
			return nil, err
		}
	}
	return w.Finish()
}

// Bundle is an archive read back into memory.
type Bundle struct {
	Preset  *preset.Preset
	Entries []string          // archive order
	Samples map[string][]byte // keyed by file name inside Samples/
}

// Sample returns the data of the sample played by pad padIndex. A silent
// pad returns an empty name and no error.
func (b *Bundle) Sample(padIndex int) (string, []byte, error) {
	ref, err := b.Preset.PadSampleRef(padIndex)
	if err != nil {
		return "", nil, err
	}
	if ref == "" {
		return "", nil, nil
	}
	name := path.Base(ref)
	data, ok := b.Samples[name]
	if !ok {
		return "", nil, fmt.Errorf("pad %d: %q: %w", padIndex, ref, ErrMissingSample)
	}
	return name, data, nil
}

// Open reads a bundle produced by Pack.
func Open(data []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}

	b := &Bundle{Samples: make(map[string][]byte)}
	for _, f := range zr.File {
		b.Entries = append(b.Entries, f.Name)
		content, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		switch {
		case strings.HasPrefix(f.Name, "Preset."):
			p, err := preset.Parse(content)
			if err != nil {
				return nil, fmt.Errorf("open bundle: %w", err)
			}
			b.Preset = p
		case strings.HasPrefix(f.Name, preset.SamplesDir+"/"):
			b.Samples[path.Base(f.Name)] = content
		}
	}
	if b.Preset == nil {
		return nil, fmt.Errorf("open bundle: no preset document")
	}
	return b, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return content, nil
}
