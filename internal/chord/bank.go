package chord

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Danondso/padforge/internal/config"
)

// CustomBank is the bank that config-defined chords are added to.
const CustomBank = "custom"

// DefaultBank is used when no bank is configured.
const DefaultBank = "extended"

// Extended voicings span about two octaves around the source pitch.
var extended = []Spec{
	{Name: "Cm9", Offsets: []int{-12, 0, 3, 7, 10, 15}},
	{Name: "Fm", Offsets: []int{-7, 5, 8, 17}},
	{Name: "AbMaj7", Offsets: []int{-4, 8, 15, 19}},
	{Name: "Bb11 sus", Offsets: []int{-2, 10, 15, 17, 20, 22}},
	{Name: "EbMaj9", Offsets: []int{-9, 3, 7, 10, 15, 19}},
	{Name: "Fm7", Offsets: []int{-7, 5, 8, 12, 15}},
	{Name: "G7#9", Offsets: []int{-5, 7, 11, 14, 17, 22}},
	{Name: "C7#5", Offsets: []int{-12, 0, 4, 8, 22}},
	{Name: "Fm9", Offsets: []int{-7, 5, 8, 12, 15, 19}},
	{Name: "DbMaj7", Offsets: []int{-11, 1, 5, 8, 13}},
	{Name: "Bbm7", Offsets: []int{-2, 10, 13, 17, 20}},
	{Name: "C7sus", Offsets: []int{-12, 0, 5, 7, 22}},
	{Name: "C", Offsets: []int{-12, 0, 4, 7, 12}},
	{Name: "Fm add9", Offsets: []int{-7, 5, 8, 12, 19}},
}

// Triads are close voicings within one octave above the source pitch.
var triads = []Spec{
	{Name: "C", Offsets: []int{0, 4, 7}},
	{Name: "F", Offsets: []int{5, 9, 0}},
	{Name: "G", Offsets: []int{7, 11, 2}},
	{Name: "Am", Offsets: []int{9, 0, 4}},
	{Name: "Dm", Offsets: []int{2, 5, 9}},
	{Name: "Em", Offsets: []int{4, 7, 11}},
	{Name: "C7", Offsets: []int{0, 4, 7, 10}},
	{Name: "F7", Offsets: []int{5, 9, 0, 3}},
	{Name: "G7", Offsets: []int{7, 11, 2, 5}},
	{Name: "Am7", Offsets: []int{9, 0, 4, 7}},
	{Name: "Dm7", Offsets: []int{2, 5, 9, 0}},
	{Name: "Em7", Offsets: []int{4, 7, 11, 2}},
	{Name: "Bdim", Offsets: []int{11, 2, 5}},
	{Name: "Caug", Offsets: []int{0, 4, 8}},
	{Name: "Csus4", Offsets: []int{0, 5, 7}},
	{Name: "Cadd9", Offsets: []int{0, 4, 7, 2}},
}

var banks map[string][]Spec

func init() {
	resetBanks()
}

func resetBanks() {
	banks = map[string][]Spec{
		"extended": extended,
		"triads":   triads,
	}
}

// ResetBanks restores the bank registry to its built-in contents.
// Intended for use in tests to prevent state leaking between test cases.
func ResetBanks() {
	resetBanks()
}

// RegisterCustomChords appends config-defined chords to the custom bank.
// Entries without a name or offsets are skipped; a chord whose name is
// already in the custom bank replaces it.
func RegisterCustomChords(custom []config.CustomChord, logger *log.Logger) {
	bank := append([]Spec(nil), banks[CustomBank]...)
	for _, cc := range custom {
		name := strings.TrimSpace(cc.Name)
		if name == "" || len(cc.Offsets) == 0 {
			if logger != nil {
				logger.Printf("skipping custom chord %q: name and offsets are required", cc.Name)
			}
			continue
		}
		spec := Spec{Name: name, Offsets: append([]int(nil), cc.Offsets...)}
		replaced := false
		for i := range bank {
			if bank[i].Name == name {
				bank[i] = spec
				replaced = true
				break
			}
		}
		if !replaced {
			bank = append(bank, spec)
		}
	}
	if len(bank) > 0 {
		banks[CustomBank] = bank
	}
}

// Bank returns a copy of the named bank's voicings in pad order.
func Bank(name string) ([]Spec, error) {
	if name == "" {
		name = DefaultBank
	}
	specs, ok := banks[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown chord bank: %s", name)
	}
	out := make([]Spec, len(specs))
	for i, s := range specs {
		out[i] = Spec{Name: s.Name, Offsets: append([]int(nil), s.Offsets...)}
	}
	return out, nil
}

// BankNames returns the registered bank names in sorted order.
func BankNames() []string {
	names := make([]string, 0, len(banks))
	for name := range banks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
