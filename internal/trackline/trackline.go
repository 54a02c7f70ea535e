// Package trackline parses the textual CD-TOC metadata entries CHD files
// embed in CHTR/CHT2/CHGD metadata blobs into typed track records.
package trackline

import (
	"strconv"
	"strings"
)

// Kind identifies the payload layout of a track.
type Kind int

const (
	Audio Kind = iota
	Mode1
	Mode2Form1
	Mode2Form2
	Mode2Raw
)

func (k Kind) String() string {
	switch k {
	case Audio:
		return "AUDIO"
	case Mode1:
		return "MODE1"
	case Mode2Form1:
		return "MODE2_FORM1"
	case Mode2Form2:
		return "MODE2_FORM2"
	case Mode2Raw:
		return "MODE2_RAW"
	default:
		return "UNKNOWN"
	}
}

// Track is one parsed CD-TOC entry.
type Track struct {
	Number  int // 1-based
	Kind    Kind
	Frames  int
	Pregap  int
	Postgap int
}

// Parse decodes one metadata blob's textual content into a Track record.
// It never fails: malformed numeric fields become 0, and it returns
// ok=false only when TRACK or TYPE is absent, per spec.
func Parse(blob []byte) (Track, bool) {
	s := strings.TrimRight(string(blob), "\x00")

	var (
		t          Track
		haveNumber bool
		haveType   bool
	)

	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	}) {
		key, value, found := strings.Cut(tok, ":")
		if !found {
			continue
		}
		switch key {
		case "TRACK":
			if n, err := strconv.Atoi(value); err == nil {
				t.Number = n
				haveNumber = true
			} else {
				haveNumber = true // TRACK present but malformed -> 0
			}
		case "FRAMES":
			t.Frames, _ = strconv.Atoi(value)
		case "PREGAP":
			t.Pregap, _ = strconv.Atoi(value)
		case "POSTGAP":
			t.Postgap, _ = strconv.Atoi(value)
		case "TYPE":
			t.Kind = decodeKind(value)
			haveType = true
		}
	}

	if !haveNumber || !haveType {
		return Track{}, false
	}
	return t, true
}

// decodeKind implements spec.md §4.A's TYPE decoding table: known literals
// first, then a MODE2*-prefix fallback for unrecognized sector sizes, then
// Audio for anything else.
func decodeKind(value string) Kind {
	switch value {
	case "MODE1":
		return Mode1
	case "MODE2/2048", "MODE2_FORM1":
		return Mode2Form1
	case "MODE2/2324", "MODE2_FORM2":
		return Mode2Form2
	case "MODE2/2352", "MODE2_RAW", "CDI/2352":
		return Mode2Raw
	case "AUDIO":
		return Audio
	}

	if strings.HasPrefix(value, "MODE2") {
		switch {
		case strings.Contains(value, "2048"):
			return Mode2Form1
		case strings.Contains(value, "2324"):
			return Mode2Form2
		}
	}
	return Audio
}
