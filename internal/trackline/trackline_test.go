package trackline

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Track
		wantOK  bool
	}{
		{
			name:   "CHTR format",
			data:   "TRACK:1 TYPE:MODE1 SUBTYPE:NONE FRAMES:337350",
			want:   Track{Number: 1, Kind: Mode1, Frames: 337350},
			wantOK: true,
		},
		{
			name:   "audio track",
			data:   "TRACK:2 TYPE:AUDIO SUBTYPE:RW FRAMES:15000",
			want:   Track{Number: 2, Kind: Audio, Frames: 15000},
			wantOK: true,
		},
		{
			name:   "CHT2 format with pregap and postgap",
			data:   "TRACK:1 TYPE:MODE2_RAW SUBTYPE:RW_RAW FRAMES:300000 PREGAP:150 PGTYPE:MODE2 PGSUB:NONE POSTGAP:75",
			want:   Track{Number: 1, Kind: Mode2Raw, Frames: 300000, Pregap: 150, Postgap: 75},
			wantOK: true,
		},
		{
			name:   "comma separated tokens",
			data:   "TRACK:3,TYPE:MODE1,FRAMES:100",
			want:   Track{Number: 3, Kind: Mode1, Frames: 100},
			wantOK: true,
		},
		{
			name:   "NUL terminated",
			data:   "TRACK:4 TYPE:AUDIO FRAMES:10\x00",
			want:   Track{Number: 4, Kind: Audio, Frames: 10},
			wantOK: true,
		},
		{
			name:   "mode2/2048 alias",
			data:   "TRACK:1 TYPE:MODE2/2048 FRAMES:1",
			want:   Track{Number: 1, Kind: Mode2Form1, Frames: 1},
			wantOK: true,
		},
		{
			name:   "mode2/2324 alias",
			data:   "TRACK:1 TYPE:MODE2/2324 FRAMES:1",
			want:   Track{Number: 1, Kind: Mode2Form2, Frames: 1},
			wantOK: true,
		},
		{
			name:   "unrecognized MODE2 variant containing 2048",
			data:   "TRACK:1 TYPE:MODE2_WEIRD_2048 FRAMES:1",
			want:   Track{Number: 1, Kind: Mode2Form1, Frames: 1},
			wantOK: true,
		},
		{
			name:   "unrecognized MODE2 variant containing 2324",
			data:   "TRACK:1 TYPE:MODE2_WEIRD_2324 FRAMES:1",
			want:   Track{Number: 1, Kind: Mode2Form2, Frames: 1},
			wantOK: true,
		},
		{
			name:   "unrecognized type falls back to audio",
			data:   "TRACK:1 TYPE:FOOBAR FRAMES:1",
			want:   Track{Number: 1, Kind: Audio, Frames: 1},
			wantOK: true,
		},
		{
			name:   "MODE2 occurring mid-string but not as a prefix falls back to audio",
			data:   "TRACK:1 TYPE:FOO_MODE2_2048 FRAMES:1",
			want:   Track{Number: 1, Kind: Audio, Frames: 1},
			wantOK: true,
		},
		{
			name:   "malformed numeric values become zero",
			data:   "TRACK:1 TYPE:MODE1 FRAMES:abc PREGAP:xyz",
			want:   Track{Number: 1, Kind: Mode1, Frames: 0, Pregap: 0},
			wantOK: true,
		},
		{
			name:   "unknown keys ignored",
			data:   "TRACK:1 TYPE:MODE1 BOGUS:123 FRAMES:5",
			want:   Track{Number: 1, Kind: Mode1, Frames: 5},
			wantOK: true,
		},
		{
			name:   "missing TRACK",
			data:   "TYPE:MODE1 FRAMES:5",
			wantOK: false,
		},
		{
			name:   "missing TYPE",
			data:   "TRACK:1 FRAMES:5",
			wantOK: false,
		},
		{
			name:   "empty data",
			data:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse([]byte(tt.data))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.data, got, tt.want)
			}
		})
	}
}
