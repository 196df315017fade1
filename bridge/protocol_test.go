package bridge

import "testing"

func TestFindFrame(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"no frame", "hello world", -1},
		{"frame", "prefix\x00HOSTASYNC:{}\x00suffix", 6},
		{"frame first", "\x00HOSTASYNC:{}\x00", 0},
		{"other nul", "a\x00b", -1},
		{"empty", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findFrame(tt.content); got != tt.want {
				t.Errorf("findFrame = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractFrame(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		idx           int
		wantPayload   string
		wantRemaining string
		wantOK        bool
	}{
		{
			name:          "complete",
			content:       "prefix\x00HOSTASYNC:{\"fn\":\"helloAsync\"}\x00suffix",
			idx:           6,
			wantPayload:   `{"fn":"helloAsync"}`,
			wantRemaining: "suffix",
			wantOK:        true,
		},
		{
			name:          "incomplete",
			content:       "prefix\x00HOSTASYNC:{partial",
			idx:           6,
			wantRemaining: "\x00HOSTASYNC:{partial",
		},
		{
			name:          "two frames",
			content:       "\x00HOSTASYNC:1\x00\x00HOSTASYNC:2\x00",
			idx:           0,
			wantPayload:   "1",
			wantRemaining: "\x00HOSTASYNC:2\x00",
			wantOK:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, remaining, ok := extractFrame(tt.content, tt.idx)
			if payload != tt.wantPayload {
				t.Errorf("payload = %q, want %q", payload, tt.wantPayload)
			}
			if remaining != tt.wantRemaining {
				t.Errorf("remaining = %q, want %q", remaining, tt.wantRemaining)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestPartialPrefixLen(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"hello", 0},
		{"hello\x00", 1},
		{"hello\x00HOST", 5},
		{"\x00HOSTASYNC", 10},
		{"HOST", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := partialPrefixLen(tt.content); got != tt.want {
			t.Errorf("partialPrefixLen(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}
