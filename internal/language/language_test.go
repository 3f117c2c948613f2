package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"eng", "eng"},
		{"EN", "eng"},
		{"english", "eng"},
		{"fra", "fre"},
		{"fre", "fre"},
		{"de", "ger"},
		{"zho", "chi"},
		{"und", "und"},
		{"", "und"},
		{"  ", "und"},
		{"nl", "nld"},
		{"swe", "swe"},
		{"xyzzy", "und"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fre", "fra"},
		{"ger", "deu"},
		{"en", "eng"},
		{"unknown-thing", "und"},
	}
	for _, tt := range tests {
		if got := ToISO3(tt.input); got != tt.expected {
			t.Errorf("ToISO3(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"eng", "English"},
		{"fre", "French"},
		{"und", "Unknown"},
		{"", "Unknown"},
		{"nld", "Dutch"},
		{"zzz", "ZZZ"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestChoicesEndWithUnknown(t *testing.T) {
	choices := Choices()
	if len(choices) != 13 {
		t.Fatalf("expected 13 choices, got %d", len(choices))
	}
	if choices[0].Code != "eng" {
		t.Fatalf("expected English first, got %+v", choices[0])
	}
	last := choices[len(choices)-1]
	if last.Code != Undefined {
		t.Fatalf("expected und last, got %+v", last)
	}
	for _, c := range choices {
		if Normalize(c.Code) != c.Code {
			t.Fatalf("choice %q does not normalize to itself", c.Code)
		}
	}
}

func TestExtractFromTags(t *testing.T) {
	if got := ExtractFromTags(map[string]string{"LANGUAGE": " ENG "}); got != "eng" {
		t.Fatalf("unexpected tag language %q", got)
	}
	if got := ExtractFromTags(nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"fre": "🇫🇷 French",
		"en":  "🇬🇧 English",
		"und": "❓ Unknown",
		"zzz": "❓ Unknown",
		"nld": "Dutch",
	}
	for code, want := range tests {
		if got := Label(code); got != want {
			t.Errorf("Label(%q) = %q, want %q", code, got, want)
		}
	}
}
