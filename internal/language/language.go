package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Undefined is the ISO 639-2 code for an unknown or unset language.
const Undefined = "und"

type entry struct {
	code2   string // ISO 639-1 (2-letter)
	code3   string // ISO 639-2/T (3-letter)
	bib3    string // ISO 639-2/B where it differs (e.g. "fre" vs "fra")
	display string
	flag    string
	words   []string
}

// languages lists the codes offered on the selection keyboard, in keyboard order.
var languages = []entry{
	{"en", "eng", "", "English", "🇬🇧", []string{"english"}},
	{"es", "spa", "", "Spanish", "🇪🇸", []string{"spanish"}},
	{"fr", "fra", "fre", "French", "🇫🇷", []string{"french"}},
	{"de", "deu", "ger", "German", "🇩🇪", []string{"german"}},
	{"it", "ita", "", "Italian", "🇮🇹", []string{"italian"}},
	{"pt", "por", "", "Portuguese", "🇵🇹", []string{"portuguese"}},
	{"ru", "rus", "", "Russian", "🇷🇺", []string{"russian"}},
	{"ja", "jpn", "", "Japanese", "🇯🇵", []string{"japanese"}},
	{"ko", "kor", "", "Korean", "🇰🇷", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", "🇨🇳", []string{"chinese"}},
	{"hi", "hin", "", "Hindi", "🇮🇳", []string{"hindi"}},
	{"ar", "ara", "", "Arabic", "🇸🇦", []string{"arabic"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.bib3 != "" {
			byCode3[e.bib3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// tag is the code written into track metadata. Keyboard languages use their
// bibliographic form to match what players have historically displayed.
func (e *entry) tag() string {
	if e.bib3 != "" {
		return e.bib3
	}
	return e.code3
}

// Choice is one option on the language selection keyboard.
type Choice struct {
	Code  string
	Label string
}

// Choices returns the keyboard options in display order, ending with "und".
func Choices() []Choice {
	out := make([]Choice, 0, len(languages)+1)
	for i := range languages {
		e := &languages[i]
		out = append(out, Choice{Code: e.tag(), Label: e.flag + " " + e.display})
	}
	out = append(out, Choice{Code: Undefined, Label: "❓ Unknown"})
	return out
}

// Label returns the keyboard label for code, falling back to its display name.
func Label(code string) string {
	if Normalize(code) == Undefined {
		return "❓ Unknown"
	}
	if e := lookup(code); e != nil {
		return e.flag + " " + e.display
	}
	return DisplayName(code)
}

// Normalize converts any recognized language code or word to the 3-letter code
// written into subtitle metadata. Known keyboard languages map to their
// keyboard code; other valid ISO 639 codes map to their ISO 639-2 form;
// everything else becomes "und".
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == Undefined {
		return Undefined
	}
	if e := lookup(code); e != nil {
		return e.tag()
	}
	base, err := xlanguage.ParseBase(code)
	if err != nil {
		return Undefined
	}
	if iso3 := base.ISO3(); iso3 != "" && iso3 != Undefined {
		return iso3
	}
	return Undefined
}

// IsKnown reports whether code resolves to a real language.
func IsKnown(code string) bool {
	return Normalize(code) != Undefined
}

// ToISO3 converts any recognized language code to ISO 639-2/T.
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	return Normalize(code)
}

// DisplayName returns a human-readable language name for any recognized code.
func DisplayName(code string) string {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" || trimmed == Undefined {
		return "Unknown"
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if base, err := xlanguage.ParseBase(trimmed); err == nil {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

// ExtractFromTags extracts and normalizes the language from stream metadata tags.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	for _, key := range []string{"language", "LANGUAGE", "Language", "lang"} {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
