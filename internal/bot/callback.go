package bot

import (
	"fmt"
	"strconv"
	"strings"

	"subembed/internal/language"
)

const callbackPrefix = "lang_"

// CallbackData encodes a language choice for subtitle index.
func CallbackData(index int, code string) string {
	return callbackPrefix + strconv.Itoa(index) + "_" + code
}

// ParseCallbackData decodes "lang_<index>_<code>".
func ParseCallbackData(data string) (int, string, error) {
	rest, ok := strings.CutPrefix(data, callbackPrefix)
	if !ok {
		return 0, "", fmt.Errorf("callback %q: missing %q prefix", data, callbackPrefix)
	}
	rawIndex, code, ok := strings.Cut(rest, "_")
	if !ok || code == "" {
		return 0, "", fmt.Errorf("callback %q: missing language code", data)
	}
	index, err := strconv.Atoi(rawIndex)
	if err != nil || index < 0 {
		return 0, "", fmt.Errorf("callback %q: invalid subtitle index", data)
	}
	return index, code, nil
}

// IsLanguageCallback reports whether data belongs to the language keyboard.
func IsLanguageCallback(data string) bool {
	return strings.HasPrefix(data, callbackPrefix)
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard [][]Button

const keyboardColumns = 3

// LanguageKeyboard builds the selection grid for subtitle index: three
// languages per row with "Unknown" alone on the last row.
func LanguageKeyboard(index int) Keyboard {
	choices := language.Choices()
	unknown := choices[len(choices)-1]
	choices = choices[:len(choices)-1]

	var kb Keyboard
	for start := 0; start < len(choices); start += keyboardColumns {
		end := min(start+keyboardColumns, len(choices))
		row := make([]Button, 0, end-start)
		for _, c := range choices[start:end] {
			row = append(row, Button{Text: c.Label, Data: CallbackData(index, c.Code)})
		}
		kb = append(kb, row)
	}
	return append(kb, []Button{{Text: unknown.Label, Data: CallbackData(index, unknown.Code)}})
}
