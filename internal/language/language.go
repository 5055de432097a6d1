package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks the model to detect the spoken language.
const Auto = "auto"

// names maps English and native language names to ISO 639-1 codes for the
// languages call recordings usually come in.
var names = map[string]string{
	"portuguese": "pt",
	"português":  "pt",
	"portugues":  "pt",
	"english":    "en",
	"inglês":     "en",
	"spanish":    "es",
	"español":    "es",
	"espanhol":   "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
}

// Code returns the ISO 639-1 code for value. It accepts two and three letter
// codes ("pt", "por"), BCP 47 tags ("pt-BR") and the names above. Empty input
// and "auto" return Auto.
func Code(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == Auto {
		return Auto, nil
	}
	if code, ok := names[value]; ok {
		return code, nil
	}
	tag, err := xlanguage.Parse(value)
	if err != nil {
		return "", fmt.Errorf("unknown language %q", value)
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No || base.String() == "und" {
		return "", fmt.Errorf("unknown language %q", value)
	}
	return base.String(), nil
}

// DisplayName returns the English name for code, or the code itself when it
// cannot be parsed.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || code == Auto {
		return "auto-detect"
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
