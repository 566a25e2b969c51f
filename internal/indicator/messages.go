package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
	localeHindi   locale = "hi"
)

type messages struct {
	recording    string
	transcribing string
	analyzing    string
	speaking     string
	errorText    string
}

func messagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

// resolveLocale accepts POSIX locales (hi_IN.UTF-8) and bare language codes.
func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "hi" || strings.HasPrefix(raw, "hi_") || strings.HasPrefix(raw, "hi-") {
		return localeHindi
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeHindi:
		return messages{
			recording:    "सुन रहे हैं…",
			transcribing: "लिख रहे हैं…",
			analyzing:    "समझ रहे हैं…",
			speaking:     "जवाब दे रहे हैं…",
			errorText:    "कुछ गलत हो गया",
		}
	default:
		return messages{
			recording:    "Listening…",
			transcribing: "Transcribing…",
			analyzing:    "Understanding…",
			speaking:     "Speaking…",
			errorText:    "Something went wrong",
		}
	}
}
