package texttospeech

import "strings"

type Voice struct {
	Name     string
	Locale   string
	Provider string
	// Default marks the voice the device uses when nothing better matches.
	Default bool
}

func (v Voice) IsZero() bool {
	return v.Name == ""
}

// SelectVoice picks the best voice for locale in order: a voice with the
// exact locale from the preferred provider, any voice with the exact locale,
// the device default. It returns false if none of these exist, in which case
// the device should use whatever it plays by default.
func SelectVoice(voices []Voice, locale, provider string) (Voice, bool) {
	locale = normalizeLocale(locale)

	if locale != "" && provider != "" {
		for _, voice := range voices {
			if normalizeLocale(voice.Locale) == locale && matchesProvider(voice, provider) {
				return voice, true
			}
		}
	}

	if locale != "" {
		for _, voice := range voices {
			if normalizeLocale(voice.Locale) == locale {
				return voice, true
			}
		}
	}

	for _, voice := range voices {
		if voice.Default {
			return voice, true
		}
	}

	return Voice{}, false
}

func matchesProvider(voice Voice, provider string) bool {
	provider = strings.ToLower(strings.TrimSpace(provider))
	return strings.EqualFold(voice.Provider, provider) ||
		strings.Contains(strings.ToLower(voice.Name), provider)
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
}
