package texttospeech

import "testing"

var testVoices = []Voice{
	{Name: "Basic English", Locale: "en-US", Provider: "system", Default: true},
	{Name: "Neural English", Locale: "en-US", Provider: "neural"},
	{Name: "British English", Locale: "en-GB", Provider: "neural"},
	{Name: "Castilian", Locale: "es-ES", Provider: "system"},
}

func TestSelectVoicePrefersLocaleAndProvider(t *testing.T) {
	voice, ok := SelectVoice(testVoices, "en-US", "neural")
	if !ok || voice.Name != "Neural English" {
		t.Fatalf("expected preferred provider voice, got %+v (ok=%v)", voice, ok)
	}
}

func TestSelectVoiceFallsBackToExactLocale(t *testing.T) {
	voice, ok := SelectVoice(testVoices, "es_ES", "neural")
	if !ok || voice.Name != "Castilian" {
		t.Fatalf("expected exact locale voice, got %+v (ok=%v)", voice, ok)
	}
}

func TestSelectVoiceFallsBackToDefault(t *testing.T) {
	voice, ok := SelectVoice(testVoices, "fr-FR", "neural")
	if !ok || voice.Name != "Basic English" {
		t.Fatalf("expected device default voice, got %+v (ok=%v)", voice, ok)
	}
}

func TestSelectVoiceWithoutMatchIsNotAnError(t *testing.T) {
	voice, ok := SelectVoice([]Voice{{Name: "Only", Locale: "de-DE"}}, "fr-FR", "")
	if ok || !voice.IsZero() {
		t.Fatalf("expected no voice, got %+v", voice)
	}

	if _, ok := SelectVoice(nil, "en-US", "neural"); ok {
		t.Fatalf("expected no voice from an empty catalog")
	}
}

func TestSelectVoiceMatchesProviderByName(t *testing.T) {
	voices := []Voice{
		{Name: "Microsoft Aria", Locale: "en-US"},
		{Name: "Google US English", Locale: "en-US"},
	}

	voice, ok := SelectVoice(voices, "en-us", "Google")
	if !ok || voice.Name != "Google US English" {
		t.Fatalf("expected provider match on voice name, got %+v", voice)
	}
}

func TestNewSpeechOptionsFillsCallbacks(t *testing.T) {
	options := NewSpeechOptions()
	options.StartedCallback()
	options.EndedCallback()
	options.ErrorCallback(ErrCanceled)

	voice := Voice{Name: "aura"}
	if got := NewSpeechOptions(WithVoice(voice)).Voice; got != voice {
		t.Fatalf("expected voice option to be applied, got %+v", got)
	}
}
