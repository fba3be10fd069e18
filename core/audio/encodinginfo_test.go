package audio

import "testing"

func TestDefaultEncodingInfoIsLinear16(t *testing.T) {
	info := GetDefaultEncodingInfo()

	if info.IsZero() {
		t.Fatalf("expected default encoding info to be set")
	}
	if info.Format != EncodingLinear16 {
		t.Fatalf("expected default format %q, got %q", EncodingLinear16, info.Format)
	}
	if got, want := info.BytesPerSecond(), DefaultSampleRate*2; got != want {
		t.Fatalf("expected %d bytes per second, got %d", want, got)
	}
}

func TestSilenceValueFollowsFormat(t *testing.T) {
	cases := map[encodingFormat]byte{
		EncodingLinear16: 0,
		EncodingALaw:     0x55,
		EncodingMulaw:    0xFF,
	}

	for format, want := range cases {
		info := EncodingInfo{SampleRate: 8000, Format: format}
		if got := info.SilenceValue(); got != want {
			t.Fatalf("expected silence value %#x for %s, got %#x", want, format, got)
		}
	}
}

func TestUnknownFormatHasNoRate(t *testing.T) {
	info := EncodingInfo{SampleRate: 16000, Format: encodingFormat("opus")}

	if got := info.BytesPerSecond(); got != 0 {
		t.Fatalf("expected unknown format to report zero rate, got %d", got)
	}
}
