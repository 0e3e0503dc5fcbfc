package media

import "testing"

func TestClampSize(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{name: "supported bucket passes through", requested: "w1024h768", want: "w1024h768"},
		{name: "largest bucket passes through", requested: "w2048h1536", want: "w2048h1536"},
		{name: "small request clamps to default", requested: "w100h100", want: DefaultSizeBucket},
		{name: "oversized request clamps to maximum", requested: "w3000h2000", want: "w2048h1536"},
		{name: "between buckets rounds up", requested: "w700h500", want: "w960h640"},
		{name: "tall request needs covering height", requested: "w640h700", want: "w1024h768"},
		{name: "empty input falls back to default", requested: "", want: DefaultSizeBucket},
		{name: "garbage falls back to default", requested: "huge", want: DefaultSizeBucket},
		{name: "negative-looking input falls back", requested: "w-10h20", want: DefaultSizeBucket},
		{name: "zero dimensions fall back", requested: "w0h0", want: DefaultSizeBucket},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampSize(tc.requested); got != tc.want {
				t.Fatalf("ClampSize(%q) = %q, want %q", tc.requested, got, tc.want)
			}
		})
	}
}
