package compliance

import "testing"

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"email", "lookup failed for jane.doe@example.com", "lookup failed for [EMAIL]"},
		{"e164 phone", "sms to +15551234567 bounced", "sms to [PHONE] bounced"},
		{"formatted phone", "call (555) 123-4567 now", "call ([PHONE] now"},
		{"no pii", "store: get document: timeout", "store: get document: timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScrubPII(tt.in); got != tt.want {
				t.Fatalf("ScrubPII(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMaskEmail(t *testing.T) {
	if got := MaskEmail("jane@example.com"); got != "j***@example.com" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := MaskEmail("not-an-email"); got != "[EMAIL]" {
		t.Fatalf("unexpected mask %q", got)
	}
}

func TestFingerprintNormalizes(t *testing.T) {
	a := Fingerprint("Jane@Example.com ")
	b := Fingerprint("jane@example.com")
	if a != b {
		t.Fatalf("expected equal fingerprints")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %d chars", len(a))
	}
}
