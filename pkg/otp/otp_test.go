package otp

import (
	"testing"
)

func TestGenerateLength(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		wantLength int
	}{
		{"default six", 6, 6},
		{"minimum four", 4, 4},
		{"maximum ten", 10, 10},
		{"clamped low", 2, 4},
		{"clamped high", 15, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.length)
			code, err := g.Generate()
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if len(code) != tt.wantLength {
				t.Errorf("Generate() length = %d, want %d", len(code), tt.wantLength)
			}
			if !g.Validate(code) {
				t.Errorf("generated code %q failed validation", code)
			}
		})
	}
}

func TestGenerateIsNumeric(t *testing.T) {
	g := NewGenerator(6)
	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit %q", code, c)
			}
		}
	}
}

func TestGenerateVaries(t *testing.T) {
	g := NewGenerator(8)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		seen[code] = true
	}
	// 50 draws from 10^8 colliding down to a handful would be astonishing.
	if len(seen) < 45 {
		t.Errorf("expected near-unique codes, got %d distinct of 50", len(seen))
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if len(token) != 32 {
		t.Errorf("token length = %d, want 32", len(token))
	}
	for _, c := range token {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Errorf("token %q contains non-hex character %q", token, c)
		}
	}

	other, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == other {
		t.Error("two generated tokens are identical")
	}
}

func TestValidate(t *testing.T) {
	g := NewGenerator(6)

	tests := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := g.Validate(tt.code); got != tt.want {
			t.Errorf("Validate(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" 123456 ", "123456"},
		{"123 456", "123456"},
		{"123-456", "123456"},
		{" 1 2-3 4-5 6 ", "123456"},
		{"123456", "123456"},
	}

	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
