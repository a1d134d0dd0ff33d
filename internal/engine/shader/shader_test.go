package shader

import "testing"

func TestTerminate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"uMVP", "uMVP\x00"},
		{"uMVP\x00", "uMVP\x00"},
		{"", "\x00"},
	}
	for _, tt := range tests {
		if got := Terminate(tt.in); got != tt.want {
			t.Errorf("Terminate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInfoLog(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"nul terminated", []byte("0:3(1): error: syntax error\n\x00\x00"), "0:3(1): error: syntax error"},
		{"no terminator", []byte("  link failed "), "link failed"},
		{"empty", []byte{0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InfoLog(tt.in); got != tt.want {
				t.Errorf("InfoLog = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProgramUniformMissing(t *testing.T) {
	p := &Program{uniforms: map[string]int32{"uMVP": 2}}
	if got := p.Uniform("uMVP"); got != 2 {
		t.Errorf("expected cached location 2, got %d", got)
	}
	if got := p.Uniform("uFog"); got != -1 {
		t.Errorf("expected -1 for unknown uniform, got %d", got)
	}
}
