package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestChoice(t *testing.T) {
	options := []string{"emulator-5554\tdevice", "R58M123ABC\tunauthorized"}

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"first", "0\n", 0},
		{"second with spaces", "  1 \n", 1},
		{"empty cancels", "\n", -1},
		{"q cancels", "q\n", -1},
		{"cancel word", "Cancel\n", -1},
		{"eof cancels", "", -1},
		{"reprompt after garbage", "abc\n7\n1\n", 1},
		{"last line without newline", "1", 1},
		{"garbage then eof", "x", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := NewTerminal(strings.NewReader(tt.input), &out).Choice("pick one", options)
			if err != nil {
				t.Fatalf("Choice error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Choice(%q) = %d, want %d", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "[1] R58M123ABC") {
				t.Errorf("options not listed:\n%s", out.String())
			}
		})
	}
}

func TestAlert(t *testing.T) {
	var out bytes.Buffer
	if err := NewTerminal(strings.NewReader(""), &out).Alert("There is no device connected to this computer~"); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if !strings.Contains(out.String(), "There is no device connected to this computer~") {
		t.Errorf("Alert output = %q", out.String())
	}
}
