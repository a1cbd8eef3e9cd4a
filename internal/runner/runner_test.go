package runner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tklein/scriptpad/internal/script"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"docker": ModeDocker,
		"host":   ModeHost,
		"auto":   ModeAuto,
		"":       ModeAuto,
		"DOCKER": ModeDocker,
		"bogus":  ModeAuto,
	}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckLanguage(t *testing.T) {
	if err := checkLanguage(script.LangPython); err != nil {
		t.Errorf("python should run locally: %v", err)
	}
	if err := checkLanguage(script.LangFlux); err == nil {
		t.Error("flux should not run locally")
	}
}

func TestParseMemory(t *testing.T) {
	cases := map[string]int64{
		"1g":   1024 * 1024 * 1024,
		"512m": 512 * 1024 * 1024,
		"64k":  64 * 1024,
		"":     512 * 1024 * 1024,
		"junk": 512 * 1024 * 1024,
	}
	for in, want := range cases {
		if got := parseMemory(in); got != want {
			t.Errorf("parseMemory(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseCPU(t *testing.T) {
	if got := parseCPU("2"); got != 2 {
		t.Errorf("parseCPU(2) = %d", got)
	}
	if got := parseCPU(""); got != 1 {
		t.Errorf("parseCPU('') = %d, want 1", got)
	}
	if got := parseCPU("-3"); got != 1 {
		t.Errorf("parseCPU(-3) = %d, want 1", got)
	}
}

func TestDemuxLogs(t *testing.T) {
	frame := func(stream byte, payload string) []byte {
		header := []byte{stream, 0, 0, 0, 0, 0, 0, byte(len(payload))}
		return append(header, payload...)
	}

	var buf bytes.Buffer
	buf.Write(frame(1, "out line\n"))
	buf.Write(frame(2, "err line\n"))
	buf.Write(frame(1, "more out\n"))

	stdout, stderr := demuxLogs(&buf)
	if stdout != "out line\nmore out" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if !strings.Contains(stderr, "err line") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}
