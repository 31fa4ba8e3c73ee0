package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleInput = "DX de OH6BG-#:    3516.0  OH8X         CW 25 dB 24 WPM CQ           1146Z\r\n" +
	"DX de K1ABC:     14074.0  W2XYZ        FT8                            1147Z\a\n" +
	"WWV de VE7CC <18Z> :   SFI=70, A=5, K=1\n"

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		parseFlags.onlyRelevant = false
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("dxrelay %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spots.txt")
	if err := os.WriteFile(path, []byte(sampleInput), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFilterCommand(t *testing.T) {
	t.Setenv("DXRELAY_LOG_LEVEL", "error")
	out := runCommand(t, "filter", writeInput(t))

	want := "DX de OH6BG-#:    3516.0  OH8X         CW 25 dB 24 WPM CQ           1146Z\n"
	if out != want {
		t.Errorf("filter output = %q, want %q", out, want)
	}
}

func TestParseCommand(t *testing.T) {
	t.Setenv("DXRELAY_LOG_LEVEL", "error")
	out := runCommand(t, "parse", writeInput(t))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d results, want 3:\n%s", len(lines), out)
	}

	var first parseResult
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first.Entry == nil || first.Entry.DX != "OH8X" || first.Entry.Timestamp != "1146" {
		t.Errorf("first = %+v", first.Entry)
	}

	var last parseResult
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatal(err)
	}
	if last.Entry != nil || last.Error == "" {
		t.Errorf("last = %+v, want a rejection", last)
	}
}

func TestParseCommandRelevantOnly(t *testing.T) {
	t.Setenv("DXRELAY_LOG_LEVEL", "error")
	out := runCommand(t, "parse", "--relevant", writeInput(t))
	if n := strings.Count(out, "\n"); n != 1 {
		t.Errorf("got %d results, want 1:\n%s", n, out)
	}
}
