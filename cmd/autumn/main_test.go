package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing"
)

func TestRunCommands(t *testing.T) {
	t.Cleanup(func() { tracing.SetTraceSelector(nil) })
	dir := t.TempDir()
	prog := filepath.Join(dir, "prog.atm")
	if err := os.WriteFile(prog, []byte("let sq = fn(x) { x * x };\nputs(sq(3));\nsq(4)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.atm")
	if err := os.WriteFile(broken, []byte("let = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		args   []string
		code   int
		output string
	}{
		{[]string{"version"}, 0, "autumn "},
		{[]string{"--help"}, 0, "Usage:"},
		{[]string{"eval", "1 + 2 * 3"}, 0, "7\n"},
		{[]string{"eval", "1 / 0"}, 1, ""},
		{[]string{"eval"}, 2, ""},
		{[]string{"tokens", "let x"}, 0, "Token(LET, \"let\", 1:1)\nToken(IDENT, \"x\", 1:5)\n"},
		{[]string{"run", prog, "--drain"}, 0, "9\n16\n"},
		{[]string{prog, "--drain"}, 0, "9\n16\n"},
		{[]string{"run", filepath.Join(dir, "missing.atm")}, 1, ""},
		{[]string{"ast", prog}, 0, "let sq = fn(x) (x * x);puts(sq(3))sq(4)\n"},
		{[]string{"ast", broken}, 1, ""},
		{[]string{"--trace", "Error", "eval", "[1, 2]"}, 0, "[1, 2]\n"},
		{[]string{"frobnicate"}, 2, ""},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		code := run(tt.args, &out)
		if code != tt.code {
			t.Errorf("%v: expected exit code %d, got %d", tt.args, tt.code, code)
		}
		if tt.output != "" && !strings.Contains(out.String(), tt.output) {
			t.Errorf("%v: expected output containing %q, got %q", tt.args, tt.output, out.String())
		}
	}
}

func TestHashPasswordCommand(t *testing.T) {
	t.Cleanup(func() { tracing.SetTraceSelector(nil) })
	var out bytes.Buffer
	if code := run([]string{"hash-password", "sesame"}, &out); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.HasPrefix(out.String(), "$2a$") {
		t.Errorf("unexpected hash %q", out.String())
	}
}
