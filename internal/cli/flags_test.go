package cli

import (
	"errors"
	"flag"
	"io"
	"testing"

	"bundlekit/internal/logging"
)

func TestHelpFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := AddHelpVersionFlags(fs, "", "")

	if err := fs.Parse([]string{"-h"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !flags.Help {
		t.Fatalf("expected help flag set")
	}
}

func TestVersionFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := AddHelpVersionFlags(fs, "", "")

	if err := fs.Parse([]string{"--version"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !flags.Version {
		t.Fatalf("expected version flag set")
	}
}

func TestVerbosityFlags(t *testing.T) {
	cases := []struct {
		args []string
		want logging.Level
	}{
		{args: nil, want: logging.LevelInfo},
		{args: []string{"--verbose"}, want: logging.LevelDebug},
		{args: []string{"--quiet"}, want: logging.LevelWarning},
	}
	for _, tc := range cases {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		flags := AddVerbosityFlags(fs)
		if err := fs.Parse(tc.args); err != nil {
			t.Fatalf("parse %v: %v", tc.args, err)
		}
		if got := flags.Level(logging.LevelInfo); got != tc.want {
			t.Fatalf("%v: expected %q, got %q", tc.args, tc.want, got)
		}
		if flags.Set() != (len(tc.args) > 0) {
			t.Fatalf("%v: unexpected Set() result", tc.args)
		}
	}
}

func TestVerbosityFlagsConflict(t *testing.T) {
	flags := &VerbosityFlags{Verbose: true, Quiet: true}
	if !errors.Is(flags.Validate(), ErrVerboseQuiet) {
		t.Fatalf("expected ErrVerboseQuiet")
	}
}
