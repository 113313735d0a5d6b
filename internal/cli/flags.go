// Package cli holds flag helpers shared by bundlekit commands.
package cli

import (
	"errors"
	"flag"

	"bundlekit/internal/logging"
)

const (
	defaultHelpDesc    = "Show help"
	defaultVersionDesc = "Print version and exit"
	verboseDesc        = "Log debug output"
	quietDesc          = "Log warnings and errors only"
)

var ErrVerboseQuiet = errors.New("--verbose and --quiet are mutually exclusive")

type HelpVersionFlags struct {
	Help    bool
	Version bool
}

func AddHelpVersionFlags(fs *flag.FlagSet, helpDesc, versionDesc string) *HelpVersionFlags {
	if fs == nil {
		return &HelpVersionFlags{}
	}
	if helpDesc == "" {
		helpDesc = defaultHelpDesc
	}
	if versionDesc == "" {
		versionDesc = defaultVersionDesc
	}
	flags := &HelpVersionFlags{}
	fs.BoolVar(&flags.Help, "help", false, helpDesc)
	fs.BoolVar(&flags.Help, "h", false, helpDesc)
	fs.BoolVar(&flags.Version, "version", false, versionDesc)
	fs.BoolVar(&flags.Version, "v", false, versionDesc)
	return flags
}

type VerbosityFlags struct {
	Verbose bool
	Quiet   bool
}

func AddVerbosityFlags(fs *flag.FlagSet) *VerbosityFlags {
	flags := &VerbosityFlags{}
	if fs == nil {
		return flags
	}
	fs.BoolVar(&flags.Verbose, "verbose", false, verboseDesc)
	fs.BoolVar(&flags.Quiet, "quiet", false, quietDesc)
	return flags
}

// Validate rejects combining both flags.
func (flags *VerbosityFlags) Validate() error {
	if flags != nil && flags.Verbose && flags.Quiet {
		return ErrVerboseQuiet
	}
	return nil
}

// Level maps the flags onto base, which is used when neither flag is set.
func (flags *VerbosityFlags) Level(base logging.Level) logging.Level {
	switch {
	case flags == nil:
		return base
	case flags.Verbose:
		return logging.LevelDebug
	case flags.Quiet:
		return logging.LevelWarning
	default:
		return base
	}
}

// Set reports whether either flag was given.
func (flags *VerbosityFlags) Set() bool {
	return flags != nil && (flags.Verbose || flags.Quiet)
}
