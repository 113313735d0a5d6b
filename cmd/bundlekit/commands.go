package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type command interface {
	Run(args []string) int
}

type runFunc func(args []string, stdout, stderr io.Writer) int

type commandDeps struct {
	Stdout            io.Writer
	Stderr            io.Writer
	RunServe          runFunc
	RunBuild          runFunc
	RunConfigValidate runFunc
	RunConfigSchema   runFunc
	RunInit           runFunc
	RunRoute          runFunc
	RunLoaders        runFunc
}

func defaultCommandDeps() commandDeps {
	return commandDeps{
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
		RunServe:          runServe,
		RunBuild:          runBuild,
		RunConfigValidate: runConfigValidate,
		RunConfigSchema:   runConfigSchema,
		RunInit:           runInit,
		RunRoute:          runRoute,
		RunLoaders:        runLoaders,
	}
}

// funcCommand adapts a runFunc to the command interface.
type funcCommand struct {
	run    runFunc
	stdout io.Writer
	stderr io.Writer
}

func (c funcCommand) Run(args []string) int {
	return c.run(args, c.stdout, c.stderr)
}

type unknownCommand struct {
	name   string
	stderr io.Writer
}

func (c unknownCommand) Run(args []string) int {
	fmt.Fprintf(c.stderr, "unknown command %q\n", c.name)
	fmt.Fprintln(c.stderr, "Run 'bundlekit --help' for usage.")
	return exitUsage
}

// resolveCommand picks the subcommand. Arguments that start with a dash, or
// no arguments at all, run the dev server.
func resolveCommand(args []string, deps commandDeps) (command, []string) {
	wrap := func(run runFunc) command {
		return funcCommand{run: run, stdout: deps.Stdout, stderr: deps.Stderr}
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return wrap(deps.RunServe), args
	}
	switch args[0] {
	case "serve":
		return wrap(deps.RunServe), args[1:]
	case "build":
		return wrap(deps.RunBuild), args[1:]
	case "init":
		return wrap(deps.RunInit), args[1:]
	case "route":
		return wrap(deps.RunRoute), args[1:]
	case "loaders":
		return wrap(deps.RunLoaders), args[1:]
	case "config":
		if len(args) > 1 {
			switch args[1] {
			case "validate":
				return wrap(deps.RunConfigValidate), args[2:]
			case "schema":
				return wrap(deps.RunConfigSchema), args[2:]
			}
			return unknownCommand{name: "config " + args[1], stderr: deps.Stderr}, nil
		}
		return unknownCommand{name: "config", stderr: deps.Stderr}, nil
	}
	return unknownCommand{name: args[0], stderr: deps.Stderr}, nil
}
