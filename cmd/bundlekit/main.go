package main

import "os"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], defaultCommandDeps()))
}

func run(args []string, deps commandDeps) int {
	cmd, cmdArgs := resolveCommand(args, deps)
	return cmd.Run(cmdArgs)
}
