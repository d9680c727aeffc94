package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/randtable/rtengine"
)

func runVersion(args []string, stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "rtengine spec %s\nGo: %s\n", rtengine.SpecVersion, runtime.Version())
	return ExitCodeSuccess
}
