package main

import (
	"os"

	"github.com/AlbertoFDR/simple-linux-debugger/cmd/sdb/cmds"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/version"
)

// Build is the git sha of this binaries build.
var Build string

func main() {
	if Build != "" {
		version.SdbVersion.Build = Build
	}

	if err := cmds.New(false).Execute(); err != nil {
		os.Exit(1)
	}
}
