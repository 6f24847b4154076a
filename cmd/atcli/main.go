package main

import (
	"github.com/robotalks/sunrise.go/pkg/cli/sh"
	"github.com/robotalks/sunrise.go/pkg/sunrise"

	_ "github.com/robotalks/sunrise.go/pkg/cli/cmds/at"
)

//go-build: CGO_ENABLED=0

func init() {
	sunrise.SetupFlags()
}

func main() {
	sh.Main()
}
