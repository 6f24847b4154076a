package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	fx "github.com/robotalks/sunrise.go/pkg/framework"
	"github.com/robotalks/sunrise.go/pkg/sunrise"
)

func init() {
	sunrise.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := sunrise.NewConfig()
	if err != nil {
		glog.Fatalf("config: %v", err)
	}
	sys, err := sunrise.NewSystem(conf)
	if err != nil {
		glog.Fatalf("setup: %v", err)
	}
	defer sys.Close()

	runner := fx.NewRunner().HandleSignals()
	results, err := sys.Run(runner.Context)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	glog.Infof("%d steps run, %d failed", len(results), failed)
	if err != nil {
		glog.Errorf("script: %v", err)
	}
}
