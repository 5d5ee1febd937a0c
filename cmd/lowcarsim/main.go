package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/lowcar/pkg/cli/sh"
	fx "github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/sim/env"
)

var withShell bool

func init() {
	env.SetupFlags()
	sh.SetupFlags()
	flag.BoolVar(&withShell, "shell", withShell, "Run the interactive console.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e, err := env.NewConfig().NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	defer e.Close()

	runner := fx.NewRunner().HandleSignals()
	if !withShell {
		runner.Go(fx.NamedRun("loop", e.Loop))
		if err := runner.Wait(); err != nil {
			log.Fatalln(err)
		}
		return
	}

	ctx, cancel := context.WithCancel(runner.Context)
	runner.Context = ctx
	runner.Go(fx.NamedRun("loop", e.Loop))
	shErr := sh.New(e.Controller, e.Loop).Run(flag.Args()...)
	cancel()
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
	if shErr != nil {
		log.Fatalln(shErr)
	}
}
