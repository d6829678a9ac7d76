package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/korures/asset"
	"github.com/devblok/korures/core"
	"github.com/devblok/korures/device"
	"github.com/devblok/korures/store"
)

var (
	envFile  = flag.String("env", "", "Load configuration from this .env file")
	printEnv = flag.Bool("print-env", false, "Print the effective configuration as a .env file and exit")
	material = flag.String("material", "materials/default", "Material of the mesh renderer to show")
	mesh     = flag.String("mesh", "meshes/cube.dae", "Mesh of the mesh renderer to show")
	renderer = flag.String("renderer", "", "Declared mesh renderer to show, overrides -material and -mesh")
	frames   = flag.Int("frames", 0, "Number of frames to run, 0 runs until interrupted")
)

// builtin holds assets compiled with `kar -c assets -d builtin`
var builtin = packr.NewBox("./builtin")

func main() {
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	configuration, err := core.LoadConfiguration(files...)
	if err != nil {
		log.Fatal(err)
	}

	if *printEnv {
		env, err := godotenv.Marshal(configuration.Env())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(env)
		return
	}

	logger := log.StandardLogger()
	if err := core.ConfigureLogging(configuration.Log, logger); err != nil {
		log.Fatal(err)
	}

	box := builtin
	if configuration.Assets.BuiltinDir != core.DefaultConfiguration.Assets.BuiltinDir {
		box = packr.NewBox(configuration.Assets.BuiltinDir)
	}

	engine, err := core.NewEngine(configuration, device.NewRecorder(logger), logger, store.NewBox(box))
	if err != nil {
		log.Fatal(err)
	}

	if *renderer != "" {
		_, err = engine.AddDeclaredMeshRenderer(asset.HashPath(*renderer))
	} else {
		_, err = engine.AddMeshRenderer(asset.HashPath(*material), asset.HashPath(*mesh))
	}
	if err != nil {
		log.WithError(err).Error("mesh renderer not created")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := engine.Run(ctx, *frames); err != nil {
		log.WithError(err).Error("event loop failed")
	}
	log.WithField("frames", engine.Frames()).Info("Event loop exited")

	if err := engine.Shutdown(); err != nil {
		log.Fatal(err)
	}
}
