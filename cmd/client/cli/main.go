package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/photobatch/internal/client/cli"
	"github.com/dmitrijs2005/photobatch/internal/client/config"
	"github.com/dmitrijs2005/photobatch/internal/flagx"
)

func main() {

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	// Everything after the known flags is a file to upload.
	paths := flagx.PositionalArgs(os.Args[1:])

	if err := app.Run(context.Background(), paths); err != nil {
		log.Fatalf("%v", err)
	}
}
