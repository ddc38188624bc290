package main

import (
	"os"

	"github.com/schoolvax/vax-app/log"
	"github.com/schoolvax/vax-app/vaxworker/cli"
)

func main() {
	app := cli.GetApp()
	if err := app.Run(os.Args); err != nil {
		log.Worker.Fatal(err)
	}
}
