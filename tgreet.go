package main

import (
	"os"

	"tgreet/modules/commands"
)

const (
	Version   = "0.1.0"
	BuildDate = "development"
)

func main() {
	os.Exit(commands.Execute(commands.BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
	}))
}
