package main

import (
	"github.com/magpi/listener/cmd"
	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		logging.Init(logging.ParseLevel("info"))
		logging.Fatal("configuration error", "error", err)
	}

	logging.Init(logging.ParseLevel(settings.LogLevel))

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		logging.Fatal("command failed", "error", err)
	}
}
