package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/go-homedir"

	"github.com/davnau/medialens/internal"
	"github.com/davnau/medialens/pkg/logger"
)

var log = logger.Get("Main")

func main() {
	defaultConfigPath, err := homedir.Expand("~/.config/medialens/config.yaml")
	if err != nil {
		log.Emit(logger.FATAL, "Failed to expand user home dir: %s\n", err.Error())
		return
	}

	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	verbosity := flag.Int("verbose", 0, "logging verbosity (0 is default, 2 is everything)")
	flag.Parse()

	logger.SetMinLoggingLevel(logger.INFO.Level() - *verbosity)

	config := internal.MediaLensConfig{}
	if _, statErr := os.Stat(*configPath); statErr == nil {
		if err := config.LoadFromFile(*configPath); err != nil {
			log.Emit(logger.FATAL, "%s\n", err.Error())
			return
		}
	} else if err := config.LoadFromEnv(); err != nil {
		log.Emit(logger.FATAL, "%s\n", err.Error())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "MediaLens closed due to error: %s\n", err.Error())
	}
}
