package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fabricahq/fabrica/internal"
	"github.com/fabricahq/fabrica/pkg/logger"
	homedir "github.com/mitchellh/go-homedir"
)

var log = logger.Get("Main")

// main is the entry point to the program. The user configuration is loaded
// from the path given by -config (or the default under the users home
// directory); when no file exists there the configuration comes purely
// from environment variables, which is how the container deployment runs.
func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML config file")
	flag.Parse()

	config := internal.FabricaConfig{}
	if _, err := os.Stat(*configPath); err == nil {
		if err := config.LoadFromFile(*configPath); err != nil {
			log.Emit(logger.FATAL, "%s\n", err.Error())
			os.Exit(1)
		}
	} else if err := config.LoadFromEnv(); err != nil {
		log.Emit(logger.FATAL, "%s\n", err.Error())
		os.Exit(1)
	}

	logger.SetMinLoggingLevel(logger.ParseLogStatus(config.LogLevel).Level())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fabrica, err := internal.New(ctx, config)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to initialise Fabrica - %s\n", err.Error())
		os.Exit(1)
	}

	if err := fabrica.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Fabrica stopped with error - %s\n", err.Error())
		os.Exit(1)
	}

	log.Emit(logger.STOP, "Fabrica shut down\n")
}

func defaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return "config.yaml"
	}

	return filepath.Join(home, ".config", "fabrica", "config.yaml")
}
