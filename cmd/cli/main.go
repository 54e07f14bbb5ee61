package main

import (
	"flag"
	"log"
	"os"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/commander"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/config"
)

func main() {
	configFile := flag.String("config", "config/config.yaml", "Path to configuration file")
	modelsDir := flag.String("models", "models", "Directory for saved pipelines")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	for _, issue := range cfg.Validate() {
		log.Println(issue)
	}

	cmd := commander.NewCommander(cfg, os.Stdout)
	cmd.SetModelsDir(*modelsDir)
	cmd.Start(os.Stdin)
}
