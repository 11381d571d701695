package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/mocap_retarget/internal/app"
	"github.com/relabs-tech/mocap_retarget/internal/config"
)

func main() {
	configPath := flag.String("config", "./mocap_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting mocap-retarget console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
