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

	log.Println("starting mocap-retarget frame producer (frames → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
