package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/menta2k/scenario-ocr/internal/config"
	"github.com/menta2k/scenario-ocr/internal/utils"
	"github.com/menta2k/scenario-ocr/internal/web"
)

func main() {
	var configPath, host string
	var debug bool

	flag.StringVar(&configPath, "config", "", "config file (yaml or json)")
	flag.StringVar(&host, "host", "0.0.0.0", "listen address")
	flag.BoolVar(&debug, "debug", false, "gin debug mode")
	flag.Parse()

	cfg := config.Default()
	if configPath == "" && utils.FileExists(config.GetConfigPath()) {
		configPath = config.GetConfigPath()
	}
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	// optional positional port, as in "scenario-web 7865"
	if flag.NArg() > 0 {
		port, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			log.Fatalf("invalid port %q", flag.Arg(0))
		}
		cfg.Web.Port = port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Printf("scenario OCR demo, backend=%s", cfg.API.Backend)
	log.Printf("open http://localhost:%d", cfg.Web.Port)
	log.Fatal(web.New(cfg).Run(fmt.Sprintf("%s:%d", host, cfg.Web.Port)))
}
