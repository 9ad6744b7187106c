package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	scenarioocr "github.com/menta2k/scenario-ocr"
	"github.com/menta2k/scenario-ocr/internal/config"
	"github.com/menta2k/scenario-ocr/internal/utils"
)

var errUsage = errors.New("usage")

func main() {
	err := mainImpl(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func mainImpl(args []string, stdout, stderr io.Writer) error {
	var configPath, user, token, apiBase, backend, model string
	var maxDim int
	var pretty, quiet, version bool

	fs := flag.NewFlagSet("scenario-ocr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "config file (yaml or json, default "+config.GetConfigPath()+" if present)")
	fs.StringVar(&user, "user", "", "user id sent with the run (default from config: ocr-test)")
	fs.StringVar(&token, "token", "", "bearer token (default from config or SCENARIO_TOKEN)")
	fs.StringVar(&apiBase, "api", "", "API base URL (default from config: https://qa.agent.authme.ai)")
	fs.StringVar(&backend, "backend", "", "backend: scenario or ollama")
	fs.StringVar(&model, "model", "", "model name for the ollama backend")
	fs.IntVar(&maxDim, "maxdim", -1, "max long side of the image sent (px), 0=original")
	fs.BoolVar(&pretty, "pretty", false, "pretty print the response")
	fs.BoolVar(&quiet, "quiet", false, "do not log progress")
	fs.BoolVar(&version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] <image>\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	// flags may appear before or after the image path
	if err := fs.Parse(args); err != nil {
		return err
	}
	var image string
	if rest := fs.Args(); len(rest) > 0 {
		image = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			return err
		}
	}
	if version {
		fmt.Fprintln(stdout, scenarioocr.GetVersion())
		return nil
	}
	if image == "" || fs.NArg() > 0 {
		fs.Usage()
		return errUsage
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["user"] {
		cfg.API.User = user
	}
	if set["token"] {
		cfg.API.Token = token
	}
	if set["api"] {
		cfg.API.BaseURL = apiBase
	}
	if set["backend"] {
		cfg.API.Backend = backend
	}
	if set["model"] {
		cfg.Ollama.Model = model
	}
	if set["maxdim"] {
		cfg.Encoder.MaxDim = maxDim
	}

	logger := log.New(stderr, "", log.LstdFlags)
	if quiet {
		logger = nil
	}

	runner, err := scenarioocr.New(cfg)
	if err != nil {
		return err
	}
	runner.SetLogger(logger)

	if cfg.API.Backend == config.BackendScenario && strings.TrimSpace(cfg.API.Token) == "" && logger != nil {
		logger.Printf("warning: no token configured, the API will likely reject the request")
	}
	if !utils.IsImageFile(image) && logger != nil {
		logger.Printf("warning: %s does not have an image extension", image)
	}

	out, err := runner.ProcessFile(context.Background(), image)
	if err != nil {
		return err
	}

	if pretty {
		fmt.Fprintln(stdout, "\nResponse:")
		fmt.Fprintln(stdout, strings.Repeat("=", 50))
		fmt.Fprintln(stdout, out.Raw)
	} else {
		fmt.Fprintln(stdout, out.Compact)
	}
	return nil
}

// loadConfig reads path, or the default config file when path is empty and
// that file exists, or falls back to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}
	return config.LoadFromFile(path)
}
