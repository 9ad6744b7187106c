package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/chzyer/readline"

	scenarioocr "github.com/menta2k/scenario-ocr"
	"github.com/menta2k/scenario-ocr/internal/config"
	"github.com/menta2k/scenario-ocr/internal/utils"
)

func main() {
	err := mainImpl()
	if err != nil {
		log.Fatal(err)
	}
}

func mainImpl() error {
	var configPath string
	var verbose bool
	flag.StringVar(&configPath, "config", "", "config file (yaml or json)")
	flag.BoolVar(&verbose, "v", false, "log progress")
	flag.Parse()

	cfg := config.Default()
	if configPath == "" && utils.FileExists(config.GetConfigPath()) {
		configPath = config.GetConfigPath()
	}
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	runner, err := scenarioocr.New(cfg)
	if err != nil {
		return err
	}
	if !verbose {
		runner.SetLogger(nil)
	}

	rl, err := readline.New("image> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	fmt.Println("enter an image path, :quit to exit")
	return loop(context.Background(), rl.Readline, runner, rl.Stdout())
}

// loop processes one image path per line until EOF or :quit. Failures are
// printed and do not stop the loop.
func loop(ctx context.Context, readLine func() (string, error), runner *scenarioocr.Runner, out io.Writer) error {
	for {
		line, err := readLine()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ":quit" || line == ":q" {
			return nil
		}

		path := strings.Trim(line, `"'`)
		result, err := runner.ProcessFile(ctx, path)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, result.Raw)
	}
}
