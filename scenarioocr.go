// Package scenarioocr sends images to a hosted scenario-run API and turns the
// reply into printable text.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		scenarioocr "github.com/menta2k/scenario-ocr"
//		"github.com/menta2k/scenario-ocr/pkg/encoder"
//		"github.com/menta2k/scenario-ocr/pkg/scenario"
//	)
//
//	func main() {
//		backend, err := scenario.NewClient("https://qa.agent.authme.ai", "app-...")
//		if err != nil {
//			log.Fatal(err)
//		}
//		runner := scenarioocr.NewWithBackend(encoder.New(), backend, "ocr-test")
//		out, err := runner.ProcessFile(context.Background(), "receipt.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(out.Raw)
//	}
//
// The package consists of the following components:
//
// 1. Encoder (pkg/encoder): loads an image, drops alpha, re-encodes it as
// JPEG quality 95 and returns base64 text
// 2. Backends (pkg/scenario, pkg/ollama): run the scenario for one image
// 3. Normalizer (pkg/normalize): decides whether result.response holds JSON
// or text and renders it
package scenarioocr

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/menta2k/scenario-ocr/internal/config"
	"github.com/menta2k/scenario-ocr/pkg/client"
	"github.com/menta2k/scenario-ocr/pkg/encoder"
	"github.com/menta2k/scenario-ocr/pkg/normalize"
	"github.com/menta2k/scenario-ocr/pkg/ollama"
	"github.com/menta2k/scenario-ocr/pkg/scenario"
	"github.com/menta2k/scenario-ocr/pkg/types"
)

// Version of the scenario-ocr tools
const Version = "1.0.0"

// Runner wires the encoder, a backend and the normalizer for one user
type Runner struct {
	encoder *encoder.Encoder
	backend client.ScenarioRunner
	user    string
	logger  *log.Logger
}

// New creates a Runner from an explicit configuration value
func New(cfg *config.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}

	enc := encoder.NewWithConfig(encoder.Config{
		Quality: cfg.Encoder.Quality,
		MaxDim:  cfg.Encoder.MaxDim,
	})
	return NewWithBackend(enc, backend, cfg.API.User), nil
}

// NewBackend creates the backend selected by cfg.API.Backend
func NewBackend(cfg *config.Config) (client.ScenarioRunner, error) {
	switch cfg.API.Backend {
	case config.BackendScenario:
		c, err := scenario.NewClient(cfg.API.BaseURL, cfg.API.Token, scenario.WithTimeout(cfg.Timeout()))
		if err != nil {
			return nil, fmt.Errorf("failed to create scenario client: %w", err)
		}
		return c, nil
	case config.BackendOllama:
		c, err := ollama.NewClient(cfg.Ollama.URL, cfg.Ollama.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		c.SetPrompt(cfg.Ollama.Prompt)
		c.SetTimeout(cfg.Timeout())
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use %q or %q)", cfg.API.Backend, config.BackendScenario, config.BackendOllama)
	}
}

// NewWithBackend creates a Runner around an existing backend
func NewWithBackend(enc *encoder.Encoder, backend client.ScenarioRunner, user string) *Runner {
	return &Runner{
		encoder: enc,
		backend: backend,
		user:    user,
		logger:  log.Default(),
	}
}

// SetLogger replaces the progress logger; nil silences it
func (r *Runner) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	r.logger = l
}

// ProcessFile encodes the image at path, runs the scenario and normalizes
// the response. Encoder and transport errors are returned unchanged in kind
// (encoder.ErrFileNotFound, encoder.ErrImageDecode, *scenario.HTTPError).
func (r *Runner) ProcessFile(ctx context.Context, path string) (*types.Output, error) {
	id := uuid.NewString()
	r.logger.Printf("[%s] converting image: %s", id, path)

	imgB64, err := r.encoder.EncodeFile(path)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, id, imgB64)
}

// ProcessReader is ProcessFile for an image held in memory or uploaded
func (r *Runner) ProcessReader(ctx context.Context, rd io.Reader) (*types.Output, error) {
	id := uuid.NewString()
	r.logger.Printf("[%s] converting uploaded image", id)

	imgB64, err := r.encoder.EncodeReader(rd)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, id, imgB64)
}

func (r *Runner) run(ctx context.Context, id, imgB64 string) (*types.Output, error) {
	r.logger.Printf("[%s] base64 length: %d chars", id, len(imgB64))
	r.logger.Printf("[%s] calling scenario backend", id)

	resp, err := r.backend.Run(ctx, imgB64, r.user)
	if err != nil {
		r.logger.Printf("[%s] scenario run failed: %v", id, err)
		return nil, fmt.Errorf("scenario run failed: %w", err)
	}
	r.logger.Printf("[%s] scenario run finished", id)

	return &types.Output{
		RequestID: id,
		Base64Len: len(imgB64),
		Raw:       normalize.Normalize(resp),
		Compact:   normalize.Compact(resp),
		Markdown:  normalize.Markdown(resp),
		Text:      normalize.Text(resp),
	}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
