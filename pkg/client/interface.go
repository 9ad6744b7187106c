package client

import (
	"context"

	"github.com/menta2k/scenario-ocr/pkg/types"
)

// ScenarioRunner runs one blocking scenario for a base64 encoded image
type ScenarioRunner interface {
	Run(ctx context.Context, imgB64, user string) (types.APIResponse, error)
}
