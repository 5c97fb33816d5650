package assist

import (
	"fmt"
	"strings"

	"github.com/carepath/carepath/internal/model"
)

// NewProvider creates the configured refinement provider. An empty provider
// name disables refinement (canned messages only) and returns nil, nil.
func NewProvider(cfg model.AssistConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown assist provider: %s (supported: openai)", cfg.Provider)
	}
}
