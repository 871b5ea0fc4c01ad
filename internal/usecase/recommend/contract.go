package recommend

import (
	"context"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

// Completer turns prompts into a parsed recommendation bundle.
type Completer interface {
	Complete(ctx context.Context, system, user string) (*domain.RecommendationBundle, error)
}
