package usecase

import (
	"context"
	"sync"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Config tunes the retrieval pipeline
type Config struct {
	// MaxHops bounds the breadth-first walk from the anchor entity
	MaxHops int

	// DistanceCeiling is the coarse absolute cosine-distance cutoff applied
	// before the adaptive mean+sigma band
	DistanceCeiling float64
}

// DefaultConfig returns the retrieval tuning used when the caller provides
// none
func DefaultConfig() Config {
	return Config{
		MaxHops:         model.DefaultMaxHops,
		DistanceCeiling: model.DefaultDistanceCeiling,
	}
}

// UseCases bundles the ingestion and retrieval pipelines over one
// repository and one language-model gateway
type UseCases struct {
	repo    interfaces.Repository
	gateway interfaces.Gateway
	cfg     Config

	// aliasLocks serializes alias handling per user. Entity and edge writes
	// stay optimistic (unique key + re-read), but a group merge mutates
	// several rows with no conflict to catch, so concurrent merges on
	// overlapping entities could otherwise lose one of the two links.
	aliasLocks sync.Map // types.UserID -> *sync.Mutex
}

// Option is a functional option for UseCases configuration
type Option func(*UseCases)

// WithConfig overrides the default retrieval tuning. Zero fields keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(uc *UseCases) {
		if cfg.MaxHops > 0 {
			uc.cfg.MaxHops = cfg.MaxHops
		}
		if cfg.DistanceCeiling > 0 {
			uc.cfg.DistanceCeiling = cfg.DistanceCeiling
		}
	}
}

// New creates the use case layer
func New(repo interfaces.Repository, gateway interfaces.Gateway, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:    repo,
		gateway: gateway,
		cfg:     DefaultConfig(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (uc *UseCases) aliasLock(userID types.UserID) *sync.Mutex {
	mu, _ := uc.aliasLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// embedOne embeds a single text
func (uc *UseCases) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := uc.gateway.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, goerr.New("no embedding returned", goerr.V("text", text))
	}
	return vecs[0], nil
}
