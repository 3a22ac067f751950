package nutrition

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTargetLanguage is the language the calorie source understands.
	DefaultTargetLanguage = "en"
	defaultCacheSize      = 512
	defaultCacheTTL       = 24 * time.Hour
)

// Pipeline runs lookup, translate-on-miss and a second lookup.
// Results are cached and concurrent lookups of the same food share one call.
type Pipeline struct {
	source     CalorieSource
	translator Translator
	cache      *expirable.LRU[string, Result]
	logger     *slog.Logger
	target     string
	group      singleflight.Group
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCache sets cache size and TTL. A size of zero or less disables caching.
func WithCache(size int, ttl time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if size <= 0 {
			p.cache = nil
			return
		}
		p.cache = expirable.NewLRU[string, Result](size, nil, ttl)
	}
}

func WithTargetLanguage(lang string) PipelineOption {
	return func(p *Pipeline) {
		if lang != "" {
			p.target = lang
		}
	}
}

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline. translator may be nil, in which case a
// miss is final.
func NewPipeline(source CalorieSource, translator Translator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		source:     source,
		translator: translator,
		cache:      expirable.NewLRU[string, Result](defaultCacheSize, nil, defaultCacheTTL),
		logger:     slog.Default(),
		target:     DefaultTargetLanguage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func cacheKey(food string) string {
	return strings.ToLower(strings.TrimSpace(food))
}

// Lookup resolves the calories of food. A food that is not found after the
// translated retry yields Result{Found: false} and a nil error.
func (p *Pipeline) Lookup(ctx context.Context, food string) (Result, error) {
	food = strings.TrimSpace(food)
	if food == "" {
		return Result{}, ErrEmptyQuery
	}
	key := cacheKey(food)
	if p.cache != nil {
		if r, ok := p.cache.Get(key); ok {
			r.Query = food
			return r, nil
		}
	}

	ch := p.group.DoChan(key, func() (any, error) {
		// Detached from the first caller so its cancellation does not fail the others.
		return p.lookup(context.WithoutCancel(ctx), food)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		r := res.Val.(Result)
		r.Query = food
		return r, nil
	}
}

// LookupAsync runs Lookup in a goroutine. The channel receives exactly one
// Outcome and is then closed.
func (p *Pipeline) LookupAsync(ctx context.Context, food string) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		r, err := p.Lookup(ctx, food)
		out <- Outcome{Result: r, Err: err}
	}()
	return out
}

func (p *Pipeline) lookup(ctx context.Context, food string) (Result, error) {
	match, found, err := p.source.FindCalories(ctx, food)
	if err != nil {
		return Result{}, err
	}
	if found {
		return p.remember(food, resultFrom(food, "", match)), nil
	}

	if p.translator == nil {
		return p.remember(food, Result{Query: food}), nil
	}
	translated, err := p.translator.Translate(ctx, food, p.target)
	if err != nil {
		// A failed translation reads as not found; it is not cached.
		p.logger.Warn("Nutrition: translation failed", "food", food, "error", err)
		return Result{Query: food}, nil
	}
	translated = strings.TrimSpace(translated)
	if translated == "" || strings.EqualFold(translated, food) {
		return p.remember(food, Result{Query: food}), nil
	}

	match, found, err = p.source.FindCalories(ctx, translated)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return p.remember(food, Result{Query: food, Translated: translated}), nil
	}
	return p.remember(food, resultFrom(food, translated, match)), nil
}

func (p *Pipeline) remember(food string, r Result) Result {
	if p.cache != nil {
		p.cache.Add(cacheKey(food), r)
	}
	return r
}

func resultFrom(query, translated string, m Match) Result {
	serving := m.ServingSize
	if serving == "" {
		serving = DefaultServingSize
	}
	return Result{
		Query:       query,
		Translated:  translated,
		Label:       m.Label,
		ServingSize: serving,
		Calories:    m.Calories,
		Found:       true,
	}
}
