// Package tokens estimates token counts for text and files and carves a
// model's context window into content, response, history, and file
// budgets.
package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/toolbridge/toolbridge/internal/cache"
	"github.com/toolbridge/toolbridge/internal/llm"
)

const (
	estimateCacheEntries = 10_000
	estimateCacheTTL     = 30 * time.Minute
)

// Estimator computes token estimates with a shared LRU+TTL cache.
// Encoders are loaded lazily: tiktoken vocabularies are only fetched
// when a request actually targets an OpenAI-family model.
type Estimator struct {
	cache *cache.Cache[string, int]

	mu       sync.Mutex
	encoders map[llm.TokenizerKind]*tiktoken.Tiktoken
}

// NewEstimator creates an Estimator with an empty cache.
func NewEstimator() *Estimator {
	return &Estimator{
		cache:    cache.New[string, int]("token-estimation", estimateCacheEntries, estimateCacheTTL),
		encoders: make(map[llm.TokenizerKind]*tiktoken.Tiktoken),
	}
}

// CacheStats exposes the estimation cache counters for the stats report.
func (e *Estimator) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// CleanupCache sweeps expired estimation entries.
func (e *Estimator) CleanupCache() int {
	return e.cache.Cleanup()
}

// EstimateText estimates the token count of text for the given model.
//
// Strategy: use the model's tiktoken vocabulary when it has one,
// otherwise fall back to the len/4 ratio heuristic. Results are cached
// keyed by a digest of (length, model, text) so repeated estimates of
// the same prompt or file body are free.
func (e *Estimator) EstimateText(text string, caps llm.Capabilities) int {
	if text == "" {
		return 0
	}
	key := estimateKey(text, caps.Model)
	return e.cache.GetOrCompute(key, func() int {
		return e.estimateUncached(text, caps)
	})
}

func (e *Estimator) estimateUncached(text string, caps llm.Capabilities) int {
	switch caps.Tokenizer {
	case llm.TokenizerO200K:
		if enc := e.encoder(llm.TokenizerO200K, "o200k_base"); enc != nil {
			return len(enc.Encode(text, nil, nil))
		}
	case llm.TokenizerCL100K:
		if enc := e.encoder(llm.TokenizerCL100K, "cl100k_base"); enc != nil {
			return len(enc.Encode(text, nil, nil))
		}
	}
	return RatioEstimate(text)
}

// RatioEstimate is the 1 token ~= 4 chars heuristic used for models
// without a real tokenizer. It is monotone under concatenation, which
// the budgeter relies on when pruning.
func RatioEstimate(text string) int {
	return len(text) / 4
}

// encoder returns the cached tiktoken encoder for kind, loading the
// vocabulary on first use. Returns nil when loading fails; callers fall
// back to the ratio heuristic.
func (e *Estimator) encoder(kind llm.TokenizerKind, encoding string) *tiktoken.Tiktoken {
	e.mu.Lock()
	defer e.mu.Unlock()
	if enc, ok := e.encoders[kind]; ok {
		return enc
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		log.Printf("[Tokens] Failed to load %s encoding, falling back to ratio estimate: %v", encoding, err)
		e.encoders[kind] = nil
		return nil
	}
	e.encoders[kind] = enc
	return enc
}

// estimateKey builds the cache key: first 16 hex chars of
// sha256(len || model || text), qualified by the model name.
func estimateKey(text, model string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|", len(text), model)
	h.Write([]byte(text))
	digest := hex.EncodeToString(h.Sum(nil))
	return digest[:16] + "|" + model
}
