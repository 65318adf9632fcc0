package worker

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"pdfqa/internal/models"
)

// answerCacheKey folds the store id and ready-document count into the key,
// so any store mutation moves queries onto fresh keys and stale entries age
// out by TTL.
func answerCacheKey(storeID string, ready int, question string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(question))))
	return fmt.Sprintf("answer:%s:%d:%x", storeID, ready, sum[:8])
}

func (m *Manager) cachedAnswer(ctx context.Context, key string) *models.Answer {
	if m.cache == nil {
		return nil
	}
	raw, err := m.cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	var answer models.Answer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		debugLog("[worker] drop bad cache entry %s: %v", key, err)
		_ = m.cache.Del(ctx, key)
		return nil
	}
	return &answer
}

func (m *Manager) storeAnswer(ctx context.Context, key string, answer *models.Answer) {
	if m.cache == nil || answer == nil {
		return
	}
	data, err := json.Marshal(answer)
	if err != nil {
		return
	}
	if err := m.cache.Set(ctx, key, string(data), m.cacheTTL); err != nil {
		debugLog("[worker] cache answer failed: %v", err)
	}
}
