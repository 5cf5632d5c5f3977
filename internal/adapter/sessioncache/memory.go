// Package sessioncache provides SessionCache implementations: an
// in-memory one for single-process operation and tests, and a
// Redis-backed one for cluster-shared deployments.
package sessioncache

import (
	"context"
	"strings"
	"sync"
)

// Memory is a sync.Map-backed SessionCache. It provides no cross-
// process sharing and exists for local/dev/test operation.
type Memory struct {
	sessions sync.Map
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(_ context.Context, entityID string) (string, bool, error) {
	v, ok := m.sessions.Load(entityID)
	if !ok {
		return "", false, nil
	}
	cookie := v.(string)
	if strings.TrimSpace(cookie) == "" {
		return "", false, nil
	}
	return cookie, true, nil
}

func (m *Memory) Put(_ context.Context, entityID, cookie string) error {
	m.sessions.Store(entityID, cookie)
	return nil
}

func (m *Memory) Clear(_ context.Context, entityID string) error {
	m.sessions.Delete(entityID)
	return nil
}
