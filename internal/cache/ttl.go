package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// TTL é o cache em memória usado quando REDIS_URL não está configurado.
type TTL struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type item struct {
	data []byte
	exp  time.Time
}

// NewTTL inicia a limpeza periódica; chame Close para encerrá-la.
func NewTTL(ttl time.Duration) *TTL {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &TTL{items: make(map[string]item), ttl: ttl, now: time.Now, stop: make(chan struct{})}
	go c.cleanup()
	return c
}

func (c *TTL) cleanup() {
	tick := time.NewTicker(c.ttl / 2)
	defer tick.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-tick.C:
			c.purgeExpired()
		}
	}
}

func (c *TTL) purgeExpired() {
	c.mu.Lock()
	now := c.now()
	for k, v := range c.items {
		if v.exp.Before(now) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

func (c *TTL) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *TTL) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || it.exp.Before(c.now()) {
		return nil, false
	}
	return it.data, true
}

func (c *TTL) Set(_ context.Context, key string, value []byte) error {
	exp := c.now().Add(c.ttl)
	c.mu.Lock()
	c.items[key] = item{data: value, exp: exp}
	c.mu.Unlock()
	return nil
}

func (c *TTL) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// DeletePrefix remove todas as chaves com o prefixo (ex.: "professionals:").
func (c *TTL) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *TTL) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
