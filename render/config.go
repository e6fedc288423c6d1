package render

import (
	"sync"
	"sync/atomic"
)

// ConfigSource is the live, versioned render configuration. LastModified
// grows every time Options changes.
type ConfigSource interface {
	Options() Options
	LastModified() int64
}

type VersionedConfig struct {
	lock    sync.RWMutex
	opts    Options
	version atomic.Int64
}

func NewVersionedConfig(o Options) *VersionedConfig {
	c := &VersionedConfig{opts: o}
	c.version.Store(1)
	return c
}

func (c *VersionedConfig) Options() Options {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.opts
}

func (c *VersionedConfig) LastModified() int64 {
	return c.version.Load()
}

func (c *VersionedConfig) Update(o Options) {
	c.lock.Lock()
	c.opts = o
	c.version.Add(1)
	c.lock.Unlock()
}

// Modify applies fn to a copy of the current options and stores it.
func (c *VersionedConfig) Modify(fn func(o *Options)) {
	c.lock.Lock()
	o := c.opts
	fn(&o)
	c.opts = o
	c.version.Add(1)
	c.lock.Unlock()
}
