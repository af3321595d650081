// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snmp

import (
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// registryEntry pairs a Handle with the last time it was looked up,
// for idle eviction.
type registryEntry struct {
	handle   *Handle
	lastUsed time.Time
}

// Registry owns a keyed set of independent per-agent Handles: each
// agent gets its own Session, its own goroutine, its own queue. No
// request crosses from one agent's session to another's — this is a
// sibling concern to the "no multi-agent fan-out inside one session"
// rule, not a violation of it. Adapted from edgeo-scada-snmp's
// snmp/pool.go, which pools interchangeable connections to the *same*
// agent; a Registry instead keys on distinct agents.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry

	sessionOpts []Option
	idleTimeout time.Duration
	logger      *slog.Logger

	closeCh chan struct{}
	closed  bool
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := NewRegistryOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		entries:     make(map[string]*registryEntry),
		sessionOpts: o.SessionOptions,
		idleTimeout: o.IdleTimeout,
		logger:      logger,
		closeCh:     make(chan struct{}),
	}
	if r.idleTimeout > 0 {
		go r.evictIdleLoop()
	}
	return r
}

// Get returns the Handle for the given agent host/port, creating and
// starting a new Session for it on first use.
func (r *Registry) Get(host string, port int) (*Handle, error) {
	key := registryKey(host, port)

	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		r.mu.Lock()
		entry.lastUsed = time.Now()
		r.mu.Unlock()
		return entry.handle, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[key]; ok {
		entry.lastUsed = time.Now()
		return entry.handle, nil
	}

	opts := append(append([]Option(nil), r.sessionOpts...), WithAgentAddress(host), WithAgentPort(port))
	handle, err := NewHandle(opts...)
	if err != nil {
		return nil, err
	}
	r.entries[key] = &registryEntry{handle: handle, lastUsed: time.Now()}
	r.logger.Info("snmp: registry created session", "agent", key)
	return handle, nil
}

// Remove closes and evicts the Handle for the given agent, if one
// exists.
func (r *Registry) Remove(host string, port int) {
	key := registryKey(host, port)
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()
	if ok {
		entry.handle.Close()
	}
}

// Close shuts down every Handle the registry owns.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	close(r.closeCh)
	for _, entry := range entries {
		entry.handle.Close()
	}
}

func (r *Registry) evictIdleLoop() {
	ticker := time.NewTicker(r.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.closeCh:
			return
		}
	}
}

func (r *Registry) evictIdle() {
	now := time.Now()
	var stale []*registryEntry

	r.mu.Lock()
	for key, entry := range r.entries {
		if now.Sub(entry.lastUsed) > r.idleTimeout && !entry.handle.IsBusy() {
			stale = append(stale, entry)
			delete(r.entries, key)
			r.logger.Info("snmp: registry evicted idle session", "agent", key)
		}
	}
	r.mu.Unlock()

	for _, entry := range stale {
		entry.handle.Close()
	}
}

func registryKey(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}
