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
	"time"
)

// SessionOptions contains configuration for a Session and the Handle
// that fronts it.
type SessionOptions struct {
	// AgentAddress is the SNMP agent's IP or hostname. Work can be
	// enqueued without one, but until an address is set (here or via
	// SetAgentAddress) every job fails at its first send.
	AgentAddress string
	// AgentPort is the SNMP agent's UDP port.
	AgentPort int
	// ProtocolVersion selects the outbound PDU version byte.
	ProtocolVersion SNMPVersion
	// Community is the default community string used for GET/GET-NEXT
	// requests. SET requests always use the community passed to
	// SetValue, even when it is empty.
	Community string
	// ResponseTimeout is how long the session waits for a GET-RESPONSE
	// before retrying. Must be positive.
	ResponseTimeout time.Duration
	// GetRequestLimit caps how many OIDs a single GetValues batch packs
	// into one GET-REQUEST. Zero or negative means unlimited.
	GetRequestLimit int

	// Logger receives structured diagnostics for every condition the
	// session logs instead of failing outright (dropped datagrams,
	// mismatched request ids, queue overflow, retries exhausted).
	Logger *slog.Logger
}

// NewSessionOptions returns SessionOptions populated with the package
// defaults.
func NewSessionOptions() *SessionOptions {
	return &SessionOptions{
		AgentPort:       DefaultPort,
		ProtocolVersion: Version2c,
		Community:       DefaultCommunity,
		ResponseTimeout: DefaultTimeout,
		GetRequestLimit: DefaultMaxOids,
	}
}

// Option is a functional option for configuring a Session.
type Option func(*SessionOptions)

// WithAgentAddress sets the agent address.
func WithAgentAddress(addr string) Option {
	return func(o *SessionOptions) {
		o.AgentAddress = addr
	}
}

// WithAgentPort sets the agent port.
func WithAgentPort(port int) Option {
	return func(o *SessionOptions) {
		o.AgentPort = port
	}
}

// WithProtocolVersion sets the outbound SNMP version.
func WithProtocolVersion(version SNMPVersion) Option {
	return func(o *SessionOptions) {
		o.ProtocolVersion = version
	}
}

// WithCommunity sets the default community string.
func WithCommunity(community string) Option {
	return func(o *SessionOptions) {
		o.Community = community
	}
}

// WithResponseTimeout sets the response-wait timeout.
func WithResponseTimeout(d time.Duration) Option {
	return func(o *SessionOptions) {
		o.ResponseTimeout = d
	}
}

// WithGetRequestLimit sets the maximum OIDs batched per GET-REQUEST.
func WithGetRequestLimit(n int) Option {
	return func(o *SessionOptions) {
		o.GetRequestLimit = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *SessionOptions) {
		o.Logger = logger
	}
}

// RegistryOptions configures a Registry of independent per-agent
// sessions.
type RegistryOptions struct {
	// SessionOptions are applied to every Handle the registry creates,
	// before the per-agent WithAgentAddress/WithAgentPort overrides.
	SessionOptions []Option
	// IdleTimeout closes and evicts a Handle that has gone unused for
	// this long. Zero disables idle eviction.
	IdleTimeout time.Duration
	// Logger receives registry-level diagnostics (eviction, creation).
	Logger *slog.Logger
}

// NewRegistryOptions returns RegistryOptions populated with defaults.
func NewRegistryOptions() *RegistryOptions {
	return &RegistryOptions{
		IdleTimeout: 5 * time.Minute,
	}
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*RegistryOptions)

// WithRegistrySessionOptions sets the options applied to every session
// the registry creates.
func WithRegistrySessionOptions(opts ...Option) RegistryOption {
	return func(o *RegistryOptions) {
		o.SessionOptions = opts
	}
}

// WithRegistryIdleTimeout sets the idle-eviction timeout.
func WithRegistryIdleTimeout(d time.Duration) RegistryOption {
	return func(o *RegistryOptions) {
		o.IdleTimeout = d
	}
}

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(o *RegistryOptions) {
		o.Logger = logger
	}
}
