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
	"fmt"
	"net"
	"time"
)

// Handle is the external, thread-safe façade over a Session. Every
// method may be called concurrently from any goroutine; mutating
// calls are marshaled onto the session's single owner goroutine.
// Grounded on original_source/src/QtSnmpClient.cpp's thread-marshaling
// pattern, unified here at a single layer rather than split across
// QtSnmpClient and Session::addWork as the original does.
type Handle struct {
	session *Session
}

// NewHandle creates a Session and wraps it in a Handle.
func NewHandle(opts ...Option) (*Handle, error) {
	s, err := NewSession(opts...)
	if err != nil {
		return nil, err
	}
	return &Handle{session: s}, nil
}

// Close releases the underlying session's socket and goroutines.
func (h *Handle) Close() {
	h.session.Close()
}

// Events returns the channel ResponseEvent/FailureEvent values are
// delivered on.
func (h *Handle) Events() <-chan Event {
	return h.session.Events()
}

// Metrics returns a snapshot of the session's metrics.
func (h *Handle) Metrics() MetricsSnapshot {
	return h.session.Metrics()
}

// IsBusy reports whether the session has an outstanding request or
// queued work.
func (h *Handle) IsBusy() bool {
	return h.session.IsBusy()
}

// ID returns the underlying session's unique identifier.
func (h *Handle) ID() string {
	return h.session.ID()
}

// isUnspecifiedHost reports whether host names no concrete agent: the
// empty string, or an IP literal that parses as 0.0.0.0 or ::.
func isUnspecifiedHost(host string) bool {
	if host == "" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}

// SetAgentAddress sets the agent host/port the session talks to.
// Unlike every other setter, validation happens here, before the call
// ever reaches the session: a null or unspecified (0.0.0.0 / ::) host,
// or an out-of-range port, is rejected and logged, not applied.
func (h *Handle) SetAgentAddress(host string, port int) error {
	if isUnspecifiedHost(host) {
		h.session.Logger().Error("snmp: rejecting invalid agent address", "host", host)
		return ErrInvalidAddress
	}
	if port <= 0 || port > 65535 {
		h.session.Logger().Error("snmp: rejecting invalid agent port", "port", port)
		return ErrInvalidAddress
	}
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		h.session.Logger().Error("snmp: failed to resolve agent address", "host", host, "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	h.session.SetAgentAddress(addr)
	return nil
}

// SetCommunity sets the default community string used for GET and
// GET-NEXT requests.
func (h *Handle) SetCommunity(community string) {
	h.session.SetCommunity(community)
}

// SetProtocolVersion sets the outbound SNMP version.
func (h *Handle) SetProtocolVersion(v SNMPVersion) {
	h.session.SetProtocolVersion(v)
}

// SetResponseTimeout sets the response-wait timeout. A non-positive
// duration is rejected.
func (h *Handle) SetResponseTimeout(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidTimeout
	}
	h.session.SetResponseTimeout(d)
	return nil
}

// SetGetRequestLimit sets how many OIDs a RequestValues call batches
// into one GET-REQUEST.
func (h *Handle) SetGetRequestLimit(n int) {
	h.session.SetGetRequestLimit(n)
}

// RequestValue fetches a single OID. Sugar over RequestValues.
func (h *Handle) RequestValue(oid OID) int {
	return h.RequestValues([]OID{oid})
}

// RequestValues fetches a fixed list of OIDs, batched per the
// session's configured GET-REQUEST limit. Returns the job id the
// eventual ResponseEvent/FailureEvent will carry.
func (h *Handle) RequestValues(oids []OID) int {
	limit := h.session.GetRequestLimit()
	return h.session.EnqueueJob(NewGetValuesJob(oids, limit))
}

// RequestSubValues walks every OID strictly beneath baseOID via
// chained GET-NEXT requests. Returns the job id.
func (h *Handle) RequestSubValues(baseOID OID) int {
	return h.session.EnqueueJob(NewWalkSubtreeJob(baseOID))
}

// SetValue sets oid to value using community, which may differ from
// the session's default community. Returns the job id.
func (h *Handle) SetValue(community string, oid OID, value Value) int {
	return h.session.EnqueueJob(NewSetValueJob(community, oid, value))
}
