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
	"errors"
	"fmt"
)

// Standard errors.
var (
	ErrInvalidOID        = errors.New("snmp: invalid OID")
	ErrClientClosed      = errors.New("snmp: session closed")
	ErrTimeout           = errors.New("snmp: operation timed out")
	ErrQueueFull         = errors.New("snmp: pending job queue is full")
	ErrInvalidTimeout    = errors.New("snmp: response timeout must be positive")
	ErrInvalidAddress    = errors.New("snmp: invalid agent address")
	ErrNoAgentConfigured = errors.New("snmp: no agent address configured")
)

// SNMPError represents an SNMP protocol error reported by the agent
// through a GET-RESPONSE's error-status/error-index fields. Per the
// session's validation rules, a non-zero error-status never fails the
// session outright: it is collected into an error list and handed to
// the job, which decides. All three built-in jobs treat any SNMPError
// as terminal.
type SNMPError struct {
	Status ErrorStatus
	Index  int
}

// Error implements the error interface.
func (e *SNMPError) Error() string {
	return fmt.Sprintf("snmp: %s at index %d", e.Status.String(), e.Index)
}

// NewSNMPError creates a new SNMP error.
func NewSNMPError(status ErrorStatus, index int) *SNMPError {
	return &SNMPError{Status: status, Index: index}
}

// ParseError represents a BER framing problem found while decoding an
// inbound buffer. Decode never returns a ParseError to its caller — it
// logs and stops at the offending chunk, returning whatever was parsed
// so far. Decode's log messages are plain strings and do not use this
// type.
type ParseError struct {
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return "snmp: parse error: " + e.Message
}

func newParseError(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus represents an SNMP PDU error-status code.
type ErrorStatus int

const (
	NoError    ErrorStatus = 0
	TooBig     ErrorStatus = 1
	NoSuchName ErrorStatus = 2
	BadValue   ErrorStatus = 3
	ReadOnly   ErrorStatus = 4
	GenErr     ErrorStatus = 5
)

// String returns the status text used in diagnostics, matching the
// table qtsnmpclient's Session::errorStatusText builds.
func (s ErrorStatus) String() string {
	switch s {
	case NoError:
		return "No errors"
	case TooBig:
		return "Too big"
	case NoSuchName:
		return "No such name"
	case BadValue:
		return "Bad value"
	case ReadOnly:
		return "Read only"
	case GenErr:
		return "Other errors"
	default:
		return fmt.Sprintf("Unsupported error(%d)", int(s))
	}
}
