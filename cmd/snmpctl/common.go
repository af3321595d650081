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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/greenfield-iot/snmpsession/snmp"
)

// createHandle builds and connects a Handle using the current
// configuration.
func createHandle() (*snmp.Handle, error) {
	if err := checkTarget(); err != nil {
		return nil, err
	}

	opts := []snmp.Option{
		snmp.WithCommunity(community),
		snmp.WithResponseTimeout(timeout),
		snmp.WithGetRequestLimit(getLimit),
	}

	switch strings.ToLower(version) {
	case "1", "v1":
		opts = append(opts, snmp.WithProtocolVersion(snmp.Version1))
	default:
		opts = append(opts, snmp.WithProtocolVersion(snmp.Version2c))
	}

	if verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, snmp.WithLogger(logger))
	}

	h, err := snmp.NewHandle(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if err := h.SetAgentAddress(target, port); err != nil {
		h.Close()
		return nil, fmt.Errorf("setting agent address: %w", err)
	}

	return h, nil
}

// waitForJob blocks until jobID's ResponseEvent or FailureEvent
// arrives on h's event channel, or the deadline passes. Other job ids'
// events (there shouldn't be any in a single-shot CLI invocation) are
// discarded.
func waitForJob(h *snmp.Handle, jobID int, deadline time.Duration) ([]snmp.Value, error) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for {
		select {
		case ev := <-h.Events():
			switch e := ev.(type) {
			case snmp.ResponseEvent:
				if e.JobID == jobID {
					return e.Values, nil
				}
			case snmp.FailureEvent:
				if e.JobID == jobID {
					return nil, fmt.Errorf("request failed")
				}
			}
		case <-timer.C:
			return nil, fmt.Errorf("timed out waiting for response")
		}
	}
}

func checkTarget() error {
	if target == "" {
		return fmt.Errorf("target is required (use -t or --target)")
	}
	return nil
}

func parseOIDs(args []string) ([]snmp.OID, error) {
	oids := make([]snmp.OID, len(args))
	for i, arg := range args {
		oid, err := snmp.ParseOID(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid OID %q: %w", arg, err)
		}
		oids[i] = oid
	}
	return oids, nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// responseDeadline bounds how long a CLI invocation will wait for a
// job to complete: enough for the session's own retry budget (6
// attempts) plus headroom.
func responseDeadline() time.Duration {
	return timeout*7 + time.Second
}
