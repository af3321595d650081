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
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/greenfield-iot/snmpsession/snmp"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set OID TYPE VALUE",
	Short: "Perform an SNMP SET request",
	Long: `Perform an SNMP SET request against a single OID.

Type specifiers:
  i - INTEGER
  u - Unsigned INTEGER (Gauge)
  c - Counter
  s - OCTET STRING (text)
  x - OCTET STRING (hex bytes, e.g., "DE AD BE EF")
  n - NULL
  o - OBJECT IDENTIFIER
  t - TimeTicks
  a - IP Address

Examples:
  snmpctl set -t 192.168.1.1 .1.3.6.1.2.1.1.4.0 s "admin@example.com"
  snmpctl set -t 192.168.1.1 .1.3.6.1.4.1.9.2.1.55.0 i 5`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	oid, err := snmp.ParseOID(args[0])
	if err != nil {
		return fmt.Errorf("invalid OID %q: %w", args[0], err)
	}

	value, err := parseValue(strings.ToLower(args[1]), args[2])
	if err != nil {
		return fmt.Errorf("invalid value for OID %s: %w", oid, err)
	}

	h, err := createHandle()
	if err != nil {
		return err
	}
	defer h.Close()

	printVerbose("Sending SET request for %s...", oid.String())
	start := time.Now()

	jobID := h.SetValue(community, oid, value)
	values, err := waitForJob(h, jobID, responseDeadline())
	if err != nil {
		return fmt.Errorf("SET failed: %w", err)
	}

	printVerbose("Response received in %s", formatDuration(time.Since(start)))

	NewFormatter(outputFormat).FormatValues(values)
	return nil
}

func parseValue(typeSpec, valueStr string) (snmp.Value, error) {
	switch typeSpec {
	case "i": // INTEGER
		val, err := strconv.ParseInt(valueStr, 10, 32)
		if err != nil {
			return snmp.Value{}, fmt.Errorf("invalid integer: %w", err)
		}
		return snmp.Integer(val), nil

	case "u": // Unsigned INTEGER (Gauge)
		val, err := strconv.ParseUint(valueStr, 10, 32)
		if err != nil {
			return snmp.Value{}, fmt.Errorf("invalid unsigned integer: %w", err)
		}
		return snmp.Unsigned(snmp.TagGauge, val), nil

	case "c": // Counter
		val, err := strconv.ParseUint(valueStr, 10, 32)
		if err != nil {
			return snmp.Value{}, fmt.Errorf("invalid counter: %w", err)
		}
		return snmp.Unsigned(snmp.TagCounter, val), nil

	case "s": // OCTET STRING (text)
		return snmp.String(valueStr), nil

	case "x": // OCTET STRING (hex)
		b, err := parseHexString(valueStr)
		if err != nil {
			return snmp.Value{}, fmt.Errorf("invalid hex string: %w", err)
		}
		return snmp.String(string(b)), nil

	case "n": // NULL
		return snmp.Null(), nil

	case "o": // OBJECT IDENTIFIER
		oidVal, err := snmp.ParseOID(valueStr)
		if err != nil {
			return snmp.Value{}, fmt.Errorf("invalid OID value: %w", err)
		}
		return snmp.OIDValue(oidVal), nil

	case "t": // TimeTicks
		val, err := strconv.ParseUint(valueStr, 10, 32)
		if err != nil {
			return snmp.Value{}, fmt.Errorf("invalid timeticks: %w", err)
		}
		return snmp.Unsigned(snmp.TagTimeTicks, val), nil

	case "a": // IP Address
		ip := net.ParseIP(valueStr)
		if ip == nil {
			return snmp.Value{}, fmt.Errorf("invalid IP address: %s", valueStr)
		}
		ip4 := ip.To4()
		if ip4 == nil {
			return snmp.Value{}, fmt.Errorf("not an IPv4 address: %s", valueStr)
		}
		return snmp.IPAddress(ip4), nil

	default:
		return snmp.Value{}, fmt.Errorf("unknown type specifier: %s (use i, u, c, s, x, n, o, t, or a)", typeSpec)
	}
}

func parseHexString(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, "-", "")

	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd number of hex characters")
	}

	b := make([]byte, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		val, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return nil, err
		}
		b[i/2] = byte(val)
	}

	return b, nil
}
