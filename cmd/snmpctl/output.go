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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/greenfield-iot/snmpsession/snmp"
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
	FormatRaw   OutputFormat = "raw"
)

// BindingOutput represents one resolved variable binding for output.
type BindingOutput struct {
	OID   string `json:"oid"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Formatter handles output formatting for a sequence of bindings.
type Formatter struct {
	format    OutputFormat
	writer    io.Writer
	csvWriter *csv.Writer
	first     bool
}

// NewFormatter creates a new formatter for the named format.
func NewFormatter(format string) *Formatter {
	f := &Formatter{
		format: OutputFormat(format),
		writer: os.Stdout,
		first:  true,
	}
	if f.format == FormatCSV {
		f.csvWriter = csv.NewWriter(os.Stdout)
	}
	return f
}

// FormatValue formats and prints a single binding.
func (f *Formatter) FormatValue(v snmp.Value) {
	switch f.format {
	case FormatJSON:
		f.formatJSON(v)
	case FormatCSV:
		f.formatCSV(v)
	case FormatRaw:
		f.formatRaw(v)
	default:
		f.formatTable(v)
	}
}

// FormatValues formats and prints every binding.
func (f *Formatter) FormatValues(values []snmp.Value) {
	for _, v := range values {
		f.FormatValue(v)
	}
}

func (f *Formatter) formatTable(v snmp.Value) {
	var sb strings.Builder
	sb.WriteString(colorize(v.Address().String(), ColorCyan))
	sb.WriteString(" = ")
	sb.WriteString(colorize(v.Tag().String(), ColorYellow))
	sb.WriteString(": ")
	sb.WriteString(formatValue(v))
	fmt.Fprintln(f.writer, sb.String())
}

func (f *Formatter) formatJSON(v snmp.Value) {
	output := BindingOutput{
		OID:   v.Address().String(),
		Type:  v.Tag().String(),
		Value: formatValue(v),
	}
	data, _ := json.Marshal(output)
	fmt.Fprintln(f.writer, string(data))
}

func (f *Formatter) formatCSV(v snmp.Value) {
	if f.first {
		f.csvWriter.Write([]string{"oid", "type", "value"})
		f.first = false
	}
	f.csvWriter.Write([]string{v.Address().String(), v.Tag().String(), formatValue(v)})
	f.csvWriter.Flush()
}

func (f *Formatter) formatRaw(v snmp.Value) {
	fmt.Fprintln(f.writer, formatValue(v))
}

// formatValue renders a Value's payload for human or machine
// consumption, switching on its tag.
func formatValue(v snmp.Value) string {
	switch v.Tag() {
	case snmp.TagNull:
		return "NULL"
	case snmp.TagInteger:
		n, _ := v.AsI64()
		return fmt.Sprintf("%d", n)
	case snmp.TagOctetString:
		s, _ := v.AsText()
		if isPrintable([]byte(s)) {
			return fmt.Sprintf("%q", s)
		}
		return formatHex([]byte(s))
	case snmp.TagObject:
		s, _ := v.AsText()
		return s
	case snmp.TagIPAddress:
		ip, ok := v.AsIP()
		if ok {
			return ip.String()
		}
		return formatHex(v.Payload())
	case snmp.TagCounter, snmp.TagGauge:
		n, _ := v.AsI64()
		return fmt.Sprintf("%d", n)
	case snmp.TagTimeTicks:
		n, _ := v.AsI64()
		return fmt.Sprintf("%d (%.2fs)", n, float64(n)/100)
	default:
		return formatHex(v.Payload())
	}
}

func isPrintable(data []byte) bool {
	for _, b := range data {
		if b < 32 || b > 126 {
			return false
		}
	}
	return true
}

func formatHex(data []byte) string {
	var parts []string
	for _, b := range data {
		parts = append(parts, fmt.Sprintf("%02X", b))
	}
	return strings.Join(parts, " ")
}

const (
	ColorReset  = "\033[0m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

func colorize(text, color string) string {
	if noColor {
		return text
	}
	return color + text + ColorReset
}
