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
	"time"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get OID [OID...]",
	Short: "Fetch the value of one or more OIDs",
	Long: `Fetch the value of one or more OIDs via GET-REQUEST, batched per the
configured GET-REQUEST limit.

Examples:
  snmpctl get -t 192.168.1.1 .1.3.6.1.2.1.1.1.0
  snmpctl get -t 192.168.1.1 .1.3.6.1.2.1.1.1.0 .1.3.6.1.2.1.1.3.0`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	oids, err := parseOIDs(args)
	if err != nil {
		return err
	}

	h, err := createHandle()
	if err != nil {
		return err
	}
	defer h.Close()

	printVerbose("Sending GET request for %d OID(s)...", len(oids))
	start := time.Now()

	jobID := h.RequestValues(oids)
	values, err := waitForJob(h, jobID, responseDeadline())
	if err != nil {
		return fmt.Errorf("GET failed: %w", err)
	}

	printVerbose("Response received in %s", formatDuration(time.Since(start)))

	NewFormatter(outputFormat).FormatValues(values)
	return nil
}
