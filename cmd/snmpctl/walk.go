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

var walkCmd = &cobra.Command{
	Use:   "walk BASE-OID",
	Short: "Walk every OID strictly beneath BASE-OID",
	Long: `Walk a sub-tree via chained GET-NEXT-REQUESTs, stopping as soon as the
agent returns an OID outside the sub-tree.

Examples:
  snmpctl walk -t 192.168.1.1 .1.3.6.1.2.1.2.2`,
	Args: cobra.ExactArgs(1),
	RunE: runWalk,
}

func init() {
	rootCmd.AddCommand(walkCmd)
}

func runWalk(cmd *cobra.Command, args []string) error {
	oids, err := parseOIDs(args)
	if err != nil {
		return err
	}
	base := oids[0]

	h, err := createHandle()
	if err != nil {
		return err
	}
	defer h.Close()

	printVerbose("Walking sub-tree beneath %s...", base.String())
	start := time.Now()

	jobID := h.RequestSubValues(base)
	values, err := waitForJob(h, jobID, responseDeadline())
	if err != nil {
		return fmt.Errorf("walk failed: %w", err)
	}

	printVerbose("Walk completed in %s (%d bindings)", formatDuration(time.Since(start)), len(values))

	NewFormatter(outputFormat).FormatValues(values)
	return nil
}
