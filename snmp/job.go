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

// jobRunner is the subset of Session a Job drives. Jobs never touch
// socket or timer state directly; they only ask the runner to send one
// more PDU, or to complete/fail the outstanding work item. Modeled as
// a small interface rather than Job embedding Session, matching
// original_source's AbstractJob/Session split.
type jobRunner interface {
	sendGetRequest(oids []OID)
	sendGetNextRequest(oid OID)
	sendSetRequest(community string, oid OID, value Value)
	complete(values []Value)
	fail()
}

// Job is the closed set of work items a Session can drive: get values,
// walk a sub-tree, or set a value. This is a small interface rather
// than an open inheritance hierarchy, matching the intent (if not the
// language) of original_source/src/AbstractJob.h.
type Job interface {
	// Start sends the job's first PDU.
	Start(r jobRunner)
	// Process handles one datagram's worth of validated bindings and
	// agent-reported errors. A non-empty errs always fails the job —
	// every built-in job treats any agent error as terminal.
	Process(r jobRunner, values []Value, errs []*SNMPError)
	// Description is a short human-readable summary for diagnostics.
	Description() string
}

// failOnError is the shared "any error fails the job" rule every
// built-in job applies first in Process.
func failOnError(r jobRunner, errs []*SNMPError) bool {
	if len(errs) == 0 {
		return false
	}
	r.fail()
	return true
}

// GetValuesJob requests a fixed list of OIDs, batching up to limit per
// GET-REQUEST (all in one request when limit <= 0). Grounded on
// original_source/src/RequestValuesJob.cpp.
type GetValuesJob struct {
	remaining   []OID
	limit       int
	accumulated []Value
}

// NewGetValuesJob creates a job that fetches oids, sending at most
// limit OIDs per GET-REQUEST (limit <= 0 means unlimited).
func NewGetValuesJob(oids []OID, limit int) *GetValuesJob {
	remaining := make([]OID, len(oids))
	copy(remaining, oids)
	return &GetValuesJob{remaining: remaining, limit: limit}
}

func (j *GetValuesJob) Description() string {
	return "get-values"
}

func (j *GetValuesJob) Start(r jobRunner) {
	j.sendNextBatch(r)
}

func (j *GetValuesJob) Process(r jobRunner, values []Value, errs []*SNMPError) {
	if failOnError(r, errs) {
		return
	}
	j.accumulated = append(j.accumulated, values...)
	if len(j.remaining) == 0 {
		r.complete(j.accumulated)
		return
	}
	j.sendNextBatch(r)
}

func (j *GetValuesJob) sendNextBatch(r jobRunner) {
	n := len(j.remaining)
	if j.limit > 0 && j.limit < n {
		n = j.limit
	}
	batch := j.remaining[:n]
	j.remaining = j.remaining[n:]
	r.sendGetRequest(batch)
}

// WalkSubtreeJob walks every OID strictly beneath baseOID by chaining
// GET-NEXT requests, stopping as soon as a response strays outside the
// sub-tree. Grounded on
// original_source/src/RequestSubValuesJob.cpp.
type WalkSubtreeJob struct {
	baseOID OID
	current OID
	found   []Value
}

// NewWalkSubtreeJob creates a job that walks everything strictly
// beneath baseOID.
func NewWalkSubtreeJob(baseOID OID) *WalkSubtreeJob {
	return &WalkSubtreeJob{baseOID: baseOID.Copy(), current: baseOID.Copy()}
}

func (j *WalkSubtreeJob) Description() string {
	return "walk-subtree"
}

func (j *WalkSubtreeJob) Start(r jobRunner) {
	r.sendGetNextRequest(j.current)
}

func (j *WalkSubtreeJob) Process(r jobRunner, values []Value, errs []*SNMPError) {
	if failOnError(r, errs) {
		return
	}
	if len(values) != 1 {
		r.complete(j.found)
		return
	}
	binding := values[0]
	addr := binding.Address()
	if addr == nil || !addr.HasStrictPrefix(j.baseOID) {
		r.complete(j.found)
		return
	}
	j.found = append(j.found, binding)
	j.current = addr.Copy()
	r.sendGetNextRequest(j.current)
}

// SetValueJob sets a single OID to value using community (which may
// differ from the session's default community), completing on the
// first response. It relies entirely on the shared failOnError/
// complete-on-first-response behavior, matching original_source's
// SetValueJob, which overrides neither.
type SetValueJob struct {
	community string
	oid       OID
	value     Value
}

// NewSetValueJob creates a job that sets oid to value using community.
func NewSetValueJob(community string, oid OID, value Value) *SetValueJob {
	return &SetValueJob{community: community, oid: oid.Copy(), value: value}
}

func (j *SetValueJob) Description() string {
	return "set-value"
}

func (j *SetValueJob) Start(r jobRunner) {
	r.sendSetRequest(j.community, j.oid, j.value)
}

func (j *SetValueJob) Process(r jobRunner, values []Value, errs []*SNMPError) {
	if failOnError(r, errs) {
		return
	}
	r.complete(values)
}
