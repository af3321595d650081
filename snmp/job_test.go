package snmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner is a jobRunner test double recording every call a Job
// makes against it, without any socket or timer involved.
type fakeRunner struct {
	sentGets    [][]OID
	sentNexts   []OID
	sentSets    []Value
	completed   []Value
	completions int
	failures    int
}

func (f *fakeRunner) sendGetRequest(oids []OID) {
	cp := make([]OID, len(oids))
	copy(cp, oids)
	f.sentGets = append(f.sentGets, cp)
}

func (f *fakeRunner) sendGetNextRequest(oid OID) {
	f.sentNexts = append(f.sentNexts, oid.Copy())
}

func (f *fakeRunner) sendSetRequest(community string, oid OID, value Value) {
	f.sentSets = append(f.sentSets, value)
}

func (f *fakeRunner) complete(values []Value) {
	f.completed = values
	f.completions++
}

func (f *fakeRunner) fail() {
	f.failures++
}

func bindingAt(oid OID, v Value) Value {
	v.SetAddress(oid)
	return v
}

func TestGetValuesJobSingleBatch(t *testing.T) {
	oids := []OID{MustParseOID("1.3.6.1.2.1.1.1.0"), MustParseOID("1.3.6.1.2.1.1.5.0")}
	job := NewGetValuesJob(oids, 0)
	r := &fakeRunner{}

	job.Start(r)
	require.Len(t, r.sentGets, 1)
	require.Len(t, r.sentGets[0], 2)

	job.Process(r, []Value{bindingAt(oids[0], String("desc")), bindingAt(oids[1], String("name"))}, nil)
	require.Equal(t, 1, r.completions)
	require.Len(t, r.completed, 2)
}

func TestGetValuesJobBatchesAcrossLimit(t *testing.T) {
	oids := []OID{
		MustParseOID("1.3.6.1.2.1.1.1.0"),
		MustParseOID("1.3.6.1.2.1.1.2.0"),
		MustParseOID("1.3.6.1.2.1.1.3.0"),
	}
	job := NewGetValuesJob(oids, 2)
	r := &fakeRunner{}

	job.Start(r)
	require.Len(t, r.sentGets[0], 2, "first batch capped at the limit")

	job.Process(r, []Value{bindingAt(oids[0], Integer(1)), bindingAt(oids[1], Integer(2))}, nil)
	require.Equal(t, 0, r.completions, "more OIDs remain, job must not complete yet")
	require.Len(t, r.sentGets, 2)
	require.Len(t, r.sentGets[1], 1, "final batch holds the remainder")

	job.Process(r, []Value{bindingAt(oids[2], Integer(3))}, nil)
	require.Equal(t, 1, r.completions)
	require.Len(t, r.completed, 3)
}

func TestGetValuesJobFailsOnAgentError(t *testing.T) {
	job := NewGetValuesJob([]OID{MustParseOID("1.3.6.1.2.1.1.1.0")}, 0)
	r := &fakeRunner{}
	job.Start(r)

	job.Process(r, nil, []*SNMPError{NewSNMPError(NoSuchName, 1)})
	require.Equal(t, 1, r.failures)
	require.Equal(t, 0, r.completions)
}

func TestWalkSubtreeJobStopsAtSubtreeBoundary(t *testing.T) {
	base := MustParseOID("1.3.6.1.2.1.2.2")
	job := NewWalkSubtreeJob(base)
	r := &fakeRunner{}

	job.Start(r)
	require.Equal(t, base, r.sentNexts[0])

	inside := MustParseOID("1.3.6.1.2.1.2.2.1.1")
	job.Process(r, []Value{bindingAt(inside, Integer(1))}, nil)
	require.Equal(t, 0, r.completions)
	require.Len(t, r.sentNexts, 2)
	require.Equal(t, inside, r.sentNexts[1])

	outside := MustParseOID("1.3.6.1.2.1.2.3")
	job.Process(r, []Value{bindingAt(outside, Integer(2))}, nil)
	require.Equal(t, 1, r.completions)
	require.Len(t, r.completed, 1, "only the one in-tree binding is kept")
}

// TestWalkSubtreeJobCompletesImmediatelyOnEmptyResponse exercises the
// explicit early return on a non-single-binding response, which an
// older revision mishandled by indexing an empty slice.
func TestWalkSubtreeJobCompletesImmediatelyOnEmptyResponse(t *testing.T) {
	base := MustParseOID("1.3.6.1.2.1.2.2")
	job := NewWalkSubtreeJob(base)
	r := &fakeRunner{}
	job.Start(r)

	require.NotPanics(t, func() {
		job.Process(r, nil, nil)
	})
	require.Equal(t, 1, r.completions)
	require.Empty(t, r.completed)
}

func TestWalkSubtreeJobFailsOnAgentError(t *testing.T) {
	base := MustParseOID("1.3.6.1.2.1.2.2")
	job := NewWalkSubtreeJob(base)
	r := &fakeRunner{}
	job.Start(r)

	job.Process(r, nil, []*SNMPError{NewSNMPError(GenErr, 0)})
	require.Equal(t, 1, r.failures)
	require.Equal(t, 0, r.completions)
}

func TestSetValueJobCompletesOnFirstResponse(t *testing.T) {
	oid := MustParseOID("1.3.6.1.2.1.1.4.0")
	job := NewSetValueJob("private", oid, String("admin@example.com"))
	r := &fakeRunner{}

	job.Start(r)
	require.Len(t, r.sentSets, 1)

	job.Process(r, []Value{bindingAt(oid, String("admin@example.com"))}, nil)
	require.Equal(t, 1, r.completions)
}

func TestSetValueJobFailsOnAgentError(t *testing.T) {
	oid := MustParseOID("1.3.6.1.2.1.1.4.0")
	job := NewSetValueJob("private", oid, String("x"))
	r := &fakeRunner{}
	job.Start(r)

	job.Process(r, nil, []*SNMPError{NewSNMPError(BadValue, 1)})
	require.Equal(t, 1, r.failures)
	require.Equal(t, 0, r.completions)
}
