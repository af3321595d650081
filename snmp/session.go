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
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxQueueDepth caps the number of jobs a Session will hold pending.
// A job submitted past this depth is silently dropped (its job id is
// handed back but will never fire responseReceived or requestFailed)
// rather than rejected with an error — a deliberately preserved
// behavior, grounded on original_source/src/Session.cpp's addWork.
const maxQueueDepth = 100

// maxDatagramSize is the largest UDP datagram the session will
// attempt to decode; larger reads are logged and discarded.
const maxDatagramSize = 65507

// requestIDHistoryDepth is how many past request ids the session
// keeps for mismatch diagnostics.
const requestIDHistoryDepth = 10

// livenessInterval mirrors the 300ms socket_timer original_source arms
// alongside the UDP socket's own readyRead signal.
const livenessInterval = 300 * time.Millisecond

// Event is the closed set of notifications a Session emits: a job
// completed with values, or a job failed.
type Event interface{ isEvent() }

// ResponseEvent reports that the job identified by JobID completed
// successfully with Values.
type ResponseEvent struct {
	JobID  int
	Values []Value
}

func (ResponseEvent) isEvent() {}

// FailureEvent reports that the job identified by JobID failed
// (agent error, retries exhausted, or a transport write failure).
type FailureEvent struct {
	JobID int
}

func (FailureEvent) isEvent() {}

// workItem pairs a queued Job with the id it was assigned at
// enqueue time.
type workItem struct {
	id  int
	job Job
}

// Session drives a single SNMP agent's conversation: one outstanding
// request at a time, a FIFO queue of pending jobs behind it. All
// mutable state below is touched only from the owner goroutine
// started by NewSession; every other goroutine reaches it exclusively
// through post/EnqueueJob/IsBusy/the exported Set* methods, which post
// closures onto cmdCh. This is the Go translation of
// original_source/src/Session.cpp's single-threaded Qt event loop.
type Session struct {
	id    string
	conn  *net.UDPConn
	agent *net.UDPAddr

	community       string
	protocolVersion SNMPVersion
	responseTimeout time.Duration
	getRequestLimit int

	logger  *slog.Logger
	metrics *Metrics

	queue   []workItem
	current *workItem

	nextJobID int

	requestID        int
	requestIDHistory []int
	timeoutCnt       int
	lastPDU          Value
	requestStart     time.Time

	responseTimer *time.Timer
	liveness      *time.Ticker

	cmdCh      chan func()
	datagramCh chan []byte
	closeCh    chan struct{}
	closeOnce  sync.Once

	events chan Event
}

// NewSession creates and starts a Session: it binds a UDP socket on an
// OS-assigned local port and starts the owner and reader goroutines.
func NewSession(opts ...Option) (*Session, error) {
	o := NewSessionOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.ResponseTimeout <= 0 {
		return nil, ErrInvalidTimeout
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	logger = logger.With("session_id", id)

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("snmp: listen: %w", err)
	}

	s := &Session{
		id:              id,
		conn:            conn,
		community:       o.Community,
		protocolVersion: o.ProtocolVersion,
		responseTimeout: o.ResponseTimeout,
		getRequestLimit: o.GetRequestLimit,
		logger:          logger,
		metrics:         NewMetrics(),
		requestID:       -1,
		cmdCh:           make(chan func()),
		datagramCh:      make(chan []byte, 16),
		closeCh:         make(chan struct{}),
		events:          make(chan Event, 64),
		liveness:        time.NewTicker(livenessInterval),
	}

	if o.AgentAddress != "" {
		addr, resolveErr := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", o.AgentAddress, o.AgentPort))
		if resolveErr != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, resolveErr)
		}
		s.agent = addr
	}

	go s.readLoop()
	go s.run()
	return s, nil
}

// Close shuts the session down: the owner and reader goroutines exit
// and the socket is released.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.conn.Close()
		s.liveness.Stop()
	})
}

// Events returns the channel Response/Failure events are delivered
// on. Callers must keep draining it; a slow consumer causes events to
// be logged and dropped rather than blocking the session (see emit).
func (s *Session) Events() <-chan Event {
	return s.events
}

// Metrics returns a point-in-time snapshot of session metrics. Safe
// to call from any goroutine: every field it reads is atomic.
func (s *Session) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// Logger returns the session's logger. The pointer is fixed at
// construction, so this is safe to call from any goroutine.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// ID returns the session's unique identifier, assigned at
// construction. A Registry holds one Session per agent; this lets log
// lines and metrics exported by independent sessions be told apart.
func (s *Session) ID() string {
	return s.id
}

// IsBusy reports whether the session has an outstanding request or
// queued work.
func (s *Session) IsBusy() bool {
	reply := make(chan bool, 1)
	if !s.post(func() { reply <- s.isBusy() }) {
		return false
	}
	return <-reply
}

// EnqueueJob submits job to the session's work queue and returns its
// job id. The id is valid even if the queue was full and the job was
// dropped — see maxQueueDepth.
func (s *Session) EnqueueJob(job Job) int {
	reply := make(chan int, 1)
	if !s.post(func() { reply <- s.addWork(job) }) {
		return 0
	}
	return <-reply
}

// SetAgentAddress changes the agent the session talks to. addr must
// already be validated by the caller (the Handle layer rejects
// nil/unspecified addresses before this is ever called).
func (s *Session) SetAgentAddress(addr *net.UDPAddr) {
	s.post(func() {
		s.agent = addr
		s.timeoutCnt = 0
	})
}

// SetCommunity changes the default community string used for GET and
// GET-NEXT requests.
func (s *Session) SetCommunity(community string) {
	s.post(func() { s.community = community })
}

// SetProtocolVersion changes the outbound SNMP version.
func (s *Session) SetProtocolVersion(v SNMPVersion) {
	s.post(func() { s.protocolVersion = v })
}

// SetResponseTimeout changes the response-wait timeout. Non-positive
// durations are rejected and logged rather than applied.
func (s *Session) SetResponseTimeout(d time.Duration) {
	if d <= 0 {
		s.logger.Error("snmp: rejecting non-positive response timeout", "value", d)
		return
	}
	s.post(func() { s.responseTimeout = d })
}

// SetGetRequestLimit changes how many OIDs a GetValues job batches
// into one GET-REQUEST.
func (s *Session) SetGetRequestLimit(n int) {
	s.post(func() { s.getRequestLimit = n })
}

// GetRequestLimit reports the current GET-REQUEST batch size; intended
// for jobs constructed by the Handle layer, which needs it before
// creating a GetValuesJob.
func (s *Session) GetRequestLimit() int {
	reply := make(chan int, 1)
	if !s.post(func() { reply <- s.getRequestLimit }) {
		return 0
	}
	return <-reply
}

// post runs fn on the owner goroutine, returning false if the session
// is already closed.
func (s *Session) post(fn func()) bool {
	select {
	case s.cmdCh <- fn:
		return true
	case <-s.closeCh:
		s.logger.Debug("snmp: dropping call on closed session", "error", ErrClientClosed)
		return false
	}
}

func (s *Session) isBusy() bool {
	return s.current != nil || len(s.queue) > 0
}

// run is the owner goroutine: every field access above happens only
// from here.
func (s *Session) run() {
	for {
		var timerC <-chan time.Time
		if s.responseTimer != nil {
			timerC = s.responseTimer.C
		}
		select {
		case cmd := <-s.cmdCh:
			cmd()
		case buf := <-s.datagramCh:
			s.onDatagram(buf)
		case <-timerC:
			s.onResponseTimeout()
		case <-s.liveness.C:
			// Mirrors original_source's 300ms socket_timer cadence;
			// datagrams themselves are already delivered continuously
			// by readLoop, so this tick has no work of its own today.
		case <-s.closeCh:
			return
		}
	}
}

// readLoop is the dedicated UDP-reading goroutine: it never touches
// session state directly, only forwards raw datagrams to the owner
// goroutine over datagramCh.
func (s *Session) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if n > maxDatagramSize {
			s.logger.Warn("snmp: oversize datagram dropped", "size", n)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case s.datagramCh <- data:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("snmp: event channel full, dropping event")
	}
}

// createWorkID returns the next monotonic job id, wrapping from 0x7FFF
// back to 1 and never producing 0 or a negative value — matching
// original_source's createWorkId.
func (s *Session) createWorkID() int {
	s.nextJobID++
	if s.nextJobID < 1 {
		s.nextJobID = 1
	} else if s.nextJobID > 0x7FFF {
		s.nextJobID = 1
	}
	return s.nextJobID
}

func (s *Session) addWork(job Job) int {
	id := s.createWorkID()
	if len(s.queue) >= maxQueueDepth {
		s.logger.Warn("snmp: work queue full, dropping job", "jobID", id, "description", job.Description(), "error", ErrQueueFull)
		s.metrics.QueueDrops.Add(1)
		return id
	}
	s.queue = append(s.queue, workItem{id: id, job: job})
	s.startNextWork()
	return id
}

func (s *Session) startNextWork() {
	if s.current != nil || len(s.queue) == 0 {
		return
	}
	item := s.queue[0]
	s.queue = s.queue[1:]
	s.current = &item
	item.job.Start(s)
}

func (s *Session) finishWork() {
	if s.responseTimer != nil {
		s.responseTimer.Stop()
	}
	s.timeoutCnt = 0
	s.requestID = -1
	s.current = nil
}

// complete implements jobRunner.
func (s *Session) complete(values []Value) {
	if s.current == nil {
		return
	}
	id := s.current.id
	s.emit(ResponseEvent{JobID: id, Values: values})
	s.finishWork()
	s.startNextWork()
}

// fail implements jobRunner.
func (s *Session) fail() {
	if s.current == nil {
		return
	}
	id := s.current.id
	s.emit(FailureEvent{JobID: id})
	s.finishWork()
	s.startNextWork()
}

// cancelWork matches original_source's cancelWork: it always routes
// through fail, after resetting the retry/outstanding-request state.
func (s *Session) cancelWork() {
	s.requestID = -1
	s.timeoutCnt = 0
	s.fail()
}

func (s *Session) buildPDU(tag Tag, community string, reqID int, varbinds []Value) Value {
	reqContainer := Sequence(tag,
		Integer(int64(reqID)),
		Integer(0),
		Integer(0),
		Sequence(TagSequence, varbinds...),
	)
	return Sequence(TagSequence,
		Integer(int64(s.protocolVersion)),
		String(community),
		reqContainer,
	)
}

// replaceRequestID rebuilds pdu with a fresh request id, keeping
// error-status, error-index and the varbind list untouched — matching
// original_source's changeRequestId, which discards only the old
// request id.
func replaceRequestID(pdu Value, reqID int) Value {
	reqContainer := pdu.children[2]
	newReqChildren := make([]Value, len(reqContainer.children))
	newReqChildren[0] = Integer(int64(reqID))
	copy(newReqChildren[1:], reqContainer.children[1:])
	newReqContainer := Value{tag: reqContainer.tag, children: newReqChildren}

	newTop := make([]Value, len(pdu.children))
	copy(newTop, pdu.children)
	newTop[2] = newReqContainer
	return Value{tag: pdu.tag, children: newTop}
}

// newRequestID samples a request id in [1, 0x7FFF], resampling until
// it differs from the currently outstanding one, and records it in
// the diagnostic history ring — matching original_source's
// updateRequestId.
func (s *Session) newRequestID() int {
	for {
		n := 1 + rand.Intn(0x7FFF)
		if n != s.requestID {
			s.requestIDHistory = append(s.requestIDHistory, n)
			if len(s.requestIDHistory) > requestIDHistoryDepth {
				s.requestIDHistory = s.requestIDHistory[len(s.requestIDHistory)-requestIDHistoryDepth:]
			}
			return n
		}
	}
}

// startRequest begins a brand-new logical request (not a retry): it
// guards against a request already being outstanding, resets the
// retry counter, and transmits.
func (s *Session) startRequest(tag Tag, community string, varbinds []Value) {
	if s.requestID != -1 {
		s.logger.Error("snmp: refusing to send, a request is already outstanding", "requestID", s.requestID)
		return
	}
	reqID := s.newRequestID()
	pdu := s.buildPDU(tag, community, reqID, varbinds)
	s.requestID = reqID
	s.lastPDU = pdu
	s.timeoutCnt = 0
	s.transmitPDU(pdu)
}

func (s *Session) transmitPDU(pdu Value) {
	buf, err := pdu.Encode()
	if err != nil {
		s.logger.Error("snmp: failed to encode PDU", "error", err)
		s.cancelWork()
		return
	}
	if s.agent == nil {
		s.logger.Error("snmp: no agent address configured", "error", ErrNoAgentConfigured)
		s.cancelWork()
		return
	}
	n, err := s.conn.WriteToUDP(buf, s.agent)
	if err != nil || n != len(buf) {
		s.logger.Error("snmp: failed to write datagram", "error", err, "written", n, "size", len(buf))
		s.cancelWork()
		return
	}
	s.metrics.RequestsSent.Add(1)
	s.requestStart = time.Now()
	s.armResponseTimer()
}

func (s *Session) armResponseTimer() {
	if s.responseTimer == nil {
		s.responseTimer = time.NewTimer(s.responseTimeout)
		return
	}
	if !s.responseTimer.Stop() {
		select {
		case <-s.responseTimer.C:
		default:
		}
	}
	s.responseTimer.Reset(s.responseTimeout)
}

// onResponseTimeout matches original_source's onResponseTimeExpired:
// up to 5 retries (6 datagrams total) before the job fails.
func (s *Session) onResponseTimeout() {
	s.timeoutCnt++
	if s.timeoutCnt > 5 {
		s.logger.Warn("snmp: retries exhausted", "requestID", s.requestID, "error", ErrTimeout)
		s.cancelWork()
		return
	}
	s.metrics.Timeouts.Add(1)
	s.metrics.Retries.Add(1)
	reqID := s.newRequestID()
	s.requestID = reqID
	s.lastPDU = replaceRequestID(s.lastPDU, reqID)
	s.transmitPDU(s.lastPDU)
}

// sendGetRequest implements jobRunner.
func (s *Session) sendGetRequest(oids []OID) {
	varbinds := make([]Value, len(oids))
	for i, oid := range oids {
		varbinds[i] = Sequence(TagSequence, OIDValue(oid), Null())
	}
	s.metrics.GetRequests.Add(1)
	s.metrics.VarbindsSent.Add(int64(len(oids)))
	s.startRequest(TagGetRequest, s.community, varbinds)
}

// sendGetNextRequest implements jobRunner.
func (s *Session) sendGetNextRequest(oid OID) {
	varbind := Sequence(TagSequence, OIDValue(oid), Null())
	s.metrics.GetNextRequests.Add(1)
	s.metrics.VarbindsSent.Add(1)
	s.startRequest(TagGetNextRequest, s.community, []Value{varbind})
}

// sendSetRequest implements jobRunner. community is the per-operation
// community supplied to SetValue, not necessarily the session's
// default.
func (s *Session) sendSetRequest(community string, oid OID, value Value) {
	varbind := Sequence(TagSequence, OIDValue(oid), value)
	s.metrics.SetRequests.Add(1)
	s.metrics.VarbindsSent.Add(1)
	s.startRequest(TagSetRequest, community, []Value{varbind})
}

// onDatagram validates and extracts bindings from one inbound
// datagram, per top-level decoded Value, then delivers exactly one
// Process call to the current job for the whole datagram — matching
// original_source's processIncommingDatagram.
func (s *Session) onDatagram(buf []byte) {
	top := Decode(s.logger, buf)

	var valid []Value
	var errs []*SNMPError
	matched := false

	for _, msg := range top {
		if len(msg.children) != 3 {
			s.logger.Debug("snmp: datagram dropped, wrong field count", "count", len(msg.children))
			continue
		}
		resp := msg.children[2]
		if resp.tag != TagGetResponse {
			s.logger.Debug("snmp: datagram dropped, not a response", "tag", resp.tag.String())
			continue
		}
		if len(resp.children) != 4 {
			s.logger.Debug("snmp: response dropped, wrong field count", "count", len(resp.children))
			continue
		}
		reqIDVal := resp.children[0]
		if reqIDVal.tag != TagInteger {
			s.logger.Debug("snmp: response dropped, request id not INTEGER")
			continue
		}
		reqID, _ := reqIDVal.AsI64()
		if s.requestID == -1 || int(reqID) != s.requestID {
			s.logger.Debug("snmp: response dropped, request id mismatch",
				"got", reqID, "want", s.requestID, "history", s.requestIDHistory)
			continue
		}

		// Matched: clear the outstanding id immediately so a later
		// duplicate of this same datagram is dropped as a mismatch.
		s.requestID = -1
		matched = true

		statusVal, indexVal := resp.children[1], resp.children[2]
		if statusVal.tag != TagInteger || indexVal.tag != TagInteger {
			s.logger.Debug("snmp: response dropped, status/index not INTEGER")
			continue
		}
		status, _ := statusVal.AsI64()
		index, _ := indexVal.AsI64()
		if status != 0 || index != 0 {
			errs = append(errs, NewSNMPError(ErrorStatus(status), int(index)))
			s.metrics.Errors.Add(1)
			continue
		}

		varbindList := resp.children[3]
		if varbindList.tag != TagSequence {
			s.logger.Debug("snmp: response dropped, varbind list not SEQUENCE")
			continue
		}
		for _, binding := range varbindList.children {
			if len(binding.children) != 2 {
				s.logger.Debug("snmp: binding dropped, wrong field count", "count", len(binding.children))
				continue
			}
			oidVal, valueVal := binding.children[0], binding.children[1]
			if oidVal.tag != TagObject {
				s.logger.Debug("snmp: binding dropped, address not OBJECT")
				continue
			}
			oid, ok := oidVal.AsOID()
			if !ok {
				s.logger.Debug("snmp: binding dropped, malformed OID")
				continue
			}
			valueVal.SetAddress(oid)
			valid = append(valid, valueVal)
			s.metrics.VarbindsReceived.Add(1)
		}
	}

	if matched {
		if s.responseTimer != nil {
			s.responseTimer.Stop()
		}
		s.timeoutCnt = 0
		s.metrics.ResponsesReceived.Add(1)
		s.metrics.RequestLatency.ObserveDuration(time.Since(s.requestStart))
	}

	if matched && s.current != nil {
		s.current.job.Process(s, valid, errs)
	}
}
