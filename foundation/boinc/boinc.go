// Package boinc implements the work submission layer on top of the
// decentralized core. Work is assigned to a node when it is submitted and
// completes asynchronously once its estimated time has passed.
package boinc

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cloutcontracts/cloutnet/foundation/network"
	"github.com/google/uuid"
)

// Set of error conditions raised by the dispatcher.
var (
	ErrNotConnected = errors.New("boinc not connected")
	ErrWorkNotFound = errors.New("work unit not found")
)

// Default policy values for the convenience wrappers.
const (
	DefaultCompilePriority = 5
	DefaultCompileDuration = 3 * time.Second
	DefaultVerifyPriority  = 3
	DefaultVerifyDuration  = 5 * time.Second
)

// subscriberBuffer is the number of completions a subscriber can fall
// behind before new completions are dropped for it.
const subscriberBuffer = 100

// EventHandler defines a function that is called when events
// occur in the processing of work.
type EventHandler func(v string, args ...any)

// Distributor represents the behavior the dispatcher needs from the
// decentralized core to place work on nodes.
type Distributor interface {
	DistributeTask(task network.Task) (network.Task, error)
	CompleteTask(id string)
	Node(id string) (network.Node, bool)
	ReportLoad(nodeID string, load float64) error
}

// Config represents the configuration required to construct the manager.
type Config struct {
	Core            Distributor
	Capability      string
	CompilePriority int
	CompileDuration time.Duration
	VerifyPriority  int
	VerifyDuration  time.Duration
	LoadPerWork     float64
	EvHandler       EventHandler
}

// =============================================================================

// Manager queues work, hands it to the core for node selection and resolves
// it when its timer fires.
type Manager struct {
	core            Distributor
	capability      string
	compilePriority int
	compileDuration time.Duration
	verifyPriority  int
	verifyDuration  time.Duration
	loadPerWork     float64
	evHandler       EventHandler

	mu        sync.RWMutex
	connected bool
	projects  map[string]*Project
	order     []string
	seq       uint64
	work      map[string]*work
	subs      map[string]chan Completion
}

// New constructs a manager connected to the core and registers the
// default project.
func New(cfg Config) (*Manager, error) {
	if cfg.Core == nil {
		return nil, errors.New("core is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Capability == "" {
		cfg.Capability = network.CapabilityCompute
	}
	if cfg.CompilePriority == 0 {
		cfg.CompilePriority = DefaultCompilePriority
	}
	if cfg.CompileDuration <= 0 {
		cfg.CompileDuration = DefaultCompileDuration
	}
	if cfg.VerifyPriority == 0 {
		cfg.VerifyPriority = DefaultVerifyPriority
	}
	if cfg.VerifyDuration <= 0 {
		cfg.VerifyDuration = DefaultVerifyDuration
	}

	project := defaultProject()

	m := Manager{
		core:            cfg.Core,
		capability:      cfg.Capability,
		compilePriority: cfg.CompilePriority,
		compileDuration: cfg.CompileDuration,
		verifyPriority:  cfg.VerifyPriority,
		verifyDuration:  cfg.VerifyDuration,
		loadPerWork:     cfg.LoadPerWork,
		evHandler:       ev,
		connected:       true,
		projects:        map[string]*Project{project.ID: &project},
		order:           []string{project.ID},
		work:            make(map[string]*work),
		subs:            make(map[string]chan Completion),
	}

	ev("boinc: initialized: project[%s]", project.ID)

	return &m, nil
}

// Shutdown stops every outstanding completion timer, closes all
// subscriptions and disconnects the manager. Work that has not completed
// stays dispatched.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evHandler("boinc: shutdown: started")
	defer m.evHandler("boinc: shutdown: completed")

	for _, w := range m.work {
		if w.timer != nil {
			w.timer.Stop()
		}
	}

	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}

	m.connected = false
}

// SubmitWork records the work, assigns it to a node and arms its
// completion timer. It returns as soon as the work is dispatched. A node
// selection failure is returned to the caller and nothing is recorded.
func (m *Manager) SubmitWork(ctx context.Context, kind Kind, payload any, priority int, estimated time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := ParseKind(string(kind)); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return "", ErrNotConnected
	}

	w := work{
		unit: WorkUnit{
			ID:            "work-" + uuid.NewString(),
			ProjectID:     DefaultProjectID,
			Kind:          kind,
			Payload:       payload,
			Priority:      priority,
			EstimatedTime: estimated,
			Status:        StatusPending,
			SubmittedAt:   time.Now().UTC(),
		},
		done: make(chan struct{}),
	}
	m.seq++
	w.seq = m.seq
	m.work[w.unit.ID] = &w

	m.evHandler("boinc: SubmitWork: work[%s] kind[%s] priority[%d]", w.unit.ID, kind, priority)

	task, err := m.core.DistributeTask(network.Task{
		ID:         w.unit.ID,
		Kind:       string(kind),
		Capability: m.capability,
		Payload:    payload,
		Priority:   priority,
	})
	if err != nil {
		delete(m.work, w.unit.ID)
		return "", fmt.Errorf("distributing work: %w", err)
	}

	w.unit.TargetNodeID = task.TargetNodeID
	w.unit.Status = StatusDispatched
	m.adjustLoad(task.TargetNodeID, m.loadPerWork)

	m.evHandler("boinc: SubmitWork: work[%s] dispatched to node[%s]", w.unit.ID, task.TargetNodeID)

	id := w.unit.ID
	w.timer = time.AfterFunc(estimated, func() {
		m.complete(id)
	})

	return id, nil
}

// DistributedCompile submits a compile of the contract source using the
// configured compile priority and duration.
func (m *Manager) DistributedCompile(ctx context.Context, sourceCode string, contractName string) (string, error) {
	input := CompileInput{
		SourceCode:   sourceCode,
		ContractName: contractName,
	}

	return m.SubmitWork(ctx, KindCompile, input, m.compilePriority, m.compileDuration)
}

// DistributedVerify submits a verification of the deployed contract using
// the configured verify priority and duration.
func (m *Manager) DistributedVerify(ctx context.Context, contractAddress string, sourceCode string) (string, error) {
	input := VerifyInput{
		ContractAddress: contractAddress,
		SourceCode:      sourceCode,
	}

	return m.SubmitWork(ctx, KindVerify, input, m.verifyPriority, m.verifyDuration)
}

// Work returns a copy of the work unit for status polling.
func (m *Manager) Work(id string) (WorkUnit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, exists := m.work[id]
	if !exists {
		return WorkUnit{}, fmt.Errorf("work %q: %w", id, ErrWorkNotFound)
	}

	return w.unit, nil
}

// Done returns a channel that is closed when the work unit completes.
func (m *Manager) Done(id string) (<-chan struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, exists := m.work[id]
	if !exists {
		return nil, fmt.Errorf("work %q: %w", id, ErrWorkNotFound)
	}

	return w.done, nil
}

// Wait blocks until the work unit completes or the context is done.
func (m *Manager) Wait(ctx context.Context, id string) (WorkUnit, error) {
	done, err := m.Done(id)
	if err != nil {
		return WorkUnit{}, err
	}

	select {
	case <-done:
		return m.Work(id)
	case <-ctx.Done():
		return WorkUnit{}, ctx.Err()
	}
}

// Subscribe takes a unique id and returns a channel that receives every
// completion from now on. Completions are dropped for a subscriber that
// falls too far behind.
func (m *Manager) Subscribe(id string) <-chan Completion {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, exists := m.subs[id]; exists {
		return ch
	}

	ch := make(chan Completion, subscriberBuffer)
	if !m.connected {
		close(ch)
		return ch
	}

	m.subs[id] = ch
	return ch
}

// Unsubscribe closes and removes the subscription for the id.
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, exists := m.subs[id]; exists {
		delete(m.subs, id)
		close(ch)
	}
}

// Statistics returns a snapshot of the dispatcher.
func (m *Manager) Statistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Statistics{
		TotalProjects: len(m.projects),
		TotalWork:     len(m.work),
		IsConnected:   m.connected,
	}

	for _, p := range m.projects {
		if p.Status == ProjectActive {
			stats.ActiveProjects++
		}
	}

	for _, w := range m.work {
		if w.unit.Status == StatusCompleted {
			stats.CompletedWork++
		}
	}

	return stats
}

// Projects returns the registered projects.
func (m *Manager) Projects() []Project {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := make([]Project, 0, len(m.order))
	for _, id := range m.order {
		projects = append(projects, *m.projects[id])
	}

	return projects
}

// =============================================================================

// complete is run by the completion timer. A unit is completed at most
// once.
func (m *Manager) complete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, exists := m.work[id]
	if !exists || w.unit.Status == StatusCompleted {
		return
	}

	w.unit.Status = StatusCompleted
	w.unit.CompletedAt = time.Now().UTC()
	close(w.done)

	if p, exists := m.projects[w.unit.ProjectID]; exists {
		p.Progress++
	}

	m.core.CompleteTask(id)
	m.adjustLoad(w.unit.TargetNodeID, -m.loadPerWork)

	c := Completion{
		WorkID:    id,
		ProjectID: w.unit.ProjectID,
		NodeID:    w.unit.TargetNodeID,
		Kind:      w.unit.Kind,
		Result:    "success",
	}

	for _, ch := range m.subs {
		select {
		case ch <- c:
		default:
		}
	}

	m.evHandler("boinc: work:completed: work[%s] node[%s]", id, w.unit.TargetNodeID)
}

// adjustLoad reports the node's load moved by delta.
func (m *Manager) adjustLoad(nodeID string, delta float64) {
	if delta == 0 {
		return
	}

	node, exists := m.core.Node(nodeID)
	if !exists {
		return
	}

	if err := m.core.ReportLoad(nodeID, node.Load+delta); err != nil {
		m.evHandler("boinc: adjustLoad: node[%s]: ERROR: %s", nodeID, err)
	}
}

// List returns every work unit in the order it was submitted.
func (m *Manager) List() []WorkUnit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ws := make([]*work, 0, len(m.work))
	for _, w := range m.work {
		ws = append(ws, w)
	}

	slices.SortFunc(ws, func(a, b *work) int {
		return cmp.Compare(a.seq, b.seq)
	})

	units := make([]WorkUnit, len(ws))
	for i, w := range ws {
		units[i] = w.unit
	}

	return units
}
