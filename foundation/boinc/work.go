package boinc

import (
	"fmt"
	"time"
)

// Kind represents the type of computation a work unit asks for.
type Kind string

// Set of work unit kinds.
const (
	KindCompile Kind = "compile"
	KindVerify  Kind = "verify"
	KindProcess Kind = "process"
)

// ParseKind validates the string form of a kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCompile, KindVerify, KindProcess:
		return k, nil
	}
	return "", fmt.Errorf("unknown work kind %q", s)
}

// WorkStatus represents where a work unit is in its lifecycle.
type WorkStatus string

// Set of work unit status values. A unit moves from pending to dispatched
// when a node is assigned and to completed when its timer fires.
const (
	StatusPending    WorkStatus = "pending"
	StatusDispatched WorkStatus = "dispatched"
	StatusCompleted  WorkStatus = "completed"
)

// WorkUnit represents a piece of submitted work.
type WorkUnit struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"projectId"`
	Kind          Kind          `json:"kind"`
	Payload       any           `json:"payload,omitempty"`
	Priority      int           `json:"priority"`
	EstimatedTime time.Duration `json:"estimatedTime"`
	TargetNodeID  string        `json:"targetNodeId"`
	Status        WorkStatus    `json:"status"`
	SubmittedAt   time.Time     `json:"submittedAt"`
	CompletedAt   time.Time     `json:"completedAt,omitzero"`
}

// CompileInput is the payload of a distributed compile.
type CompileInput struct {
	SourceCode   string `json:"sourceCode"`
	ContractName string `json:"contractName"`
}

// VerifyInput is the payload of a distributed verification.
type VerifyInput struct {
	ContractAddress string `json:"contractAddress"`
	SourceCode      string `json:"sourceCode"`
}

// Completion is delivered to subscribers when a work unit completes.
type Completion struct {
	WorkID    string `json:"workId"`
	ProjectID string `json:"projectId"`
	NodeID    string `json:"nodeId"`
	Kind      Kind   `json:"kind"`
	Result    string `json:"result"`
}

// Statistics represents a snapshot of the dispatcher.
type Statistics struct {
	TotalProjects  int  `json:"totalProjects"`
	ActiveProjects int  `json:"activeProjects"`
	TotalWork      int  `json:"totalWork"`
	CompletedWork  int  `json:"completedWork"`
	IsConnected    bool `json:"isConnected"`
}

// =============================================================================

// work is the dispatcher's record of a unit plus the machinery used to
// complete it.
type work struct {
	unit  WorkUnit
	seq   uint64
	timer *time.Timer
	done  chan struct{}
}
