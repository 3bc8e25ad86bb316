package network

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// MaxLoad is the load at and above which a node no longer accepts tasks.
const MaxLoad = 0.8

// Task represents a unit of computation handed to a node.
type Task struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Capability   string `json:"capability"`
	Payload      any    `json:"payload,omitempty"`
	Priority     int    `json:"priority"`
	TargetNodeID string `json:"targetNodeId"`
}

// DistributeTask selects the least loaded online node with the capability
// the task requires, records the task as active and returns it with its id
// and target node set. An empty capability falls back to the task kind.
func (c *Core) DistributeTask(task Task) (Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateReady {
		return Task{}, ErrNotInitialized
	}

	if task.Capability == "" {
		task.Capability = task.Kind
	}

	node, err := c.selectNode(task.Capability)
	if err != nil {
		return Task{}, err
	}

	if task.ID == "" {
		task.ID = "task-" + uuid.NewString()
	}
	task.TargetNodeID = node.ID

	c.tasks[task.ID] = task

	c.evHandler("network: DistributeTask: task[%s] kind[%s] node[%s] load[%.2f]", task.ID, task.Kind, node.ID, node.Load)

	return task, nil
}

// CompleteTask removes the task from the set of active tasks.
func (c *Core) CompleteTask(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tasks, id)
}

// SelectNode returns the node DistributeTask would choose for the
// capability without recording anything.
func (c *Core) SelectNode(capability string) (Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != stateReady {
		return Node{}, ErrNotInitialized
	}

	return c.selectNode(capability)
}

// selectNode filters the registry to online nodes with the capability and
// spare load, then picks the lowest load. Ties keep registry order.
func (c *Core) selectNode(capability string) (Node, error) {
	var candidates []Node
	for _, node := range c.registry.Copy() {
		if node.Status == StatusOnline && node.Has(capability) && node.Load < MaxLoad {
			candidates = append(candidates, node)
		}
	}

	if len(candidates) == 0 {
		return Node{}, fmt.Errorf("capability %q: %w", capability, ErrNoAvailableNode)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Load < candidates[j].Load
	})

	return candidates[0], nil
}
