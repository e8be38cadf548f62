package workflow

import (
	"sync"

	"github.com/aretw0/taleweave/pkg/domain"
)

// NodeContext is the per-run scratchpad shared by all nodes of one run.
// It holds an append-only message log and namespaced diagnostic metadata.
type NodeContext struct {
	mu       sync.RWMutex
	messages []domain.Message
	metadata map[string]any
}

// NewNodeContext returns an empty context.
func NewNodeContext() *NodeContext {
	return &NodeContext{metadata: make(map[string]any)}
}

// AddMessage appends a role-tagged entry to the message log.
func (c *NodeContext) AddMessage(role domain.Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, domain.Message{Role: role, Content: content})
}

// Messages returns a copy of the message log.
func (c *NodeContext) Messages() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Message(nil), c.messages...)
}

// SetMetadata stores v under "<nodeID>_<purpose>".
func (c *NodeContext) SetMetadata(nodeID, purpose string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[nodeID+"_"+purpose] = v
}

// Metadata returns a snapshot of the metadata map.
func (c *NodeContext) Metadata() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}
