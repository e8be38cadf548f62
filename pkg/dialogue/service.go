package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/taleweave/internal/logging"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/session"
	"github.com/google/uuid"
)

// Collection is the store collection holding every tree, keyed by character id.
const Collection = "dialogue_trees"

// AdvancePolicy decides whether AddNode moves the current pointer to the new node.
type AdvancePolicy int

const (
	// AdvanceAuto advances only when the parent is the current node.
	AdvanceAuto AdvancePolicy = iota
	AdvanceAlways
	AdvanceNever
)

// DeletePolicy decides what happens to the descendants of a deleted node.
type DeletePolicy int

const (
	// DeleteOrphan removes only the node; its descendants stay in the tree
	// but no longer reach the root.
	DeleteOrphan DeletePolicy = iota
	// DeleteCascade removes the node and every descendant.
	DeleteCascade
)

func (p DeletePolicy) String() string {
	if p == DeleteCascade {
		return "cascade"
	}
	return "orphan"
}

// ParseDeletePolicy maps "orphan"/"cascade" (or "") to a policy.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch s {
	case "", "orphan":
		return DeleteOrphan, nil
	case "cascade":
		return DeleteCascade, nil
	default:
		return DeleteOrphan, &domain.ValidationError{Field: "policy", Reason: fmt.Sprintf("unknown delete policy %q", s)}
	}
}

// AddNodeParams describes a new turn.
type AddNodeParams struct {
	ParentNodeID      string
	UserInput         string
	AssistantResponse string
	FullResponse      string
	Summary           string
	ParsedContent     map[string]any
	// NodeID is generated when empty.
	NodeID string
	// BranchIncrement is added to the tree's branch counter; nil means 1.
	BranchIncrement *int
	AdvanceCurrent  AdvancePolicy
}

// NodePatch lists the node fields UpdateNode may change. Nil fields are kept.
type NodePatch struct {
	UserInput         *string
	AssistantResponse *string
	FullResponse      *string
	ResponseSummary   *string
	// ParsedContent keys are merged into the existing map.
	ParsedContent map[string]any
}

type trees map[string]*domain.DialogueTree

// Service manages dialogue trees.
type Service struct {
	sessions *session.Manager
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides node id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a dialogue service over the session manager's store.
func NewService(sessions *session.Manager, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		logger:   logging.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// update runs fn on the character's tree under the collection lock.
// fn receives nil when the character has no tree.
func (s *Service) update(ctx context.Context, characterID string, fn func(all trees, tree *domain.DialogueTree) error) error {
	return session.Update(ctx, s.sessions, Collection, func(all *trees) error {
		if *all == nil {
			*all = make(trees)
		}
		return fn(*all, (*all)[characterID])
	})
}

// GetTree returns the character's tree.
func (s *Service) GetTree(ctx context.Context, characterID string) (*domain.DialogueTree, error) {
	all, err := session.Read[trees](ctx, s.sessions, Collection)
	if err != nil {
		return nil, err
	}
	tree, ok := all[characterID]
	if !ok || tree == nil {
		return nil, fmt.Errorf("dialogue tree for character %q: %w", characterID, domain.ErrNotFound)
	}
	return tree, nil
}

// CreateTree allocates an empty tree pointing at the root.
func (s *Service) CreateTree(ctx context.Context, characterID string) (*domain.DialogueTree, error) {
	if characterID == "" {
		return nil, &domain.ValidationError{Field: "character_id", Reason: "required field is empty"}
	}

	var created *domain.DialogueTree
	err := s.update(ctx, characterID, func(all trees, tree *domain.DialogueTree) error {
		if tree != nil {
			return fmt.Errorf("dialogue tree for character %q: %w", characterID, domain.ErrAlreadyExists)
		}
		created = domain.NewDialogueTree(s.newID(), characterID, s.now())
		all[characterID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Dialogue tree created", "character_id", characterID, "tree_id", created.ID)
	return created, nil
}

// AddNode appends a turn to the character's tree, creating the tree if needed.
func (s *Service) AddNode(ctx context.Context, characterID string, p AddNodeParams) (*domain.DialogueNode, error) {
	if characterID == "" {
		return nil, &domain.ValidationError{Field: "character_id", Reason: "required field is empty"}
	}
	parentID := p.ParentNodeID
	if parentID == "" {
		parentID = domain.RootNodeID
	}
	increment := 1
	if p.BranchIncrement != nil {
		increment = *p.BranchIncrement
	}

	var added domain.DialogueNode
	err := s.update(ctx, characterID, func(all trees, tree *domain.DialogueTree) error {
		if tree == nil {
			tree = domain.NewDialogueTree(s.newID(), characterID, s.now())
			all[characterID] = tree
		}

		if parentID != domain.RootNodeID && !tree.Has(parentID) {
			return fmt.Errorf("parent node %q: %w", parentID, domain.ErrNotFound)
		}

		nodeID := p.NodeID
		if nodeID == "" {
			nodeID = s.newID()
		}
		if nodeID == domain.RootNodeID {
			return &domain.ValidationError{Field: "node_id", Reason: "\"root\" is reserved"}
		}
		if tree.Has(nodeID) {
			return fmt.Errorf("node %q: %w", nodeID, domain.ErrConflict)
		}

		parsed := p.ParsedContent
		if parsed == nil {
			parsed = map[string]any{}
		}

		now := s.now()
		tree.CurrentBranchID += increment
		added = domain.DialogueNode{
			NodeID:            nodeID,
			ParentNodeID:      parentID,
			BranchID:          tree.CurrentBranchID,
			UserInput:         p.UserInput,
			AssistantResponse: p.AssistantResponse,
			FullResponse:      p.FullResponse,
			ResponseSummary:   p.Summary,
			ParsedContent:     parsed,
			CreatedAt:         now,
		}
		tree.Nodes = append(tree.Nodes, added)

		switch p.AdvanceCurrent {
		case AdvanceAlways:
			tree.CurrentNodeID = nodeID
		case AdvanceAuto:
			if parentID == tree.CurrentNodeID {
				tree.CurrentNodeID = nodeID
			}
		}
		tree.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Dialogue node added", "character_id", characterID, "node_id", added.NodeID, "parent", parentID)
	return &added, nil
}

// PathToNode returns the nodes from the root down to nodeID.
func (s *Service) PathToNode(ctx context.Context, characterID, nodeID string) ([]domain.DialogueNode, error) {
	tree, err := s.GetTree(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return tree.Path(nodeID)
}

// CurrentPath returns the path to the tree's current node.
func (s *Service) CurrentPath(ctx context.Context, characterID string) ([]domain.DialogueNode, error) {
	tree, err := s.GetTree(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return tree.Path(tree.CurrentNodeID)
}

// SwitchBranch moves the current pointer to nodeID without touching any node
// and returns the path to it. "root" is accepted.
func (s *Service) SwitchBranch(ctx context.Context, characterID, nodeID string) ([]domain.DialogueNode, error) {
	var path []domain.DialogueNode
	err := s.update(ctx, characterID, func(all trees, tree *domain.DialogueTree) error {
		if tree == nil {
			return fmt.Errorf("dialogue tree for character %q: %w", characterID, domain.ErrNotFound)
		}
		if nodeID != domain.RootNodeID && !tree.Has(nodeID) {
			return fmt.Errorf("node %q: %w", nodeID, domain.ErrNotFound)
		}

		var err error
		path, err = tree.Path(nodeID)
		if err != nil {
			return err
		}

		tree.CurrentNodeID = nodeID
		tree.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return path, nil
}

// DeleteNode removes nodeID (and, with DeleteCascade, its descendants).
// When the current pointer ends up on a removed node it moves to the nearest
// surviving ancestor, or to "root". It returns the path to the current node.
func (s *Service) DeleteNode(ctx context.Context, characterID, nodeID string, policy DeletePolicy) ([]domain.DialogueNode, error) {
	var path []domain.DialogueNode
	var removedCount int
	err := s.update(ctx, characterID, func(all trees, tree *domain.DialogueTree) error {
		if tree == nil {
			return fmt.Errorf("dialogue tree for character %q: %w", characterID, domain.ErrNotFound)
		}
		if !tree.Has(nodeID) {
			return fmt.Errorf("node %q: %w", nodeID, domain.ErrNotFound)
		}

		doomed := map[string]bool{nodeID: true}
		if policy == DeleteCascade {
			for _, id := range tree.Descendants(nodeID) {
				doomed[id] = true
			}
		}

		removed := make(map[string]domain.DialogueNode, len(doomed))
		kept := tree.Nodes[:0:0]
		for _, n := range tree.Nodes {
			if doomed[n.NodeID] {
				removed[n.NodeID] = n
				continue
			}
			kept = append(kept, n)
		}
		tree.Nodes = kept
		removedCount = len(removed)

		if tree.CurrentNodeID != domain.RootNodeID {
			if _, err := tree.Path(tree.CurrentNodeID); err != nil {
				// The pointer sits on, or below, a removed node.
				tree.CurrentNodeID = nearestReachable(tree, tree.CurrentNodeID, removed)
			}
		}
		tree.UpdatedAt = s.now()

		var err error
		path, err = tree.Path(tree.CurrentNodeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Dialogue node deleted", "character_id", characterID, "node_id", nodeID, "policy", policy.String(), "removed", removedCount)
	return path, nil
}

// nearestReachable walks up from nodeID (through removed nodes when needed)
// to the first node that still reaches the root.
func nearestReachable(tree *domain.DialogueTree, nodeID string, removed map[string]domain.DialogueNode) string {
	visited := make(map[string]bool)
	current := nodeID
	for current != domain.RootNodeID && !visited[current] {
		visited[current] = true

		candidate := tree.NearestSurvivingAncestor(current, removed)
		if candidate == domain.RootNodeID {
			return domain.RootNodeID
		}
		if _, err := tree.Path(candidate); err == nil {
			return candidate
		}
		// candidate survived but hangs below a removed node; keep climbing.
		n := tree.Find(candidate)
		if n == nil {
			return domain.RootNodeID
		}
		current = n.ParentNodeID
	}
	return domain.RootNodeID
}

// UpdateNode merges patch into nodeID. Identity fields never change.
func (s *Service) UpdateNode(ctx context.Context, characterID, nodeID string, patch NodePatch) (*domain.DialogueNode, error) {
	var updated domain.DialogueNode
	err := s.update(ctx, characterID, func(all trees, tree *domain.DialogueTree) error {
		if tree == nil {
			return fmt.Errorf("dialogue tree for character %q: %w", characterID, domain.ErrNotFound)
		}
		node := tree.Find(nodeID)
		if node == nil {
			return fmt.Errorf("node %q: %w", nodeID, domain.ErrNotFound)
		}

		if patch.UserInput != nil {
			node.UserInput = *patch.UserInput
		}
		if patch.AssistantResponse != nil {
			node.AssistantResponse = *patch.AssistantResponse
		}
		if patch.FullResponse != nil {
			node.FullResponse = *patch.FullResponse
		}
		if patch.ResponseSummary != nil {
			node.ResponseSummary = *patch.ResponseSummary
		}
		if len(patch.ParsedContent) > 0 {
			if node.ParsedContent == nil {
				node.ParsedContent = make(map[string]any, len(patch.ParsedContent))
			}
			for k, v := range patch.ParsedContent {
				node.ParsedContent[k] = v
			}
		}

		tree.UpdatedAt = s.now()
		updated = *node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTree removes the character's tree. A missing tree is not an error.
func (s *Service) DeleteTree(ctx context.Context, characterID string) error {
	return s.update(ctx, characterID, func(all trees, tree *domain.DialogueTree) error {
		delete(all, characterID)
		return nil
	})
}

// Characters returns the ids of characters that have a tree.
func (s *Service) Characters(ctx context.Context) ([]string, error) {
	all, err := session.Read[trees](ctx, s.sessions, Collection)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	return ids, nil
}
