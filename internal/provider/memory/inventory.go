// Package memory provides in-process inventory and zone backends.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
)

// Inventory keeps instances in memory. Every read returns copies, so a
// caller only observes tag writes after Refresh, as with a real provider.
type Inventory struct {
	mu        sync.RWMutex
	instances map[string]*domain.Instance // ID -> Instance
	currentID string

	// SetTagsErr, when set, is returned by every SetTags call.
	SetTagsErr error
}

// NewInventory creates an inventory whose current instance is currentID.
func NewInventory(currentID string) *Inventory {
	return &Inventory{
		instances: make(map[string]*domain.Instance),
		currentID: currentID,
	}
}

// Put adds or replaces an instance.
func (m *Inventory) Put(inst *domain.Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.instances[inst.ID] = clone(inst)
}

// SetCurrent changes which instance CurrentInstance returns.
func (m *Inventory) SetCurrent(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentID = id
}

// Instance returns a copy of the stored instance.
func (m *Inventory) Instance(id string) (*domain.Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[id]
	if !ok {
		return nil, false
	}
	return clone(inst), true
}

func (m *Inventory) CurrentInstance(_ context.Context) (*domain.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[m.currentID]
	if !ok {
		return nil, fmt.Errorf("instance not found: %s", m.currentID)
	}
	return clone(inst), nil
}

func (m *Inventory) GetTags(_ context.Context, inst *domain.Instance) (domain.TagSet, error) {
	if inst.Tags == nil {
		return domain.TagSet{}, nil
	}
	return inst.Tags.Clone(), nil
}

func (m *Inventory) QueryByTags(_ context.Context, filter domain.TagSet) ([]*domain.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		if inst.Tags.Matches(filter) {
			out = append(out, clone(inst))
		}
	}
	return out, nil
}

func (m *Inventory) SetTags(_ context.Context, inst *domain.Instance, tags domain.TagSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetTagsErr != nil {
		return m.SetTagsErr
	}
	stored, ok := m.instances[inst.ID]
	if !ok {
		return fmt.Errorf("instance not found: %s", inst.ID)
	}
	if stored.Tags == nil {
		stored.Tags = domain.TagSet{}
	}
	stored.Tags.Merge(tags)
	return nil
}

func (m *Inventory) Refresh(_ context.Context, inst *domain.Instance) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.instances[inst.ID]
	if !ok {
		return fmt.Errorf("instance not found: %s", inst.ID)
	}
	*inst = *clone(stored)
	return nil
}

func clone(inst *domain.Instance) *domain.Instance {
	c := *inst
	c.Tags = inst.Tags.Clone()
	return &c
}
