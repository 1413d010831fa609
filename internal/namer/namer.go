// Package namer assigns a slot number and hostname to the current instance
// and publishes its DNS records.
//
// State lives only in instance tags. Allocation is a read-decide-write
// against peer tags with no lock: two instances booting together can pick
// the same slot, and the next run of either one detects the clash and moves.
// Backends that can claim a slot conditionally (SlotClaimer) close that
// window.
package namer

import (
	"context"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
)

// Inventory is the instance metadata and tag service.
type Inventory interface {
	// CurrentInstance returns the instance this process runs on.
	CurrentInstance(ctx context.Context) (*domain.Instance, error)

	// GetTags returns the tags of inst as last read from the provider.
	GetTags(ctx context.Context, inst *domain.Instance) (domain.TagSet, error)

	// QueryByTags returns every instance whose tags match all keys of
	// filter exactly. Empty filter values are not part of the query.
	QueryByTags(ctx context.Context, filter domain.TagSet) ([]*domain.Instance, error)

	// SetTags merges tags into the instance tags in a single call.
	SetTags(ctx context.Context, inst *domain.Instance, tags domain.TagSet) error

	// Refresh re-reads provider state into inst.
	Refresh(ctx context.Context, inst *domain.Instance) error
}

// Zones is the DNS zone record service.
type Zones interface {
	// ResolveZoneID maps a zone name to the provider zone identifier.
	// private picks between a public and a private zone of the same name;
	// a zone name held by a single zone resolves to it either way.
	ResolveZoneID(ctx context.Context, zone string, private bool) (string, error)

	// DeleteRecord removes the A record named fqdn. A missing record is not
	// an error.
	DeleteRecord(ctx context.Context, zoneID, fqdn string) error

	// CreateRecord creates rec in the zone.
	CreateRecord(ctx context.Context, zoneID string, rec domain.Record) error
}

// SlotClaimer is implemented by inventories that can reserve a slot
// atomically. ClaimSlot returns false when another instance holds it.
type SlotClaimer interface {
	ClaimSlot(ctx context.Context, partition domain.Partition, number, instanceID string) (bool, error)
}

// Namer runs the identity and routing phases for one instance.
type Namer struct {
	inventory Inventory
	zones     Zones
	logger    logger.Logger
}

// New creates a Namer. zones may be nil when only AssignIdentity is used.
func New(inventory Inventory, zones Zones, log logger.Logger) *Namer {
	return &Namer{
		inventory: inventory,
		zones:     zones,
		logger:    log,
	}
}
