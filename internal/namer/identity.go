package namer

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
)

// Identity is the result of AssignIdentity.
type Identity struct {
	// Changed is true when new identity tags were written.
	Changed bool

	InstanceID string
	Number     string
	Hostnames  domain.Hostnames
}

// PrivateHostname is the single-label hostname for the OS.
func (id Identity) PrivateHostname() string {
	return id.Hostnames.Private
}

// AssignIdentity gives the current instance a slot number that no other
// running instance of its partition holds, and tags it with the derived
// hostnames. An instance that is already named and uncontested is left
// untouched.
func (n *Namer) AssignIdentity(ctx context.Context) (Identity, error) {
	inst, err := n.inventory.CurrentInstance(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get current instance: %w", err)
	}
	tags, err := n.inventory.GetTags(ctx, inst)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get tags of %s: %w", inst.ID, err)
	}

	log := n.logger.With(logger.String("instance", inst.ID))
	log.Info("checking instance identity tags", logger.Stringer("tags", tags))

	partition, err := domain.PartitionFromTags(tags)
	if err != nil {
		return Identity{}, err
	}

	current := domain.NormalizeNumber(tags.Get(domain.TagNumber, domain.DefaultNumber))
	contenders, err := n.peers(ctx, inst, partition.Filter(current))
	if err != nil {
		return Identity{}, err
	}

	reassign := domain.NeedsReassignment(tags, len(contenders))
	var occupied []string
	if reassign {
		log.Warn("instance identity needs to be (re)assigned",
			logger.String("number", current),
			logger.Int("contenders", len(contenders)),
			logger.Strings("contender_ids", instanceIDs(contenders)))

		group, err := n.peers(ctx, inst, partition.Filter(""))
		if err != nil {
			return Identity{}, err
		}
		occupied = peerNumbers(group)
	}

	alloc, err := n.allocate(ctx, inst, partition, current, occupied, reassign)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{
		Changed:    alloc.Reassigned,
		InstanceID: inst.ID,
		Number:     alloc.Number,
		Hostnames: domain.DeriveHostnames(
			partition.Group,
			alloc.Number,
			partition.Environment,
			tags.Get(domain.TagServiceName, ""),
			domain.ZonesFromTags(tags),
		),
	}
	if !alloc.Reassigned {
		log.Info("instance identity is up to date", logger.String("number", id.Number))
		return id, nil
	}

	if err := n.writeIdentity(ctx, inst, id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// allocate runs the allocator. When the inventory can claim slots, a chosen
// number is claimed before it is used and a lost claim triggers a rescan
// with that number marked occupied.
func (n *Namer) allocate(
	ctx context.Context,
	inst *domain.Instance,
	partition domain.Partition,
	current string,
	occupied []string,
	reassign bool,
) (domain.Allocation, error) {
	claimer, canClaim := n.inventory.(SlotClaimer)

	for {
		alloc, err := domain.Allocate(current, occupied, reassign)
		if err != nil {
			return domain.Allocation{}, err
		}
		if !alloc.Reassigned || !canClaim {
			return alloc, nil
		}

		claimed, err := claimer.ClaimSlot(ctx, partition, alloc.Number, inst.ID)
		if err != nil {
			return domain.Allocation{}, fmt.Errorf("failed to claim slot %s: %w", alloc.Number, err)
		}
		if claimed {
			return alloc, nil
		}

		n.logger.Warn("slot claimed by another instance, rescanning",
			logger.String("instance", inst.ID),
			logger.String("number", alloc.Number))
		occupied = append(occupied, alloc.Number)
	}
}

// writeIdentity stores the identity tags in a single call and refreshes the
// instance so later reads see them.
func (n *Namer) writeIdentity(ctx context.Context, inst *domain.Instance, id Identity) error {
	tags := domain.TagSet{
		domain.TagNumber:          id.Number,
		domain.TagHostname:        id.Hostnames.Private,
		domain.TagPublicHostname:  id.Hostnames.Public,
		domain.TagPrivateHostname: id.Hostnames.Private,
		domain.TagName:            id.Hostnames.Name,
		domain.TagURL:             id.Hostnames.Name,
	}

	n.logger.Info("writing instance identity tags",
		logger.String("instance", inst.ID),
		logger.Stringer("tags", tags))

	if err := n.inventory.SetTags(ctx, inst, tags); err != nil {
		return fmt.Errorf("%w: instance %s: %w", domain.ErrTagWrite, inst.ID, err)
	}
	if err := n.inventory.Refresh(ctx, inst); err != nil {
		return fmt.Errorf("failed to refresh instance %s: %w", inst.ID, err)
	}

	n.logger.Info("instance identity updated",
		logger.String("instance", inst.ID),
		logger.String("hostname", id.Hostnames.Private))
	return nil
}
