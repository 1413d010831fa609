package namer

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
	"github.com/MrSnakeDoc/ec2-namer/internal/utils"
)

// routeKind is one side (public or private) of the routing phase.
type routeKind struct {
	public     bool
	zone       string
	label      string
	service    string
	tag        string
	serviceTag string
}

func (k routeKind) String() string {
	if k.public {
		return "public"
	}
	return "private"
}

// ReconcileRoutes publishes the instance and service A records of the
// current instance in its public and private zones, then records the
// names in the instance tags and returns the refreshed tags.
//
// Public and private sides are independent: a failure on one is reported
// after the other has been attempted.
func (n *Namer) ReconcileRoutes(ctx context.Context) (domain.TagSet, error) {
	inst, err := n.inventory.CurrentInstance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current instance: %w", err)
	}
	tags, err := n.inventory.GetTags(ctx, inst)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags of %s: %w", inst.ID, err)
	}

	n.logger.Info("ensuring routes for instance",
		logger.String("instance", inst.ID),
		logger.Stringer("tags", tags))

	partition, err := domain.PartitionFromTags(tags)
	if err != nil {
		return nil, err
	}
	zones := domain.ZonesFromTags(tags)
	names := domain.DeriveHostnamesFromTags(tags)

	members, membersErr := n.members(ctx, partition.Filter(""))

	kinds := []routeKind{
		{
			public:     true,
			zone:       zones.Public,
			label:      names.Public,
			service:    names.Service,
			tag:        domain.TagPublicDNS,
			serviceTag: domain.TagPublicServiceDNS,
		},
		{
			public:     false,
			zone:       zones.Private,
			label:      names.Private,
			service:    names.PrivateService,
			tag:        domain.TagPrivateDNS,
			serviceTag: domain.TagPrivateServiceDNS,
		},
	}

	var errs error
	if membersErr != nil {
		errs = multierr.Append(errs, membersErr)
	}
	written := domain.TagSet{}
	for _, kind := range kinds {
		if kind.zone == "" {
			continue
		}

		if addr, ok := utils.IPv4(inst.Address(kind.public)); ok {
			rec := domain.NewARecord(kind.zone, kind.label, []string{addr})
			rec.Private = !kind.public
			if err := n.Reconcile(ctx, rec); err != nil {
				errs = multierr.Append(errs, err)
			} else {
				written[kind.tag] = rec.Name
			}
		} else {
			n.logger.Warn("instance has no address for zone, skipping instance record",
				logger.String("instance", inst.ID),
				logger.String("kind", kind.String()),
				logger.String("zone", kind.zone))
		}

		if membersErr != nil {
			continue
		}
		addrs := serviceAddresses(members, kind.public)
		if len(addrs) == 0 {
			n.logger.Warn("no live member address for service record",
				logger.String("kind", kind.String()),
				logger.String("service", kind.service))
			continue
		}
		rec := domain.NewARecord(kind.zone, kind.service, addrs)
		rec.Private = !kind.public
		if err := n.Reconcile(ctx, rec); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			written[kind.serviceTag] = rec.Name
		}
	}

	if len(written) > 0 {
		if err := n.inventory.SetTags(ctx, inst, written); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: instance %s: %w", domain.ErrTagWrite, inst.ID, err))
		} else if err := n.inventory.Refresh(ctx, inst); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to refresh instance %s: %w", inst.ID, err))
		}
	}

	refreshed, err := n.inventory.GetTags(ctx, inst)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to get tags of %s: %w", inst.ID, err))
		return tags, errs
	}
	return refreshed, errs
}
