package namer

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
	"github.com/MrSnakeDoc/ec2-namer/internal/utils"
)

var errNoZones = errors.New("no DNS zone service configured")

// Reconcile makes rec the only A record under its name: the zone is
// resolved, any existing record is deleted, then rec is created.
//
// The two calls are not atomic. Resolvers see no record between them, and
// two instances reconciling the same name concurrently may interleave.
func (n *Namer) Reconcile(ctx context.Context, rec domain.Record) error {
	if n.zones == nil {
		return errNoZones
	}

	zoneID, err := n.zones.ResolveZoneID(ctx, rec.Zone, rec.Private)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrZoneResolution, rec.Zone, err)
	}

	if err := n.zones.DeleteRecord(ctx, zoneID, rec.Name); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrRecordMutation, rec.Name, err)
	}
	if err := n.zones.CreateRecord(ctx, zoneID, rec); err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrRecordMutation, rec.Name, err)
	}

	n.logger.Info("DNS record created/updated",
		logger.String("zone", rec.Zone),
		logger.String("name", rec.Name),
		logger.Strings("addresses", rec.Addresses))
	return nil
}

// serviceAddresses returns the addresses of the running members that have
// one of the requested kind, ordered by slot number.
func serviceAddresses(members []*domain.Instance, public bool) []string {
	live := make([]*domain.Instance, 0, len(members))
	for _, m := range members {
		if !m.IsRunning() {
			continue
		}
		if _, ok := utils.IPv4(m.Address(public)); !ok {
			continue
		}
		live = append(live, m)
	}

	domain.SortByNumber(live)

	seen := make(map[string]struct{}, len(live))
	addrs := make([]string, 0, len(live))
	for _, m := range live {
		addr, _ := utils.IPv4(m.Address(public))
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}
	return addrs
}
