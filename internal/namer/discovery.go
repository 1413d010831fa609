package namer

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
)

// members returns the running instances matching filter, self included.
func (n *Namer) members(ctx context.Context, filter domain.TagSet) ([]*domain.Instance, error) {
	found, err := n.inventory.QueryByTags(ctx, filter.Compact())
	if err != nil {
		return nil, fmt.Errorf("failed to query instances by tags (%s): %w", filter, err)
	}

	running := make([]*domain.Instance, 0, len(found))
	for _, inst := range found {
		if inst.IsRunning() {
			running = append(running, inst)
		}
	}

	n.logger.Debug("discovered instances",
		logger.Stringer("filter", filter),
		logger.Int("found", len(found)),
		logger.Int("running", len(running)))

	return running, nil
}

// peers returns the running instances matching filter, self excluded.
func (n *Namer) peers(ctx context.Context, self *domain.Instance, filter domain.TagSet) ([]*domain.Instance, error) {
	all, err := n.members(ctx, filter)
	if err != nil {
		return nil, err
	}

	peers := all[:0]
	for _, inst := range all {
		if inst.ID != self.ID {
			peers = append(peers, inst)
		}
	}
	return peers, nil
}

func peerNumbers(peers []*domain.Instance) []string {
	numbers := make([]string, 0, len(peers))
	for _, p := range peers {
		numbers = append(numbers, domain.PeerNumber(p))
	}
	return numbers
}

func instanceIDs(instances []*domain.Instance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	return ids
}
