// Package redis stores the instance inventory and DNS zones in Redis, for
// fleets that have no cloud inventory. Zones use the CoreDNS redis plugin
// layout so a CoreDNS server can answer for them directly.
//
// The inventory does not discover instances. The process that provisions
// the fleet calls Register for each instance, with its state and addresses,
// before ec2-namer runs on it; ec2-namer itself only reads those hashes and
// writes tags.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
)

// ErrInstanceNotFound is returned when an instance has no hash.
var ErrInstanceNotFound = errors.New("instance not found")

// DefaultClaimTTL bounds how long a slot claim outlives the run that made it.
const DefaultClaimTTL = 10 * time.Minute

// Inventory is a Redis-backed instance inventory.
type Inventory struct {
	client    *redis.Client
	keys      Keys
	currentID string
	claimTTL  time.Duration
}

// InventoryOptions configures an Inventory.
type InventoryOptions struct {
	KeyPrefix  string        // defaults to DefaultKeyPrefix
	InstanceID string        // ID of the instance this process runs on
	ClaimTTL   time.Duration // defaults to DefaultClaimTTL
}

// NewInventory creates a Redis inventory.
func NewInventory(client *redis.Client, opts InventoryOptions) *Inventory {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = DefaultClaimTTL
	}
	return &Inventory{
		client:    client,
		keys:      Keys{Prefix: opts.KeyPrefix},
		currentID: opts.InstanceID,
		claimTTL:  opts.ClaimTTL,
	}
}

// Register stores an instance with its tags, replacing previous tags.
func (s *Inventory) Register(ctx context.Context, inst *domain.Instance) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.keys.InstanceKey(inst.ID), map[string]interface{}{
		fieldState:          string(inst.State),
		fieldPublicAddress:  inst.PublicAddress,
		fieldPrivateAddress: inst.PrivateAddress,
	})
	pipe.Del(ctx, s.keys.TagsKey(inst.ID))
	if tags := inst.Tags.Compact(); len(tags) > 0 {
		pipe.HSet(ctx, s.keys.TagsKey(inst.ID), toHash(tags))
	}
	pipe.SAdd(ctx, s.keys.AllInstancesKey(), inst.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to register instance %s: %w", inst.ID, err)
	}
	return nil
}

func (s *Inventory) CurrentInstance(ctx context.Context) (*domain.Instance, error) {
	if s.currentID == "" {
		return nil, fmt.Errorf("current instance id is not configured")
	}
	return s.load(ctx, s.currentID)
}

func (s *Inventory) GetTags(_ context.Context, inst *domain.Instance) (domain.TagSet, error) {
	return inst.Tags.Clone(), nil
}

// QueryByTags scans every registered instance and keeps the matching ones.
// Instances listed in the set but without a hash are skipped.
func (s *Inventory) QueryByTags(ctx context.Context, filter domain.TagSet) ([]*domain.Instance, error) {
	ids, err := s.client.SMembers(ctx, s.keys.AllInstancesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get instance IDs: %w", err)
	}

	out := make([]*domain.Instance, 0, len(ids))
	for _, id := range ids {
		inst, err := s.load(ctx, id)
		if err != nil {
			if errors.Is(err, ErrInstanceNotFound) {
				continue
			}
			return nil, err
		}
		if inst.Tags.Matches(filter) {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (s *Inventory) SetTags(ctx context.Context, inst *domain.Instance, tags domain.TagSet) error {
	if len(tags) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, s.keys.TagsKey(inst.ID), toHash(tags)).Err(); err != nil {
		return fmt.Errorf("failed to set tags of %s: %w", inst.ID, err)
	}
	return nil
}

func (s *Inventory) Refresh(ctx context.Context, inst *domain.Instance) error {
	fresh, err := s.load(ctx, inst.ID)
	if err != nil {
		return err
	}
	*inst = *fresh
	return nil
}

// ClaimSlot reserves number in the partition for instanceID with SET NX.
// A claim already held by the same instance counts as won. Claims expire
// after the claim TTL; by then the number tag is the source of truth.
func (s *Inventory) ClaimSlot(ctx context.Context, p domain.Partition, number, instanceID string) (bool, error) {
	key := s.keys.SlotKey(p, number)

	ok, err := s.client.SetNX(ctx, key, instanceID, s.claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	if ok {
		return true, nil
	}

	holder, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between the two calls; try once more.
			return s.client.SetNX(ctx, key, instanceID, s.claimTTL).Result()
		}
		return false, fmt.Errorf("failed to read claim %s: %w", key, err)
	}
	return holder == instanceID, nil
}

func (s *Inventory) load(ctx context.Context, id string) (*domain.Instance, error) {
	pipe := s.client.Pipeline()
	fields := pipe.HGetAll(ctx, s.keys.InstanceKey(id))
	tags := pipe.HGetAll(ctx, s.keys.TagsKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load instance %s: %w", id, err)
	}

	f := fields.Val()
	if len(f) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}

	return &domain.Instance{
		ID:             id,
		Tags:           domain.TagSet(tags.Val()),
		State:          domain.State(f[fieldState]),
		PublicAddress:  f[fieldPublicAddress],
		PrivateAddress: f[fieldPrivateAddress],
	}, nil
}

func toHash(tags domain.TagSet) map[string]interface{} {
	out := make(map[string]interface{}, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
