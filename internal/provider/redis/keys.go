package redis

import "github.com/MrSnakeDoc/ec2-namer/internal/domain"

// DefaultKeyPrefix namespaces every inventory key.
const DefaultKeyPrefix = "ec2namer:"

// Instance hash fields.
const (
	fieldState          = "state"
	fieldPublicAddress  = "public-address"
	fieldPrivateAddress = "private-address"
)

// Keys builds the Redis keys of the inventory under a prefix.
type Keys struct {
	Prefix string
}

// InstanceKey returns the hash holding state and addresses of an instance.
func (k Keys) InstanceKey(id string) string {
	return k.Prefix + "instance:" + id
}

// TagsKey returns the hash holding the tags of an instance.
func (k Keys) TagsKey(id string) string {
	return k.Prefix + "instance:" + id + ":tags"
}

// AllInstancesKey returns the set of all instance IDs.
func (k Keys) AllInstancesKey() string {
	return k.Prefix + "instances:all"
}

// SlotKey returns the claim key of a slot in a partition.
func (k Keys) SlotKey(p domain.Partition, number string) string {
	return k.Prefix + "slot:" + p.Key() + ":" + number
}
