package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
)

// ErrZoneNotFound is returned when a zone has no key in Redis.
var ErrZoneNotFound = errors.New("zone not found")

// Zones stores records in the CoreDNS redis plugin layout: one hash per
// zone keyed by prefix + zone FQDN, one field per label ("@" for the apex),
// each value a JSON object of record lists by type. Only the "a" list is
// managed here; other types under the same label are preserved.
type Zones struct {
	client *redis.Client
	prefix string
}

// aRecord is one entry of the "a" list.
type aRecord struct {
	TTL int64  `json:"ttl,omitempty"`
	IP  string `json:"ip"`
}

// NewZones creates a Redis zone store. prefix matches the plugin's
// "prefix" option and may be empty.
func NewZones(client *redis.Client, prefix string) *Zones {
	return &Zones{
		client: client,
		prefix: prefix,
	}
}

// ResolveZoneID returns the zone hash key. The zone must already exist,
// usually with its SOA and NS entries under "@". There is one hash per
// zone name, so private is not used.
func (z *Zones) ResolveZoneID(ctx context.Context, zone string, _ bool) (string, error) {
	key := z.prefix + domain.FQDN("", zone)

	n, err := z.client.Exists(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to look up zone %s: %w", zone, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s", ErrZoneNotFound, zone)
	}
	return key, nil
}

func (z *Zones) DeleteRecord(ctx context.Context, zoneID, fqdn string) error {
	label, err := z.label(zoneID, fqdn)
	if err != nil {
		return err
	}

	entry, err := z.entry(ctx, zoneID, label)
	if err != nil {
		return err
	}
	if _, ok := entry["a"]; !ok {
		return nil
	}
	delete(entry, "a")

	if len(entry) == 0 {
		if err := z.client.HDel(ctx, zoneID, label).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", fqdn, err)
		}
		return nil
	}
	return z.store(ctx, zoneID, label, entry)
}

func (z *Zones) CreateRecord(ctx context.Context, zoneID string, rec domain.Record) error {
	if rec.Type != domain.RecordTypeA {
		return fmt.Errorf("unsupported record type %q", rec.Type)
	}
	label, err := z.label(zoneID, rec.Name)
	if err != nil {
		return err
	}

	entry, err := z.entry(ctx, zoneID, label)
	if err != nil {
		return err
	}
	if _, ok := entry["a"]; ok {
		return fmt.Errorf("record already exists: %s", rec.Name)
	}

	values := make([]aRecord, 0, len(rec.Addresses))
	for _, addr := range rec.Addresses {
		values = append(values, aRecord{TTL: rec.TTL, IP: addr})
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", rec.Name, err)
	}
	entry["a"] = raw

	return z.store(ctx, zoneID, label, entry)
}

// Addresses returns the A values stored for fqdn, in order.
func (z *Zones) Addresses(ctx context.Context, zoneID, fqdn string) ([]string, error) {
	label, err := z.label(zoneID, fqdn)
	if err != nil {
		return nil, err
	}
	entry, err := z.entry(ctx, zoneID, label)
	if err != nil {
		return nil, err
	}
	raw, ok := entry["a"]
	if !ok {
		return nil, nil
	}

	var values []aRecord
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", fqdn, err)
	}
	addrs := make([]string, 0, len(values))
	for _, v := range values {
		addrs = append(addrs, v.IP)
	}
	return addrs, nil
}

// label returns the hash field of fqdn inside the zone keyed zoneID.
func (z *Zones) label(zoneID, fqdn string) (string, error) {
	zone := strings.TrimPrefix(zoneID, z.prefix)
	fqdn = domain.FQDN("", fqdn)

	if fqdn == zone {
		return "@", nil
	}
	if !strings.HasSuffix(fqdn, "."+zone) {
		return "", fmt.Errorf("%s is not inside zone %s", fqdn, zone)
	}
	return strings.TrimSuffix(fqdn, "."+zone), nil
}

func (z *Zones) entry(ctx context.Context, zoneID, label string) (map[string]json.RawMessage, error) {
	raw, err := z.client.HGet(ctx, zoneID, label).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read %s in %s: %w", label, zoneID, err)
	}

	entry := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s in %s: %w", label, zoneID, err)
	}
	return entry, nil
}

func (z *Zones) store(ctx context.Context, zoneID, label string, entry map[string]json.RawMessage) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", label, err)
	}
	if err := z.client.HSet(ctx, zoneID, label, raw).Err(); err != nil {
		return fmt.Errorf("failed to write %s in %s: %w", label, zoneID, err)
	}
	return nil
}
