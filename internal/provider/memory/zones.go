package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
)

// Zones is an in-memory DNS zone service.
type Zones struct {
	mu      sync.RWMutex
	ids     map[string]string                   // zone name -> zone ID
	records map[string]map[string]domain.Record // zone ID -> FQDN -> record
	broken  map[string]error                    // zone name -> resolution error

	// Changes counts successful deletes and creates.
	Changes int
}

// NewZones creates a zone service hosting the given zones.
func NewZones(names ...string) *Zones {
	z := &Zones{
		ids:     make(map[string]string),
		records: make(map[string]map[string]domain.Record),
		broken:  make(map[string]error),
	}
	for _, name := range names {
		z.AddZone(name)
	}
	return z
}

// AddZone hosts a new empty zone and returns its ID.
func (z *Zones) AddZone(name string) string {
	z.mu.Lock()
	defer z.mu.Unlock()

	id := "Z-" + name
	z.ids[name] = id
	if _, ok := z.records[id]; !ok {
		z.records[id] = make(map[string]domain.Record)
	}
	return id
}

// Break makes every resolution of zone fail with err.
func (z *Zones) Break(name string, err error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	z.broken[name] = err
}

// Record returns the record named fqdn in the zone.
func (z *Zones) Record(zone, fqdn string) (domain.Record, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()

	rec, ok := z.records[z.ids[zone]][fqdn]
	return rec, ok
}

// Names returns the sorted record names of the zone.
func (z *Zones) Names(zone string) []string {
	z.mu.RLock()
	defer z.mu.RUnlock()

	names := make([]string, 0, len(z.records[z.ids[zone]]))
	for name := range z.records[z.ids[zone]] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (z *Zones) ResolveZoneID(_ context.Context, zone string, _ bool) (string, error) {
	z.mu.RLock()
	defer z.mu.RUnlock()

	if err := z.broken[zone]; err != nil {
		return "", err
	}
	id, ok := z.ids[zone]
	if !ok {
		return "", fmt.Errorf("hosted zone not found: %s", zone)
	}
	return id, nil
}

func (z *Zones) DeleteRecord(_ context.Context, zoneID, fqdn string) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	records, ok := z.records[zoneID]
	if !ok {
		return fmt.Errorf("unknown zone id: %s", zoneID)
	}
	if _, ok := records[fqdn]; ok {
		delete(records, fqdn)
		z.Changes++
	}
	return nil
}

func (z *Zones) CreateRecord(_ context.Context, zoneID string, rec domain.Record) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	records, ok := z.records[zoneID]
	if !ok {
		return fmt.Errorf("unknown zone id: %s", zoneID)
	}
	if _, exists := records[rec.Name]; exists {
		return fmt.Errorf("record already exists: %s", rec.Name)
	}
	rec.Addresses = append([]string(nil), rec.Addresses...)
	records[rec.Name] = rec
	z.Changes++
	return nil
}
