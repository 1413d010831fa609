package domain

import "fmt"

// Recognized tag keys.
const (
	TagGroup       = "group"
	TagNumber      = "number"
	TagZone        = "zone" // legacy, public zone
	TagPublicZone  = "public-zone"
	TagPrivateZone = "private-zone"
	TagEnvironment = "environment"
	TagServiceName = "service-name"

	TagHostname        = "hostname"
	TagPublicHostname  = "public-hostname"
	TagPrivateHostname = "private-hostname"
	TagName            = "Name"
	TagURL             = "url"

	TagPublicDNS         = "public-dns"
	TagPrivateDNS        = "private-dns"
	TagPublicServiceDNS  = "public-service-dns"
	TagPrivateServiceDNS = "private-service-dns"
)

// Partition identifies the set of instances that compete for slot numbers:
// one group, one zone, one environment.
type Partition struct {
	Group string

	// ZoneKey is the tag key the zone was read from, so peers are queried
	// with the same key.
	ZoneKey string
	Zone    string

	// Environment is empty when the tag is absent.
	Environment string
}

// PartitionFromTags reads the partition of an instance from its tags.
// The zone is taken from private-zone, then zone, then public-zone.
func PartitionFromTags(tags TagSet) (Partition, error) {
	group := tags.Get(TagGroup, "")
	if group == "" {
		return Partition{}, fmt.Errorf("%w: %s", ErrMissingRequiredTag, TagGroup)
	}

	p := Partition{
		Group:       group,
		Environment: tags.Get(TagEnvironment, ""),
	}
	for _, key := range []string{TagPrivateZone, TagZone, TagPublicZone} {
		if v := tags.Get(key, ""); v != "" {
			p.ZoneKey = key
			p.Zone = v
			break
		}
	}
	if p.Zone == "" {
		return Partition{}, fmt.Errorf("%w: one of %s, %s, %s",
			ErrMissingRequiredTag, TagZone, TagPublicZone, TagPrivateZone)
	}

	return p, nil
}

// Filter returns the peer query for the partition. A non-empty number
// narrows it to instances holding that slot.
func (p Partition) Filter(number string) TagSet {
	filter := TagSet{
		TagGroup:  p.Group,
		p.ZoneKey: p.Zone,
	}
	if p.Environment != "" {
		filter[TagEnvironment] = p.Environment
	}
	if number != "" {
		filter[TagNumber] = number
	}
	return filter
}

// Key returns a stable string form, used to namespace slot claims.
func (p Partition) Key() string {
	return p.Group + "|" + p.Zone + "|" + p.Environment
}

// Zones holds the DNS zones an instance publishes records into.
// Either may be empty.
type Zones struct {
	Public  string
	Private string
}

// ZonesFromTags reads the public zone (public-zone, falling back to zone)
// and the private zone (private-zone).
func ZonesFromTags(tags TagSet) Zones {
	return Zones{
		Public:  tags.Get(TagPublicZone, tags.Get(TagZone, "")),
		Private: tags.Get(TagPrivateZone, ""),
	}
}

// Display returns the zone used for the Name tag.
func (z Zones) Display() string {
	if z.Public != "" {
		return z.Public
	}
	return z.Private
}
