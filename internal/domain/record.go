package domain

import "strings"

const (
	// RecordTypeA is the only record type this tool manages.
	RecordTypeA = "A"

	// RecordTTL is the TTL in seconds of every record created.
	RecordTTL = 300
)

// Record is the desired state of one DNS record. It always replaces
// whatever exists under Name.
type Record struct {
	Zone      string
	Name      string // fully qualified, with a trailing dot
	Type      string
	Addresses []string
	TTL       int64

	// Private selects the private hosted zone when a public and a private
	// zone share the name.
	Private bool
}

// NewARecord builds an A record for label inside zone.
func NewARecord(zone, label string, addresses []string) Record {
	return Record{
		Zone:      zone,
		Name:      FQDN(label, zone),
		Type:      RecordTypeA,
		Addresses: addresses,
		TTL:       RecordTTL,
	}
}

// FQDN joins label and zone and appends the root dot.
func FQDN(label, zone string) string {
	zone = strings.TrimSuffix(zone, ".")
	if label == "" {
		return zone + "."
	}
	return label + "." + zone + "."
}
