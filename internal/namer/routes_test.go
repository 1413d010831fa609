package namer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
	"github.com/MrSnakeDoc/ec2-namer/internal/provider/memory"
)

func TestFirstBootScenario(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory("i-a")
	inv.Put(running("i-a", domain.TagSet{
		"group":        "web",
		"public-zone":  "example.com",
		"private-zone": "internal",
		"environment":  "staging",
	}, "54.0.0.1", "10.0.0.1"))
	zones := memory.NewZones("example.com", "internal")
	n := New(inv, zones, logger.NewNop())

	id, err := n.AssignIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, "0001", id.Number)

	tags, err := n.ReconcileRoutes(ctx)
	require.NoError(t, err)

	public, ok := zones.Record("example.com", "web-0001.staging.example.com.")
	require.True(t, ok)
	assert.Equal(t, []string{"54.0.0.1"}, public.Addresses)
	assert.Equal(t, int64(domain.RecordTTL), public.TTL)
	assert.Equal(t, domain.RecordTypeA, public.Type)

	private, ok := zones.Record("internal", "web-0001-staging.internal.")
	require.True(t, ok)
	assert.Equal(t, []string{"10.0.0.1"}, private.Addresses)

	service, ok := zones.Record("example.com", "web.staging.example.com.")
	require.True(t, ok)
	assert.Equal(t, []string{"54.0.0.1"}, service.Addresses)

	privateService, ok := zones.Record("internal", "web-staging.internal.")
	require.True(t, ok)
	assert.Equal(t, []string{"10.0.0.1"}, privateService.Addresses)

	assert.Equal(t, "web-0001.staging.example.com.", tags[domain.TagPublicDNS])
	assert.Equal(t, "web-0001-staging.internal.", tags[domain.TagPrivateDNS])
	assert.Equal(t, "web.staging.example.com.", tags[domain.TagPublicServiceDNS])
	assert.Equal(t, "web-staging.internal.", tags[domain.TagPrivateServiceDNS])
	assert.Equal(t, "web-0001-staging", tags[domain.TagHostname])
}

func TestServiceRecordOrderedByNumber(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory("i-2")
	base := func(number string) domain.TagSet {
		tags := named("db", number, "")
		delete(tags, domain.TagZone)
		tags[domain.TagPrivateZone] = "internal"
		return tags
	}
	inv.Put(running("i-3", base("0003"), "", "10.0.0.3"))
	inv.Put(running("i-1", base("0001"), "", "10.0.0.1"))
	inv.Put(running("i-2", base("0002"), "", "10.0.0.2"))
	zones := memory.NewZones("internal")

	_, err := New(inv, zones, logger.NewNop()).ReconcileRoutes(ctx)
	require.NoError(t, err)

	rec, ok := zones.Record("internal", "db.internal.")
	require.True(t, ok)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, rec.Addresses)

	// No public zone configured.
	_, ok = zones.Record("internal", "db-0002.internal.")
	assert.True(t, ok)
}

func TestServiceRecordSkipsDeadAndAddresslessMembers(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory("i-1")
	inv.Put(running("i-1", named("api", "0001", "example.com"), "54.0.0.1", "10.0.0.1"))
	inv.Put(running("i-2", named("api", "0002", "example.com"), "", "10.0.0.2"))
	stopped := running("i-3", named("api", "0003", "example.com"), "54.0.0.3", "10.0.0.3")
	stopped.State = domain.StateStopped
	inv.Put(stopped)
	noNumber := named("api", "", "example.com")
	delete(noNumber, domain.TagNumber)
	inv.Put(running("i-4", noNumber, "54.0.0.4", "10.0.0.4"))
	zones := memory.NewZones("example.com")

	_, err := New(inv, zones, logger.NewNop()).ReconcileRoutes(ctx)
	require.NoError(t, err)

	rec, ok := zones.Record("example.com", "api.example.com.")
	require.True(t, ok)
	assert.Equal(t, []string{"54.0.0.1", "54.0.0.4"}, rec.Addresses)
}

func TestReconcileRoutesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory("i-1")
	inv.Put(running("i-1", named("api", "0001", "example.com"), "54.0.0.1", "10.0.0.1"))
	inv.Put(running("i-2", named("api", "0002", "example.com"), "54.0.0.2", "10.0.0.2"))
	zones := memory.NewZones("example.com")
	n := New(inv, zones, logger.NewNop())

	_, err := n.ReconcileRoutes(ctx)
	require.NoError(t, err)
	first := snapshot(zones, "example.com")

	_, err = n.ReconcileRoutes(ctx)
	require.NoError(t, err)
	second := snapshot(zones, "example.com")

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"api-0001.example.com.", "api.example.com."}, zones.Names("example.com"))
}

func TestReconcileRoutesZonesAreIndependent(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory("i-1")
	tags := named("api", "0001", "example.com")
	tags[domain.TagPrivateZone] = "internal"
	inv.Put(running("i-1", tags, "54.0.0.1", "10.0.0.1"))
	zones := memory.NewZones("example.com", "internal")
	zones.Break("example.com", errors.New("throttled"))

	out, err := New(inv, zones, logger.NewNop()).ReconcileRoutes(ctx)
	require.ErrorIs(t, err, domain.ErrZoneResolution)

	_, ok := zones.Record("internal", "api-0001.internal.")
	assert.True(t, ok, "private record must be reconciled despite public failure")
	assert.Equal(t, "api-0001.internal.", out[domain.TagPrivateDNS])
	assert.NotContains(t, out, domain.TagPublicDNS)
}

func TestReconcileRoutesSelectsZoneKind(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory("i-1")
	tags := named("api", "0001", "example.com")
	tags[domain.TagPublicZone] = "example.com"
	tags[domain.TagPrivateZone] = "internal"
	inv.Put(running("i-1", tags, "54.0.0.1", "10.0.0.1"))
	zones := memory.NewZones("example.com", "internal")

	_, err := New(inv, zones, logger.NewNop()).ReconcileRoutes(ctx)
	require.NoError(t, err)

	tests := []struct {
		zone, fqdn string
		private    bool
	}{
		{zone: "example.com", fqdn: "api-0001.example.com.", private: false},
		{zone: "example.com", fqdn: "api.example.com.", private: false},
		{zone: "internal", fqdn: "api-0001.internal.", private: true},
		{zone: "internal", fqdn: "api.internal.", private: true},
	}
	for _, tt := range tests {
		rec, ok := zones.Record(tt.zone, tt.fqdn)
		require.True(t, ok, tt.fqdn)
		assert.Equal(t, tt.private, rec.Private, tt.fqdn)
	}
}

func TestReconcileRoutesUnknownZone(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory("i-1")
	inv.Put(running("i-1", named("api", "0001", "missing.com"), "54.0.0.1", "10.0.0.1"))

	_, err := New(inv, memory.NewZones(), logger.NewNop()).ReconcileRoutes(ctx)
	require.ErrorIs(t, err, domain.ErrZoneResolution)
}

func TestReconcileRoutesMissingZoneTags(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory("i-1")
	inv.Put(running("i-1", domain.TagSet{"group": "api", "number": "0001"}, "54.0.0.1", "10.0.0.1"))
	zones := memory.NewZones("example.com")

	out, err := New(inv, zones, logger.NewNop()).ReconcileRoutes(ctx)
	require.ErrorIs(t, err, domain.ErrMissingRequiredTag)
	assert.Nil(t, out)
	assert.Zero(t, zones.Changes)
}

func TestReconcileReplacesExistingRecord(t *testing.T) {
	ctx := context.Background()
	zones := memory.NewZones("example.com")
	n := New(memory.NewInventory("i-1"), zones, logger.NewNop())

	require.NoError(t, n.Reconcile(ctx, domain.NewARecord("example.com", "api", []string{"1.1.1.1"})))
	require.NoError(t, n.Reconcile(ctx, domain.NewARecord("example.com", "api", []string{"2.2.2.2", "3.3.3.3"})))

	rec, ok := zones.Record("example.com", "api.example.com.")
	require.True(t, ok)
	assert.Equal(t, []string{"2.2.2.2", "3.3.3.3"}, rec.Addresses)
}

func TestReconcileWithoutZones(t *testing.T) {
	n := New(memory.NewInventory("i-1"), nil, logger.NewNop())
	err := n.Reconcile(context.Background(), domain.NewARecord("example.com", "api", []string{"1.1.1.1"}))
	require.Error(t, err)
}

func snapshot(zones *memory.Zones, zone string) map[string][]string {
	out := map[string][]string{}
	for _, name := range zones.Names(zone) {
		rec, _ := zones.Record(zone, name)
		out[name] = rec.Addresses
	}
	return out
}
