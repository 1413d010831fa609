package aws

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
)

// fakeRoute53 keeps record sets per zone and applies change batches the way
// Route 53 validates them.
type fakeRoute53 struct {
	zones   []r53types.HostedZone
	sets    map[string][]r53types.ResourceRecordSet
	changes []r53types.Change
}

func (f *fakeRoute53) ListHostedZonesByName(_ context.Context, in *route53.ListHostedZonesByNameInput, _ ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error) {
	var out []r53types.HostedZone
	for _, z := range f.zones {
		if aws.ToString(z.Name) >= aws.ToString(in.DNSName) {
			out = append(out, z)
		}
	}
	return &route53.ListHostedZonesByNameOutput{HostedZones: out}, nil
}

func (f *fakeRoute53) ListResourceRecordSets(_ context.Context, in *route53.ListResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	for _, set := range f.sets[aws.ToString(in.HostedZoneId)] {
		if aws.ToString(set.Name) >= aws.ToString(in.StartRecordName) {
			return &route53.ListResourceRecordSetsOutput{ResourceRecordSets: []r53types.ResourceRecordSet{set}}, nil
		}
	}
	return &route53.ListResourceRecordSetsOutput{}, nil
}

func (f *fakeRoute53) ChangeResourceRecordSets(_ context.Context, in *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	zone := aws.ToString(in.HostedZoneId)
	for _, c := range in.ChangeBatch.Changes {
		f.changes = append(f.changes, c)
		name := aws.ToString(c.ResourceRecordSet.Name)
		idx := -1
		for i, s := range f.sets[zone] {
			if aws.ToString(s.Name) == name {
				idx = i
			}
		}
		switch c.Action {
		case r53types.ChangeActionCreate:
			if idx >= 0 {
				return nil, &r53types.InvalidChangeBatch{Message: aws.String("record already exists")}
			}
			f.sets[zone] = append(f.sets[zone], *c.ResourceRecordSet)
		case r53types.ChangeActionDelete:
			if idx < 0 {
				return nil, &r53types.InvalidChangeBatch{Message: aws.String("record not found")}
			}
			f.sets[zone] = append(f.sets[zone][:idx], f.sets[zone][idx+1:]...)
		}
	}
	return &route53.ChangeResourceRecordSetsOutput{}, nil
}

func newFakeRoute53() *fakeRoute53 {
	return &fakeRoute53{
		zones: []r53types.HostedZone{
			{Id: aws.String("/hostedzone/ZEXAMPLE"), Name: aws.String("example.com.")},
			{Id: aws.String("/hostedzone/ZOTHER"), Name: aws.String("other.com.")},
		},
		sets: map[string][]r53types.ResourceRecordSet{},
	}
}

func TestZonesResolveZoneID(t *testing.T) {
	zones := NewZones(newFakeRoute53())

	id, err := zones.ResolveZoneID(context.Background(), "example.com", false)
	require.NoError(t, err)
	assert.Equal(t, "ZEXAMPLE", id)

	_, err = zones.ResolveZoneID(context.Background(), "missing.com", false)
	require.ErrorIs(t, err, ErrHostedZoneNotFound)
}

func TestZonesResolveZoneIDSplitHorizon(t *testing.T) {
	client := newFakeRoute53()
	client.zones = []r53types.HostedZone{
		{
			Id:     aws.String("/hostedzone/ZPUBLIC"),
			Name:   aws.String("example.com."),
			Config: &r53types.HostedZoneConfig{PrivateZone: false},
		},
		{
			Id:     aws.String("/hostedzone/ZPRIVATE"),
			Name:   aws.String("example.com."),
			Config: &r53types.HostedZoneConfig{PrivateZone: true},
		},
	}
	zones := NewZones(client)

	tests := []struct {
		name    string
		private bool
		want    string
	}{
		{name: "public side", private: false, want: "ZPUBLIC"},
		{name: "private side", private: true, want: "ZPRIVATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := zones.ResolveZoneID(context.Background(), "example.com", tt.private)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestZonesResolveZoneIDSingleZoneServesBothSides(t *testing.T) {
	client := newFakeRoute53()
	client.zones[0].Config = &r53types.HostedZoneConfig{PrivateZone: true}
	zones := NewZones(client)

	for _, private := range []bool{false, true} {
		id, err := zones.ResolveZoneID(context.Background(), "example.com", private)
		require.NoError(t, err)
		assert.Equal(t, "ZEXAMPLE", id)
	}
}

func TestZonesDeleteThenCreate(t *testing.T) {
	ctx := context.Background()
	client := newFakeRoute53()
	zones := NewZones(client)

	require.NoError(t, zones.DeleteRecord(ctx, "ZEXAMPLE", "api.example.com."))
	assert.Empty(t, client.changes, "no delete is sent for a missing record")

	rec := domain.NewARecord("example.com", "api", []string{"10.0.0.1", "10.0.0.2"})
	require.NoError(t, zones.CreateRecord(ctx, "ZEXAMPLE", rec))
	require.Error(t, zones.CreateRecord(ctx, "ZEXAMPLE", rec))

	require.NoError(t, zones.DeleteRecord(ctx, "ZEXAMPLE", "api.example.com."))
	require.NoError(t, zones.CreateRecord(ctx, "ZEXAMPLE", domain.NewARecord("example.com", "api", []string{"10.0.0.3"})))

	sets := client.sets["ZEXAMPLE"]
	require.Len(t, sets, 1)
	assert.Equal(t, int64(300), aws.ToInt64(sets[0].TTL))
	assert.Equal(t, r53types.RRTypeA, sets[0].Type)
	require.Len(t, sets[0].ResourceRecords, 1)
	assert.Equal(t, "10.0.0.3", aws.ToString(sets[0].ResourceRecords[0].Value))

	last := client.changes[len(client.changes)-2]
	assert.Equal(t, r53types.ChangeActionDelete, last.Action)
	assert.Len(t, last.ResourceRecordSet.ResourceRecords, 2, "delete sends the exact existing set")
}

func TestZonesDeleteIgnoresNeighbour(t *testing.T) {
	ctx := context.Background()
	client := newFakeRoute53()
	client.sets["ZEXAMPLE"] = []r53types.ResourceRecordSet{{
		Name: aws.String("api-0002.example.com."),
		Type: r53types.RRTypeA,
		TTL:  aws.Int64(300),
	}}
	zones := NewZones(client)

	require.NoError(t, zones.DeleteRecord(ctx, "ZEXAMPLE", "api-0001.example.com."))
	assert.Empty(t, client.changes)
	assert.True(t, strings.HasPrefix(aws.ToString(client.sets["ZEXAMPLE"][0].Name), "api-0002"))
}
