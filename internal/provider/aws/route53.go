package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
)

// Route53API is the subset of the Route 53 client used here.
type Route53API interface {
	ListHostedZonesByName(ctx context.Context, params *route53.ListHostedZonesByNameInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// ErrHostedZoneNotFound is returned when no hosted zone has the exact name.
var ErrHostedZoneNotFound = errors.New("hosted zone not found")

// Zones manages A records in Route 53 hosted zones.
type Zones struct {
	client Route53API
}

// NewZones creates a Route 53 zone service.
func NewZones(client Route53API) *Zones {
	return &Zones{client: client}
}

// ResolveZoneID returns the ID of the hosted zone named exactly zone.
// When a public and a private zone share the name, the one whose kind
// matches private wins; a name held by a single zone resolves to it either
// way. Hosted zone listings are sorted by name, so the first page is enough.
func (z *Zones) ResolveZoneID(ctx context.Context, zone string, private bool) (string, error) {
	name := domain.FQDN("", zone)

	out, err := z.client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list hosted zones for %s: %w", zone, err)
	}

	var named []r53types.HostedZone
	for _, hz := range out.HostedZones {
		if strings.EqualFold(aws.ToString(hz.Name), name) {
			named = append(named, hz)
		}
	}

	for _, hz := range named {
		if isPrivate(hz) == private {
			return zoneID(hz), nil
		}
	}
	if len(named) == 1 {
		return zoneID(named[0]), nil
	}
	if len(named) > 1 {
		return "", fmt.Errorf("%w: %s has %d zones and none is %s", ErrHostedZoneNotFound, zone, len(named), kindName(private))
	}
	return "", fmt.Errorf("%w: %s", ErrHostedZoneNotFound, zone)
}

func isPrivate(hz r53types.HostedZone) bool {
	return hz.Config != nil && hz.Config.PrivateZone
}

func zoneID(hz r53types.HostedZone) string {
	return strings.TrimPrefix(aws.ToString(hz.Id), "/hostedzone/")
}

func kindName(private bool) string {
	if private {
		return "private"
	}
	return "public"
}

// DeleteRecord deletes the A record set named fqdn. Route 53 only deletes
// an exact copy of the existing set, so it is read first; nothing is sent
// when there is none.
func (z *Zones) DeleteRecord(ctx context.Context, zoneID, fqdn string) error {
	existing, err := z.find(ctx, zoneID, fqdn)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	return z.change(ctx, zoneID, r53types.ChangeActionDelete, existing)
}

func (z *Zones) CreateRecord(ctx context.Context, zoneID string, rec domain.Record) error {
	values := make([]r53types.ResourceRecord, 0, len(rec.Addresses))
	for _, addr := range rec.Addresses {
		values = append(values, r53types.ResourceRecord{Value: aws.String(addr)})
	}

	return z.change(ctx, zoneID, r53types.ChangeActionCreate, &r53types.ResourceRecordSet{
		Name:            aws.String(rec.Name),
		Type:            r53types.RRType(rec.Type),
		TTL:             aws.Int64(rec.TTL),
		ResourceRecords: values,
	})
}

func (z *Zones) find(ctx context.Context, zoneID, fqdn string) (*r53types.ResourceRecordSet, error) {
	out, err := z.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(fqdn),
		StartRecordType: r53types.RRTypeA,
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list record sets for %s: %w", fqdn, err)
	}

	for _, set := range out.ResourceRecordSets {
		if set.Type == r53types.RRTypeA && strings.EqualFold(aws.ToString(set.Name), fqdn) {
			return &set, nil
		}
	}
	return nil, nil
}

func (z *Zones) change(ctx context.Context, zoneID string, action r53types.ChangeAction, set *r53types.ResourceRecordSet) error {
	_, err := z.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Comment: aws.String("ec2-namer"),
			Changes: []r53types.Change{{
				Action:            action,
				ResourceRecordSet: set,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", strings.ToLower(string(action)), aws.ToString(set.Name), err)
	}
	return nil
}
