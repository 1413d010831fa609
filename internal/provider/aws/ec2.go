// Package aws binds the inventory to EC2 instance tags and the zones to
// Route 53 hosted zones.
package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/MrSnakeDoc/ec2-namer/internal/domain"
)

// EC2API is the subset of the EC2 client used here.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
}

// InstanceIDSource returns the ID of the instance this process runs on.
type InstanceIDSource interface {
	InstanceID(ctx context.Context) (string, error)
}

// Inventory reads instances and writes tags through the EC2 API.
type Inventory struct {
	client EC2API
	self   InstanceIDSource
}

// NewInventory creates an EC2 inventory.
func NewInventory(client EC2API, self InstanceIDSource) *Inventory {
	return &Inventory{
		client: client,
		self:   self,
	}
}

func (e *Inventory) CurrentInstance(ctx context.Context) (*domain.Instance, error) {
	id, err := e.self.InstanceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance id: %w", err)
	}
	return e.describe(ctx, id)
}

func (e *Inventory) GetTags(_ context.Context, inst *domain.Instance) (domain.TagSet, error) {
	return inst.Tags.Clone(), nil
}

// QueryByTags lists instances with one "tag:<key>" filter per non-empty
// filter value, across all result pages.
func (e *Inventory) QueryByTags(ctx context.Context, filter domain.TagSet) ([]*domain.Instance, error) {
	keys := make([]string, 0, len(filter))
	for k, v := range filter {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	filters := make([]ec2types.Filter, 0, len(keys))
	for _, k := range keys {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("tag:" + k),
			Values: []string{filter[k]},
		})
	}

	var out []*domain.Instance
	pages := ec2.NewDescribeInstancesPaginator(e.client, &ec2.DescribeInstancesInput{Filters: filters})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		out = append(out, fromReservations(page.Reservations)...)
	}
	return out, nil
}

func (e *Inventory) SetTags(ctx context.Context, inst *domain.Instance, tags domain.TagSet) error {
	if len(tags) == 0 {
		return nil
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ec2Tags := make([]ec2types.Tag, 0, len(keys))
	for _, k := range keys {
		ec2Tags = append(ec2Tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}

	_, err := e.client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{inst.ID},
		Tags:      ec2Tags,
	})
	if err != nil {
		return fmt.Errorf("failed to create tags on %s: %w", inst.ID, err)
	}
	return nil
}

func (e *Inventory) Refresh(ctx context.Context, inst *domain.Instance) error {
	fresh, err := e.describe(ctx, inst.ID)
	if err != nil {
		return err
	}
	*inst = *fresh
	return nil
}

var errInstanceNotFound = errors.New("instance not found")

func (e *Inventory) describe(ctx context.Context, id string) (*domain.Instance, error) {
	out, err := e.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance %s: %w", id, err)
	}

	instances := fromReservations(out.Reservations)
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: %s", errInstanceNotFound, id)
	}
	return instances[0], nil
}

func fromReservations(reservations []ec2types.Reservation) []*domain.Instance {
	var out []*domain.Instance
	for _, r := range reservations {
		for _, i := range r.Instances {
			out = append(out, fromEC2(i))
		}
	}
	return out
}

func fromEC2(i ec2types.Instance) *domain.Instance {
	tags := make(domain.TagSet, len(i.Tags))
	for _, t := range i.Tags {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}

	inst := &domain.Instance{
		ID:             aws.ToString(i.InstanceId),
		Tags:           tags,
		PublicAddress:  aws.ToString(i.PublicIpAddress),
		PrivateAddress: aws.ToString(i.PrivateIpAddress),
	}
	if i.State != nil {
		inst.State = domain.State(i.State.Name)
	}
	return inst
}
