package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
)

// Options selects the AWS account, region and instance.
type Options struct {
	Region           string // resolved from instance metadata when empty
	Profile          string // shared config profile, optional
	InstanceID       string // skips the metadata lookup when set
	MetadataEndpoint string // overrides the instance metadata endpoint
}

// New builds the EC2 inventory and the Route 53 zones from the default
// credential chain. Retry behavior is the SDK default.
func New(ctx context.Context, opts Options, log logger.Logger) (*Inventory, *Zones, error) {
	meta := NewMetadata(imds.New(imds.Options{Endpoint: opts.MetadataEndpoint}))

	region := opts.Region
	if region == "" {
		r, err := meta.Region(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("region not configured and not available from instance metadata: %w", err)
		}
		region = r
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var self InstanceIDSource = meta
	if opts.InstanceID != "" {
		self = StaticInstanceID(opts.InstanceID)
	}

	log.Info("aws provider initialized",
		logger.String("region", region),
		logger.Bool("static_instance_id", opts.InstanceID != ""))

	return NewInventory(ec2.NewFromConfig(cfg), self), NewZones(route53.NewFromConfig(cfg)), nil
}
