package aws

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/MrSnakeDoc/ec2-namer/internal/utils"
)

// MetadataAPI is the subset of the instance metadata client used here.
type MetadataAPI interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// Metadata resolves the current instance from the EC2 instance metadata
// service.
type Metadata struct {
	client MetadataAPI
}

// NewMetadata wraps an instance metadata client.
func NewMetadata(client MetadataAPI) *Metadata {
	return &Metadata{client: client}
}

func (m *Metadata) InstanceID(ctx context.Context) (string, error) {
	out, err := m.client.GetMetadata(ctx, &imds.GetMetadataInput{Path: "instance-id"})
	if err != nil {
		return "", fmt.Errorf("failed to read instance-id metadata: %w", err)
	}
	defer utils.Close(out.Content)

	raw, err := io.ReadAll(out.Content)
	if err != nil {
		return "", fmt.Errorf("failed to read instance-id metadata: %w", err)
	}

	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", fmt.Errorf("instance metadata returned an empty instance-id")
	}
	return id, nil
}

// Region returns the region of the current instance.
func (m *Metadata) Region(ctx context.Context) (string, error) {
	out, err := m.client.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("failed to read region metadata: %w", err)
	}
	return out.Region, nil
}

// StaticInstanceID is an InstanceIDSource for a configured ID.
type StaticInstanceID string

func (s StaticInstanceID) InstanceID(context.Context) (string, error) {
	return string(s), nil
}
