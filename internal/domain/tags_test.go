package domain

import (
	"errors"
	"testing"
)

func TestPartitionFromTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     TagSet
		expected Partition
		wantErr  bool
	}{
		{
			name:     "private zone wins",
			tags:     TagSet{TagGroup: "api", TagZone: "example.com", TagPrivateZone: "internal", TagEnvironment: "dev"},
			expected: Partition{Group: "api", ZoneKey: TagPrivateZone, Zone: "internal", Environment: "dev"},
		},
		{
			name:     "legacy zone",
			tags:     TagSet{TagGroup: "api", TagZone: "example.com"},
			expected: Partition{Group: "api", ZoneKey: TagZone, Zone: "example.com"},
		},
		{
			name:     "public zone only",
			tags:     TagSet{TagGroup: "api", TagPublicZone: "example.com"},
			expected: Partition{Group: "api", ZoneKey: TagPublicZone, Zone: "example.com"},
		},
		{name: "missing group", tags: TagSet{TagZone: "example.com"}, wantErr: true},
		{name: "missing zone", tags: TagSet{TagGroup: "api"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PartitionFromTags(tt.tags)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingRequiredTag) {
					t.Fatalf("PartitionFromTags() error = %v, want ErrMissingRequiredTag", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PartitionFromTags() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("PartitionFromTags() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestPartitionFilter(t *testing.T) {
	p := Partition{Group: "api", ZoneKey: TagZone, Zone: "example.com"}

	filter := p.Filter("")
	if _, ok := filter[TagEnvironment]; ok {
		t.Error("unset environment must be omitted from the filter")
	}
	if _, ok := filter[TagNumber]; ok {
		t.Error("empty number must be omitted from the filter")
	}

	filter = p.Filter("0002")
	if filter[TagNumber] != "0002" {
		t.Errorf("filter number = %q, want 0002", filter[TagNumber])
	}
}

func TestTagSetMatches(t *testing.T) {
	tags := TagSet{TagGroup: "api", TagZone: "example.com", TagNumber: "0001"}

	if !tags.Matches(TagSet{TagGroup: "api", TagEnvironment: ""}) {
		t.Error("empty filter values should be ignored")
	}
	if tags.Matches(TagSet{TagGroup: "api", TagNumber: "0002"}) {
		t.Error("different number should not match")
	}
	if tags.Matches(TagSet{TagEnvironment: "dev"}) {
		t.Error("absent key should not match a concrete value")
	}
}

func TestFQDN(t *testing.T) {
	if got := FQDN("api-0001", "example.com"); got != "api-0001.example.com." {
		t.Errorf("FQDN() = %q", got)
	}
	if got := FQDN("api", "example.com."); got != "api.example.com." {
		t.Errorf("FQDN() with rooted zone = %q", got)
	}
}
