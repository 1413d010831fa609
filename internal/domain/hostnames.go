package domain

import "strings"

// Hostnames is the naming derived from a group, a slot number and an
// environment.
type Hostnames struct {
	// Public is group-number[.environment] (ex: api-0001.staging).
	Public string

	// Private is Public with dots replaced by dashes so it is a single
	// DNS label (ex: api-0001-staging).
	Private string

	// Service is shared by every instance of the group
	// (ex: api.staging), PrivateService is its single-label form.
	Service        string
	PrivateService string

	// Name is the fully qualified display name written to the Name tag.
	Name string
}

// EnvironmentSuffix returns "" for an unset, prod or production environment
// and "."+environment otherwise.
func EnvironmentSuffix(environment string) string {
	switch environment {
	case "", "prod", "production":
		return ""
	default:
		return "." + environment
	}
}

// DeriveHostnames maps an identity to its hostnames. service overrides the
// group as the base of the service name when non-empty. group must not be
// empty.
func DeriveHostnames(group, number, environment, service string, zones Zones) Hostnames {
	suffix := EnvironmentSuffix(environment)

	public := group + "-" + number + suffix
	if service == "" {
		service = group
	}
	service += suffix

	h := Hostnames{
		Public:         public,
		Private:        labelSafe(public),
		Service:        service,
		PrivateService: labelSafe(service),
		Name:           public,
	}
	if zone := zones.Display(); zone != "" {
		h.Name = public + "." + zone
	}
	return h
}

// DeriveHostnamesFromTags derives hostnames from the group, number,
// environment, service-name and zone tags of an instance.
func DeriveHostnamesFromTags(tags TagSet) Hostnames {
	return DeriveHostnames(
		tags.Get(TagGroup, ""),
		tags.Get(TagNumber, DefaultNumber),
		tags.Get(TagEnvironment, ""),
		tags.Get(TagServiceName, ""),
		ZonesFromTags(tags),
	)
}

func labelSafe(s string) string {
	return strings.ReplaceAll(s, ".", "-")
}
