// Package compose turns a resolved server spec into typed control-plane
// requests.
//
// Every list-typed input expands into one independent child-creation request
// per element. Composition is a pure transformation; nothing here talks to
// Azure. Conditional resources (diagnostic settings) are represented as
// optional values that are only constructed when their predicate holds.
package compose

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/mysql/armmysql"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"

	"github.com/flavioaiello/mysql-provisioner/pkg/resolve"
	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
)

// serverResourceIDFormat is the ARM id of a DBforMySQL single server.
const serverResourceIDFormat = "/subscriptions/%s/resourceGroups/%s/providers/Microsoft.DBforMySQL/servers/%s"

// ServerRequest is the parent server creation request.
type ServerRequest struct {
	Name       string
	ResourceID string
	Body       armmysql.ServerForCreate
}

// FirewallRuleRequest creates one firewall rule under the server.
type FirewallRuleRequest struct {
	Name string
	Body armmysql.FirewallRule
}

// VirtualNetworkRuleRequest creates one virtual network rule under the server.
type VirtualNetworkRuleRequest struct {
	Name string
	Body armmysql.VirtualNetworkRule
}

// DatabaseRequest creates one database under the server.
type DatabaseRequest struct {
	Name string
	Body armmysql.Database
}

// ConfigurationRequest applies one server configuration value.
type ConfigurationRequest struct {
	Name string
	Body armmysql.Configuration
}

// Composition holds every request derived from one server spec.
// RoleAssignments, PrivateEndpoints and Diagnostics are documented in their
// own files.
type Composition struct {
	Server              ServerRequest
	FirewallRules       []FirewallRuleRequest
	VirtualNetworkRules []VirtualNetworkRuleRequest
	Databases           []DatabaseRequest
	Configurations      []ConfigurationRequest
	RoleAssignments     []RoleAssignmentRequest
	PrivateEndpoints    []PrivateEndpointRequest
	Diagnostics         *DiagnosticsRequest
}

// Composer builds compositions for one subscription and resource group.
type Composer struct {
	subscriptionID string
	resourceGroup  string
	location       string
}

// New creates a Composer.
func New(subscriptionID, resourceGroup, location string) *Composer {
	return &Composer{
		subscriptionID: subscriptionID,
		resourceGroup:  resourceGroup,
		location:       location,
	}
}

// Compose expands the spec and its derived values into requests.
// The spec must already have defaults applied and be validated.
func (c *Composer) Compose(s *spec.ServerSpec, r *resolve.Resolved) (*Composition, error) {
	serverID := fmt.Sprintf(serverResourceIDFormat, c.subscriptionID, c.resourceGroup, s.Name)

	serverBody, err := c.composeServer(s, r)
	if err != nil {
		return nil, err
	}

	comp := &Composition{
		Server: ServerRequest{
			Name:       s.Name,
			ResourceID: serverID,
			Body:       serverBody,
		},
		FirewallRules:       composeFirewallRules(s.FirewallRules),
		VirtualNetworkRules: composeVirtualNetworkRules(s.VirtualNetworkRules),
		Databases:           composeDatabases(s.Databases),
		Configurations:      composeConfigurations(s.Configurations),
		PrivateEndpoints:    c.composePrivateEndpoints(s, serverID),
	}

	comp.RoleAssignments, err = c.composeRoleAssignments(s.RoleAssignments, serverID)
	if err != nil {
		return nil, err
	}

	if r.DiagnosticsEnabled {
		comp.Diagnostics = composeDiagnostics(s.DiagnosticSettings, serverID)
	}

	return comp, nil
}

func (c *Composer) composeServer(s *spec.ServerSpec, r *resolve.Resolved) (armmysql.ServerForCreate, error) {
	location := s.Location
	if location == "" {
		location = c.location
	}

	storage := &armmysql.StorageProfile{
		BackupRetentionDays: to.Ptr(s.BackupRetentionDays),
		GeoRedundantBackup:  to.Ptr(armmysql.GeoRedundantBackup(s.GeoRedundantBackup)),
		StorageMB:           to.Ptr(s.StorageSizeGB * 1024),
	}
	if r.StorageAutogrow != nil {
		storage.StorageAutogrow = to.Ptr(armmysql.StorageAutogrow(*r.StorageAutogrow))
	}

	props, err := serverProperties(s, r, storage)
	if err != nil {
		return armmysql.ServerForCreate{}, err
	}

	return armmysql.ServerForCreate{
		Location:   to.Ptr(location),
		SKU:        &armmysql.SKU{Name: to.Ptr(s.SKUName)},
		Tags:       composeTags(s.Tags),
		Properties: props,
	}, nil
}

// serverProperties selects the properties variant for the create mode. The
// control plane uses polymorphic payloads here, one type per mode.
func serverProperties(
	s *spec.ServerSpec,
	r *resolve.Resolved,
	storage *armmysql.StorageProfile,
) (armmysql.ServerPropertiesForCreateClassification, error) {
	tls := to.Ptr(armmysql.MinimalTLSVersionEnum(s.MinimalTLSVersion))
	ssl := to.Ptr(armmysql.SSLEnforcementEnum(r.SSLEnforcement))
	access := to.Ptr(armmysql.PublicNetworkAccessEnum(s.PublicNetworkAccess))
	encryption := to.Ptr(armmysql.InfrastructureEncryption(s.InfrastructureEncryption))
	version := to.Ptr(armmysql.ServerVersion(s.Version))

	switch s.CreateMode {
	case spec.CreateModeDefault:
		return &armmysql.ServerPropertiesForDefaultCreate{
			CreateMode:                 to.Ptr(armmysql.CreateModeDefault),
			AdministratorLogin:         to.Ptr(s.AdministratorLogin),
			AdministratorLoginPassword: to.Ptr(s.AdministratorLoginPassword),
			MinimalTLSVersion:          tls,
			SSLEnforcement:             ssl,
			PublicNetworkAccess:        access,
			InfrastructureEncryption:   encryption,
			StorageProfile:             storage,
			Version:                    version,
		}, nil

	case spec.CreateModeGeoRestore:
		return &armmysql.ServerPropertiesForGeoRestore{
			CreateMode:               to.Ptr(armmysql.CreateModeGeoRestore),
			SourceServerID:           r.SourceServerID,
			MinimalTLSVersion:        tls,
			SSLEnforcement:           ssl,
			PublicNetworkAccess:      access,
			InfrastructureEncryption: encryption,
			StorageProfile:           storage,
			Version:                  version,
		}, nil

	case spec.CreateModePointInTimeRestore:
		return &armmysql.ServerPropertiesForRestore{
			CreateMode:               to.Ptr(armmysql.CreateModePointInTimeRestore),
			SourceServerID:           r.SourceServerID,
			RestorePointInTime:       r.RestorePointInTime,
			MinimalTLSVersion:        tls,
			SSLEnforcement:           ssl,
			PublicNetworkAccess:      access,
			InfrastructureEncryption: encryption,
			StorageProfile:           storage,
			Version:                  version,
		}, nil

	case spec.CreateModeReplica:
		return &armmysql.ServerPropertiesForReplica{
			CreateMode:               to.Ptr(armmysql.CreateModeReplica),
			SourceServerID:           r.SourceServerID,
			MinimalTLSVersion:        tls,
			SSLEnforcement:           ssl,
			PublicNetworkAccess:      access,
			InfrastructureEncryption: encryption,
			StorageProfile:           storage,
			Version:                  version,
		}, nil
	}

	return nil, fmt.Errorf("unsupported createMode %q", s.CreateMode)
}

func composeFirewallRules(rules []spec.FirewallRule) []FirewallRuleRequest {
	requests := make([]FirewallRuleRequest, 0, len(rules))
	for _, rule := range rules {
		requests = append(requests, FirewallRuleRequest{
			Name: rule.Name,
			Body: armmysql.FirewallRule{
				Properties: &armmysql.FirewallRuleProperties{
					StartIPAddress: to.Ptr(rule.StartIPAddress),
					EndIPAddress:   to.Ptr(rule.EndIPAddress),
				},
			},
		})
	}
	return requests
}

func composeVirtualNetworkRules(rules []spec.VirtualNetworkRule) []VirtualNetworkRuleRequest {
	requests := make([]VirtualNetworkRuleRequest, 0, len(rules))
	for _, rule := range rules {
		requests = append(requests, VirtualNetworkRuleRequest{
			Name: rule.Name,
			Body: armmysql.VirtualNetworkRule{
				Properties: &armmysql.VirtualNetworkRuleProperties{
					VirtualNetworkSubnetID:           to.Ptr(rule.SubnetID),
					IgnoreMissingVnetServiceEndpoint: to.Ptr(rule.IgnoreMissingVnetServiceEndpoint),
				},
			},
		})
	}
	return requests
}

func composeDatabases(databases []spec.Database) []DatabaseRequest {
	requests := make([]DatabaseRequest, 0, len(databases))
	for _, db := range databases {
		requests = append(requests, DatabaseRequest{
			Name: db.Name,
			Body: armmysql.Database{
				Properties: &armmysql.DatabaseProperties{
					Charset:   to.Ptr(db.Charset),
					Collation: to.Ptr(db.Collation),
				},
			},
		})
	}
	return requests
}

func composeConfigurations(entries []spec.Configuration) []ConfigurationRequest {
	requests := make([]ConfigurationRequest, 0, len(entries))
	for _, entry := range entries {
		requests = append(requests, ConfigurationRequest{
			Name: entry.Name,
			Body: armmysql.Configuration{
				Properties: &armmysql.ConfigurationProperties{
					Value:  to.Ptr(entry.Value),
					Source: to.Ptr("user-override"),
				},
			},
		})
	}
	return requests
}

// PrivateEndpointRequest creates one private endpoint pointing back at the
// server, with an optional DNS zone group.
type PrivateEndpointRequest struct {
	// Name is derived as <server>-<endpoint>.
	Name         string
	Body         armnetwork.PrivateEndpoint
	DNSZoneGroup *armnetwork.PrivateDNSZoneGroup
}

func (c *Composer) composePrivateEndpoints(s *spec.ServerSpec, serverID string) []PrivateEndpointRequest {
	requests := make([]PrivateEndpointRequest, 0, len(s.PrivateEndpoints))
	for _, pe := range s.PrivateEndpoints {
		name := s.Name + "-" + pe.Name

		connection := &armnetwork.PrivateLinkServiceConnection{
			Name: to.Ptr(name),
			Properties: &armnetwork.PrivateLinkServiceConnectionProperties{
				PrivateLinkServiceID: to.Ptr(serverID),
				GroupIDs:             []*string{to.Ptr(pe.GroupID)},
			},
		}

		location := s.Location
		if location == "" {
			location = c.location
		}

		body := armnetwork.PrivateEndpoint{
			Location: to.Ptr(location),
			Properties: &armnetwork.PrivateEndpointProperties{
				Subnet: &armnetwork.Subnet{ID: to.Ptr(pe.SubnetID)},
			},
		}
		if pe.ManualApprovalEnabled {
			body.Properties.ManualPrivateLinkServiceConnections = []*armnetwork.PrivateLinkServiceConnection{connection}
		} else {
			body.Properties.PrivateLinkServiceConnections = []*armnetwork.PrivateLinkServiceConnection{connection}
		}

		requests = append(requests, PrivateEndpointRequest{
			Name:         name,
			Body:         body,
			DNSZoneGroup: composeDNSZoneGroup(pe.PrivateDNSZoneID),
		})
	}
	return requests
}

// composeDNSZoneGroup returns nil unless a zone id was supplied; the derived
// config list then carries a single entry named "default".
func composeDNSZoneGroup(zoneID string) *armnetwork.PrivateDNSZoneGroup {
	if zoneID == "" {
		return nil
	}
	return &armnetwork.PrivateDNSZoneGroup{
		Name: to.Ptr("default"),
		Properties: &armnetwork.PrivateDNSZoneGroupPropertiesFormat{
			PrivateDNSZoneConfigs: []*armnetwork.PrivateDNSZoneConfig{
				{
					Name: to.Ptr("default"),
					Properties: &armnetwork.PrivateDNSZonePropertiesFormat{
						PrivateDNSZoneID: to.Ptr(zoneID),
					},
				},
			},
		},
	}
}

func composeTags(tags map[string]string) map[string]*string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]*string, len(tags))
	for k, v := range tags {
		out[k] = to.Ptr(v)
	}
	return out
}
