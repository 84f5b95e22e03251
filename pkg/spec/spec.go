// Package spec defines the typed server specification.
//
// A spec is the declarative description of a managed MySQL server and its
// child resources (firewall rules, virtual network rules, databases, server
// configurations, role assignments, private endpoints, diagnostic settings).
// Range and enum bounds are enforced here at the boundary; cross-field
// consistency checks live in pkg/validate.
package spec

// CreateMode governs how the server is brought into existence.
type CreateMode string

const (
	CreateModeDefault            CreateMode = "Default"
	CreateModeGeoRestore         CreateMode = "GeoRestore"
	CreateModePointInTimeRestore CreateMode = "PointInTimeRestore"
	CreateModeReplica            CreateMode = "Replica"
)

// Valid checks if the create mode is a known value.
func (m CreateMode) Valid() bool {
	switch m {
	case CreateModeDefault, CreateModeGeoRestore, CreateModePointInTimeRestore, CreateModeReplica:
		return true
	}
	return false
}

// RequiresSource returns true if the mode needs a source server reference.
func (m CreateMode) RequiresSource() bool {
	switch m {
	case CreateModeGeoRestore, CreateModePointInTimeRestore, CreateModeReplica:
		return true
	}
	return false
}

// TLSVersion is the minimum TLS version enforced by the server.
type TLSVersion string

const (
	TLSVersion10           TLSVersion = "TLS1_0"
	TLSVersion11           TLSVersion = "TLS1_1"
	TLSVersion12           TLSVersion = "TLS1_2"
	TLSEnforcementDisabled TLSVersion = "TLSEnforcementDisabled"
)

// Valid checks if the TLS version is a known value.
func (v TLSVersion) Valid() bool {
	switch v {
	case TLSVersion10, TLSVersion11, TLSVersion12, TLSEnforcementDisabled:
		return true
	}
	return false
}

// Toggle is an Enabled/Disabled switch as the control plane spells it.
type Toggle string

const (
	ToggleEnabled  Toggle = "Enabled"
	ToggleDisabled Toggle = "Disabled"
)

// Valid checks if the toggle is a known value.
func (t Toggle) Valid() bool {
	return t == ToggleEnabled || t == ToggleDisabled
}

// EngineVersion is the MySQL engine version.
type EngineVersion string

const (
	EngineVersion56  EngineVersion = "5.6"
	EngineVersion57  EngineVersion = "5.7"
	EngineVersion821 EngineVersion = "8.0.21"
)

// Valid checks if the engine version is a known value.
func (v EngineVersion) Valid() bool {
	switch v {
	case EngineVersion56, EngineVersion57, EngineVersion821:
		return true
	}
	return false
}

// FirewallRule allows a contiguous IPv4 range through the server firewall.
type FirewallRule struct {
	Name           string `yaml:"name" validate:"required,min=1,max=128"`
	StartIPAddress string `yaml:"startIpAddress" validate:"required,ipv4"`
	EndIPAddress   string `yaml:"endIpAddress" validate:"required,ipv4"`
}

// VirtualNetworkRule admits traffic from a subnet service endpoint.
type VirtualNetworkRule struct {
	Name                             string `yaml:"name" validate:"required"`
	SubnetID                         string `yaml:"subnetId" validate:"required"`
	IgnoreMissingVnetServiceEndpoint bool   `yaml:"ignoreMissingVnetServiceEndpoint"`
}

// Database is a logical database created under the server.
type Database struct {
	Name      string `yaml:"name" validate:"required"`
	Charset   string `yaml:"charset,omitempty"`
	Collation string `yaml:"collation,omitempty"`
}

// Configuration is a server parameter applied after network rules exist.
type Configuration struct {
	Name  string `yaml:"name" validate:"required"`
	Value string `yaml:"value" validate:"required"`
}

// RoleAssignment grants a role on the server scope to a set of principals.
// RoleDefinitionIDOrName accepts a built-in role name or a fully-qualified
// role definition resource id.
type RoleAssignment struct {
	RoleDefinitionIDOrName string   `yaml:"roleDefinitionIdOrName" validate:"required"`
	PrincipalIDs           []string `yaml:"principalIds" validate:"required,min=1,dive,required"`
	PrincipalType          string   `yaml:"principalType,omitempty"`
	Description            string   `yaml:"description,omitempty"`
}

// PrivateEndpoint requests private connectivity to the server.
type PrivateEndpoint struct {
	Name                  string `yaml:"name" validate:"required"`
	GroupID               string `yaml:"groupId" validate:"required"`
	SubnetID              string `yaml:"subnetId" validate:"required"`
	PrivateDNSZoneID      string `yaml:"privateDnsZoneId,omitempty"`
	ManualApprovalEnabled bool   `yaml:"manualApprovalEnabled"`
}

// DiagnosticReceivers names the destinations telemetry is forwarded to.
// The diagnostic-settings child resource exists only when at least one of
// WorkspaceID, EventHubAuthorizationRuleID, StorageAccountID or
// MarketplacePartnerID is set.
type DiagnosticReceivers struct {
	WorkspaceID                 string `yaml:"workspaceId,omitempty"`
	EventHubAuthorizationRuleID string `yaml:"eventHubAuthorizationRuleId,omitempty"`
	EventHubName                string `yaml:"eventHubName,omitempty"`
	StorageAccountID            string `yaml:"storageAccountId,omitempty"`
	MarketplacePartnerID        string `yaml:"marketplacePartnerId,omitempty"`
	LogAnalyticsDestinationType string `yaml:"logAnalyticsDestinationType,omitempty"`
}

// DiagnosticCategory enables one log or metric category.
type DiagnosticCategory struct {
	Category      string `yaml:"category"`
	Enabled       bool   `yaml:"enabled"`
	RetentionDays int32  `yaml:"retentionDays,omitempty"`
}

// DiagnosticSettings describes the optional diagnostic-settings resource.
type DiagnosticSettings struct {
	Name             string               `yaml:"name,omitempty"`
	Logs             []DiagnosticCategory `yaml:"logs,omitempty"`
	Metrics          []DiagnosticCategory `yaml:"metrics,omitempty"`
	Receivers        DiagnosticReceivers  `yaml:"receivers,omitempty"`
	ServiceBusRuleID string               `yaml:"serviceBusRuleId,omitempty"`
}

// ServerSpec is the full declarative description of a managed MySQL server.
type ServerSpec struct {
	Name     string            `yaml:"name" validate:"required,min=3,max=63"`
	Location string            `yaml:"location,omitempty"`
	Tags     map[string]string `yaml:"tags,omitempty"`

	AdministratorLogin         string `yaml:"administratorLogin" validate:"required"`
	AdministratorLoginPassword string `yaml:"administratorLoginPassword" validate:"required"`

	SKUName                  string        `yaml:"skuName" validate:"required"`
	StorageSizeGB            int32         `yaml:"storageSizeGB" validate:"required,min=5,max=16384"`
	StorageAutogrow          bool          `yaml:"storageAutogrow"`
	BackupRetentionDays      int32         `yaml:"backupRetentionDays" validate:"min=7,max=35"`
	GeoRedundantBackup       Toggle        `yaml:"geoRedundantBackup,omitempty"`
	InfrastructureEncryption Toggle        `yaml:"infrastructureEncryption,omitempty"`
	Version                  EngineVersion `yaml:"version,omitempty"`

	CreateMode             CreateMode `yaml:"createMode,omitempty"`
	SourceServerResourceID string     `yaml:"sourceServerResourceId,omitempty"`
	RestorePointInTime     string     `yaml:"restorePointInTime,omitempty"`

	MinimalTLSVersion   TLSVersion `yaml:"minimalTlsVersion,omitempty"`
	PublicNetworkAccess Toggle     `yaml:"publicNetworkAccess,omitempty"`

	FirewallRules       []FirewallRule       `yaml:"firewallRules,omitempty" validate:"dive"`
	VirtualNetworkRules []VirtualNetworkRule `yaml:"virtualNetworkRules,omitempty" validate:"dive"`
	Databases           []Database           `yaml:"databases,omitempty" validate:"dive"`
	Configurations      []Configuration      `yaml:"serverConfigurations,omitempty" validate:"dive"`
	RoleAssignments     []RoleAssignment     `yaml:"roleAssignments,omitempty" validate:"dive"`
	PrivateEndpoints    []PrivateEndpoint    `yaml:"privateEndpoints,omitempty" validate:"dive"`

	DiagnosticSettings *DiagnosticSettings `yaml:"diagnosticSettings,omitempty"`
}
