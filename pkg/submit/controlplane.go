// Package submit issues composed requests to the Azure control plane.
//
// The submitter walks the staged plan: families within a stage run in
// parallel, families in later stages wait for the whole previous stage.
// Transient failures are retried with bounded backoff; rejections are
// surfaced verbatim. The per-entry report records exactly which requests
// succeeded, failed, or were skipped, since there is no rollback.
package submit

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/mysql/armmysql"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
)

// ServerResult is what the control plane reports back for a created server.
type ServerResult struct {
	ID   string `json:"id"`
	FQDN string `json:"fullyQualifiedDomainName"`
}

// ControlPlane abstracts the provider API surface the submitter needs.
// The production implementation wraps the ARM SDK clients; tests use a
// recording fake from pkg/testutil.
type ControlPlane interface {
	CreateServer(ctx context.Context, name string, body armmysql.ServerForCreate) (ServerResult, error)
	CreateFirewallRule(ctx context.Context, server, name string, body armmysql.FirewallRule) error
	CreateVirtualNetworkRule(ctx context.Context, server, name string, body armmysql.VirtualNetworkRule) error
	CreateDatabase(ctx context.Context, server, name string, body armmysql.Database) error
	CreateConfiguration(ctx context.Context, server, name string, body armmysql.Configuration) error
	CreateRoleAssignment(ctx context.Context, scope, name string, body armauthorization.RoleAssignmentCreateParameters) error
	CreatePrivateEndpoint(ctx context.Context, name string, body armnetwork.PrivateEndpoint) error
	CreatePrivateDNSZoneGroup(ctx context.Context, endpoint, name string, body armnetwork.PrivateDNSZoneGroup) error
	CreateDiagnosticSetting(ctx context.Context, resourceURI, name string, body armmonitor.DiagnosticSettingsResource) error
}

// AzureControlPlane implements ControlPlane against ARM.
type AzureControlPlane struct {
	resourceGroup string

	servers             *armmysql.ServersClient
	firewallRules       *armmysql.FirewallRulesClient
	virtualNetworkRules *armmysql.VirtualNetworkRulesClient
	databases           *armmysql.DatabasesClient
	configurations      *armmysql.ConfigurationsClient
	roleAssignments     *armauthorization.RoleAssignmentsClient
	privateEndpoints    *armnetwork.PrivateEndpointsClient
	dnsZoneGroups       *armnetwork.PrivateDNSZoneGroupsClient
	diagnostics         *armmonitor.DiagnosticSettingsClient
}

// NewAzureControlPlane creates the ARM-backed control plane client set.
func NewAzureControlPlane(subscriptionID, resourceGroup string, credential azcore.TokenCredential) (*AzureControlPlane, error) {
	servers, err := armmysql.NewServersClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create servers client: %w", err)
	}
	firewallRules, err := armmysql.NewFirewallRulesClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create firewall rules client: %w", err)
	}
	virtualNetworkRules, err := armmysql.NewVirtualNetworkRulesClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual network rules client: %w", err)
	}
	databases, err := armmysql.NewDatabasesClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create databases client: %w", err)
	}
	configurations, err := armmysql.NewConfigurationsClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create configurations client: %w", err)
	}
	roleAssignments, err := armauthorization.NewRoleAssignmentsClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create role assignments client: %w", err)
	}
	privateEndpoints, err := armnetwork.NewPrivateEndpointsClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create private endpoints client: %w", err)
	}
	dnsZoneGroups, err := armnetwork.NewPrivateDNSZoneGroupsClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create private dns zone groups client: %w", err)
	}
	diagnostics, err := armmonitor.NewDiagnosticSettingsClient(credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnostic settings client: %w", err)
	}

	return &AzureControlPlane{
		resourceGroup:       resourceGroup,
		servers:             servers,
		firewallRules:       firewallRules,
		virtualNetworkRules: virtualNetworkRules,
		databases:           databases,
		configurations:      configurations,
		roleAssignments:     roleAssignments,
		privateEndpoints:    privateEndpoints,
		dnsZoneGroups:       dnsZoneGroups,
		diagnostics:         diagnostics,
	}, nil
}

// CreateServer starts the server creation and waits for it to provision.
func (a *AzureControlPlane) CreateServer(ctx context.Context, name string, body armmysql.ServerForCreate) (ServerResult, error) {
	poller, err := a.servers.BeginCreate(ctx, a.resourceGroup, name, body, nil)
	if err != nil {
		return ServerResult{}, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return ServerResult{}, err
	}

	result := ServerResult{}
	if resp.ID != nil {
		result.ID = *resp.ID
	}
	if resp.Properties != nil && resp.Properties.FullyQualifiedDomainName != nil {
		result.FQDN = *resp.Properties.FullyQualifiedDomainName
	}
	return result, nil
}

func (a *AzureControlPlane) CreateFirewallRule(ctx context.Context, server, name string, body armmysql.FirewallRule) error {
	poller, err := a.firewallRules.BeginCreateOrUpdate(ctx, a.resourceGroup, server, name, body, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (a *AzureControlPlane) CreateVirtualNetworkRule(ctx context.Context, server, name string, body armmysql.VirtualNetworkRule) error {
	poller, err := a.virtualNetworkRules.BeginCreateOrUpdate(ctx, a.resourceGroup, server, name, body, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (a *AzureControlPlane) CreateDatabase(ctx context.Context, server, name string, body armmysql.Database) error {
	poller, err := a.databases.BeginCreateOrUpdate(ctx, a.resourceGroup, server, name, body, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (a *AzureControlPlane) CreateConfiguration(ctx context.Context, server, name string, body armmysql.Configuration) error {
	poller, err := a.configurations.BeginCreateOrUpdate(ctx, a.resourceGroup, server, name, body, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (a *AzureControlPlane) CreateRoleAssignment(ctx context.Context, scope, name string, body armauthorization.RoleAssignmentCreateParameters) error {
	_, err := a.roleAssignments.Create(ctx, scope, name, body, nil)
	return err
}

func (a *AzureControlPlane) CreatePrivateEndpoint(ctx context.Context, name string, body armnetwork.PrivateEndpoint) error {
	poller, err := a.privateEndpoints.BeginCreateOrUpdate(ctx, a.resourceGroup, name, body, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (a *AzureControlPlane) CreatePrivateDNSZoneGroup(ctx context.Context, endpoint, name string, body armnetwork.PrivateDNSZoneGroup) error {
	poller, err := a.dnsZoneGroups.BeginCreateOrUpdate(ctx, a.resourceGroup, endpoint, name, body, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (a *AzureControlPlane) CreateDiagnosticSetting(ctx context.Context, resourceURI, name string, body armmonitor.DiagnosticSettingsResource) error {
	_, err := a.diagnostics.CreateOrUpdate(ctx, resourceURI, name, body, nil)
	return err
}

// Verify interface compliance.
var _ ControlPlane = (*AzureControlPlane)(nil)
