package compose

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"

	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
)

// DiagnosticsRequest creates the diagnostic-settings resource scoped to the
// server. It exists only when at least one receiver destination is set; the
// caller checks the predicate before composing so that a disabled block never
// produces a resource with null fields.
type DiagnosticsRequest struct {
	Name        string
	ResourceURI string
	Body        armmonitor.DiagnosticSettingsResource
}

func composeDiagnostics(ds *spec.DiagnosticSettings, serverID string) *DiagnosticsRequest {
	r := ds.Receivers

	props := &armmonitor.DiagnosticSettings{
		WorkspaceID:                 optional(r.WorkspaceID),
		EventHubAuthorizationRuleID: optional(r.EventHubAuthorizationRuleID),
		EventHubName:                optional(r.EventHubName),
		StorageAccountID:            optional(r.StorageAccountID),
		MarketplacePartnerID:        optional(r.MarketplacePartnerID),
		LogAnalyticsDestinationType: optional(r.LogAnalyticsDestinationType),
		ServiceBusRuleID:            optional(ds.ServiceBusRuleID),
	}

	for _, log := range ds.Logs {
		props.Logs = append(props.Logs, &armmonitor.LogSettings{
			Category:        optional(log.Category),
			Enabled:         to.Ptr(log.Enabled),
			RetentionPolicy: retentionPolicy(log.RetentionDays),
		})
	}
	for _, metric := range ds.Metrics {
		props.Metrics = append(props.Metrics, &armmonitor.MetricSettings{
			Category:        optional(metric.Category),
			Enabled:         to.Ptr(metric.Enabled),
			RetentionPolicy: retentionPolicy(metric.RetentionDays),
		})
	}

	return &DiagnosticsRequest{
		Name:        ds.Name,
		ResourceURI: serverID,
		Body:        armmonitor.DiagnosticSettingsResource{Properties: props},
	}
}

func retentionPolicy(days int32) *armmonitor.RetentionPolicy {
	if days <= 0 {
		return nil
	}
	return &armmonitor.RetentionPolicy{
		Days:    to.Ptr(days),
		Enabled: to.Ptr(true),
	}
}

// optional returns nil for the empty string so omitted fields stay off the
// wire instead of being sent as empty values.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return to.Ptr(s)
}
