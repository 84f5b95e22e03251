package testutil

import (
	"context"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/mysql/armmysql"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"

	"github.com/flavioaiello/mysql-provisioner/pkg/submit"
)

// Call records one control-plane request in submission order.
type Call struct {
	Kind string // server, firewallRule, virtualNetworkRule, database, configuration, roleAssignment, privateEndpoint, dnsZoneGroup, diagnosticSetting
	Name string
	Body interface{}
}

// RecordingControlPlane implements submit.ControlPlane in memory.
//
// Every request is appended to an ordered call log; individual requests can
// be configured to fail by kind and name. Thread-safe.
type RecordingControlPlane struct {
	mu sync.Mutex

	calls        []Call
	failures     map[string]error
	onceFailures map[string]error
	server       submit.ServerResult
}

// NewRecordingControlPlane creates an empty recording control plane.
func NewRecordingControlPlane() *RecordingControlPlane {
	return &RecordingControlPlane{
		failures:     make(map[string]error),
		onceFailures: make(map[string]error),
		server: submit.ServerResult{
			ID:   "/subscriptions/sub/resourceGroups/rg/providers/Microsoft.DBforMySQL/servers/mock",
			FQDN: "mock.mysql.database.azure.com",
		},
	}
}

// SetServerResult overrides the result returned for server creation.
func (r *RecordingControlPlane) SetServerResult(result submit.ServerResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.server = result
}

// FailOn configures the request identified by kind and name to always fail.
func (r *RecordingControlPlane) FailOn(kind, name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[kind+"/"+name] = err
}

// FailOnceOn configures the request to fail on its first submission only.
func (r *RecordingControlPlane) FailOnceOn(kind, name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onceFailures[kind+"/"+name] = err
}

// Calls returns the recorded requests in submission order.
func (r *RecordingControlPlane) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsOfKind returns the recorded requests of one kind, in order.
func (r *RecordingControlPlane) CallsOfKind(kind string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// IndexOf returns the position of a request in the call log, or -1.
func (r *RecordingControlPlane) IndexOf(kind, name string) int {
	for i, c := range r.Calls() {
		if c.Kind == kind && c.Name == name {
			return i
		}
	}
	return -1
}

func (r *RecordingControlPlane) record(kind, name string, body interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Kind: kind, Name: name, Body: body})
	key := kind + "/" + name
	if err, ok := r.onceFailures[key]; ok {
		delete(r.onceFailures, key)
		return err
	}
	if err, ok := r.failures[key]; ok {
		return err
	}
	return nil
}

func (r *RecordingControlPlane) CreateServer(_ context.Context, name string, body armmysql.ServerForCreate) (submit.ServerResult, error) {
	if err := r.record("server", name, body); err != nil {
		return submit.ServerResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.server, nil
}

func (r *RecordingControlPlane) CreateFirewallRule(_ context.Context, _, name string, body armmysql.FirewallRule) error {
	return r.record("firewallRule", name, body)
}

func (r *RecordingControlPlane) CreateVirtualNetworkRule(_ context.Context, _, name string, body armmysql.VirtualNetworkRule) error {
	return r.record("virtualNetworkRule", name, body)
}

func (r *RecordingControlPlane) CreateDatabase(_ context.Context, _, name string, body armmysql.Database) error {
	return r.record("database", name, body)
}

func (r *RecordingControlPlane) CreateConfiguration(_ context.Context, _, name string, body armmysql.Configuration) error {
	return r.record("configuration", name, body)
}

func (r *RecordingControlPlane) CreateRoleAssignment(_ context.Context, _, name string, body armauthorization.RoleAssignmentCreateParameters) error {
	return r.record("roleAssignment", name, body)
}

func (r *RecordingControlPlane) CreatePrivateEndpoint(_ context.Context, name string, body armnetwork.PrivateEndpoint) error {
	return r.record("privateEndpoint", name, body)
}

func (r *RecordingControlPlane) CreatePrivateDNSZoneGroup(_ context.Context, endpoint, name string, body armnetwork.PrivateDNSZoneGroup) error {
	return r.record("dnsZoneGroup", endpoint+"/"+name, body)
}

func (r *RecordingControlPlane) CreateDiagnosticSetting(_ context.Context, _, name string, body armmonitor.DiagnosticSettingsResource) error {
	return r.record("diagnosticSetting", name, body)
}

// Verify interface compliance.
var _ submit.ControlPlane = (*RecordingControlPlane)(nil)

// StaticGroupChecker reports a fixed existence answer for any group.
type StaticGroupChecker struct {
	Present bool
	Err     error
}

// Exists implements provision.GroupChecker.
func (s StaticGroupChecker) Exists(context.Context, string) (bool, error) {
	return s.Present, s.Err
}
