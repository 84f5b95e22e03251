package compose

import (
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
)

const (
	testPrincipalA = "11111111-1111-1111-1111-111111111111"
	testPrincipalB = "22222222-2222-2222-2222-222222222222"
	readerRoleID   = "/subscriptions/" + testSubscriptionID + "/providers/Microsoft.Authorization/roleDefinitions/acdd72a7-3385-48ef-bd42-f606fba81ae7"
)

func TestResolveRoleDefinition(t *testing.T) {
	c := newTestComposer()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "builtinName",
			ref:  "Reader",
			want: readerRoleID,
		},
		{
			name: "bareGUID",
			ref:  "acdd72a7-3385-48ef-bd42-f606fba81ae7",
			want: readerRoleID,
		},
		{
			name: "fullyQualifiedID",
			ref:  readerRoleID,
			want: readerRoleID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.resolveRoleDefinition(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRoleDefinitionUnknown(t *testing.T) {
	_, err := newTestComposer().resolveRoleDefinition("Janitor")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestComposeRoleAssignmentsExpandsPrincipals(t *testing.T) {
	c := newTestComposer()

	entries := []spec.RoleAssignment{
		{
			RoleDefinitionIDOrName: "Reader",
			PrincipalIDs:           []string{testPrincipalA, testPrincipalB},
			PrincipalType:          "ServicePrincipal",
			Description:            "read-only access",
		},
	}

	requests, err := c.composeRoleAssignments(entries, testServerID)
	require.NoError(t, err)
	require.Len(t, requests, 2)

	for i, principal := range []string{testPrincipalA, testPrincipalB} {
		ra := requests[i]
		assert.Equal(t, testServerID, ra.Scope)
		assert.Equal(t, principal, *ra.Body.Properties.PrincipalID)
		assert.Equal(t, readerRoleID, *ra.Body.Properties.RoleDefinitionID)
		assert.Equal(t, armauthorization.PrincipalTypeServicePrincipal, *ra.Body.Properties.PrincipalType)
		assert.Equal(t, "read-only access", *ra.Body.Properties.Description)
	}
	assert.NotEqual(t, requests[0].Name, requests[1].Name)
}

func TestComposeRoleAssignmentsOptionalFieldsOmitted(t *testing.T) {
	c := newTestComposer()

	requests, err := c.composeRoleAssignments([]spec.RoleAssignment{
		{RoleDefinitionIDOrName: "Contributor", PrincipalIDs: []string{testPrincipalA}},
	}, testServerID)
	require.NoError(t, err)
	require.Len(t, requests, 1)

	assert.Nil(t, requests[0].Body.Properties.PrincipalType)
	assert.Nil(t, requests[0].Body.Properties.Description)
}

func TestComposeRoleAssignmentsUnknownRole(t *testing.T) {
	c := newTestComposer()

	_, err := c.composeRoleAssignments([]spec.RoleAssignment{
		{RoleDefinitionIDOrName: "Janitor", PrincipalIDs: []string{testPrincipalA}},
	}, testServerID)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestAssignmentNameDeterministic(t *testing.T) {
	a := assignmentName(testServerID, testPrincipalA, readerRoleID)
	b := assignmentName(testServerID, testPrincipalA, readerRoleID)
	c := assignmentName(testServerID, testPrincipalB, readerRoleID)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err := uuid.Parse(a)
	assert.NoError(t, err, "assignment name must be a valid GUID")
}
