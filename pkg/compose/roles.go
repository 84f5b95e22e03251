package compose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/google/uuid"

	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
)

// ErrUnknownRole indicates a role reference that is neither a known built-in
// role name nor a fully-qualified role definition id.
var ErrUnknownRole = errors.New("unknown role definition")

const roleDefinitionIDFormat = "/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s"

// builtInRoleIDs maps built-in role names to their well-known definition GUIDs.
var builtInRoleIDs = map[string]string{
	"Owner":                     "8e3af657-a8ff-443c-a75c-2fe8c4bcb635",
	"Contributor":               "b24988ac-6180-42a0-ab88-20f7382dd24c",
	"Reader":                    "acdd72a7-3385-48ef-bd42-f606fba81ae7",
	"User Access Administrator": "18d7d88d-d35e-4fb5-a5c3-7773c20a72d9",
	"Role Based Access Control Administrator": "f58310d9-a9f6-439a-9e8d-f62e7b41a168",
}

// RoleAssignmentRequest grants one role to one principal on the server scope.
type RoleAssignmentRequest struct {
	// Name is deterministic over (scope, principal, role) so re-running the
	// provisioner does not create duplicate assignments.
	Name  string
	Scope string
	Body  armauthorization.RoleAssignmentCreateParameters
}

// composeRoleAssignments expands each entry into one request per principal.
func (c *Composer) composeRoleAssignments(entries []spec.RoleAssignment, serverID string) ([]RoleAssignmentRequest, error) {
	var requests []RoleAssignmentRequest
	for i, entry := range entries {
		roleDefinitionID, err := c.resolveRoleDefinition(entry.RoleDefinitionIDOrName)
		if err != nil {
			return nil, fmt.Errorf("roleAssignments[%d]: %w", i, err)
		}

		for _, principalID := range entry.PrincipalIDs {
			props := &armauthorization.RoleAssignmentProperties{
				PrincipalID:      to.Ptr(principalID),
				RoleDefinitionID: to.Ptr(roleDefinitionID),
			}
			if entry.PrincipalType != "" {
				props.PrincipalType = to.Ptr(armauthorization.PrincipalType(entry.PrincipalType))
			}
			if entry.Description != "" {
				props.Description = to.Ptr(entry.Description)
			}

			requests = append(requests, RoleAssignmentRequest{
				Name:  assignmentName(serverID, principalID, roleDefinitionID),
				Scope: serverID,
				Body:  armauthorization.RoleAssignmentCreateParameters{Properties: props},
			})
		}
	}
	return requests, nil
}

// resolveRoleDefinition accepts a fully-qualified role definition id, a bare
// definition GUID, or a built-in role name.
func (c *Composer) resolveRoleDefinition(ref string) (string, error) {
	if strings.Contains(ref, "/providers/Microsoft.Authorization/roleDefinitions/") {
		return ref, nil
	}
	if _, err := uuid.Parse(ref); err == nil {
		return fmt.Sprintf(roleDefinitionIDFormat, c.subscriptionID, ref), nil
	}
	if id, ok := builtInRoleIDs[ref]; ok {
		return fmt.Sprintf(roleDefinitionIDFormat, c.subscriptionID, id), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, ref)
}

// assignmentName derives the assignment GUID the way ARM's guid() function
// does: stable for the same scope, principal and role.
func assignmentName(scope, principalID, roleDefinitionID string) string {
	seed := strings.Join([]string{scope, principalID, roleDefinitionID}, "|")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
