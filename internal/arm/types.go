package arm

import "time"

// Subscription as returned by the subscriptions list. State is "Enabled",
// "Disabled", "Warned", etc; only enabled subscriptions are actionable.
type Subscription struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscriptionId"`
	DisplayName    string `json:"displayName"`
	State          string `json:"state"`
}

// Enabled reports whether the subscription can be acted upon.
func (s Subscription) Enabled() bool { return s.State == "Enabled" }

// RoleAssignment links a principal to a role definition at a scope.
type RoleAssignment struct {
	ID         string                   `json:"id"`
	Properties RoleAssignmentProperties `json:"properties"`
}

type RoleAssignmentProperties struct {
	PrincipalID      string `json:"principalId"`
	RoleDefinitionID string `json:"roleDefinitionId"`
	Scope            string `json:"scope"`
}

// RoleDefinition carries the human-readable name for a role GUID.
type RoleDefinition struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Properties RoleDefinitionProperties `json:"properties"`
}

type RoleDefinitionProperties struct {
	RoleName string `json:"roleName"`
}

// DeploymentSpec is a subscription-scope template deployment request.
// Template and Parameters are passed through opaquely.
type DeploymentSpec struct {
	Location   string               `json:"location"`
	Properties DeploymentProperties `json:"properties"`
}

type DeploymentProperties struct {
	Mode       string `json:"mode"`
	Template   any    `json:"template,omitempty"`
	Parameters any    `json:"parameters,omitempty"`
}

// Deployment is the observable state of a template deployment.
type Deployment struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Location   string           `json:"location"`
	Properties DeploymentResult `json:"properties"`
}

type DeploymentResult struct {
	ProvisioningState string    `json:"provisioningState"`
	CorrelationID     string    `json:"correlationId,omitempty"`
	Timestamp         time.Time `json:"timestamp,omitempty"`
}

// Terminal reports whether the deployment has finished, successfully or
// not.
func (d Deployment) Terminal() bool {
	switch d.Properties.ProvisioningState {
	case "Succeeded", "Failed", "Canceled":
		return true
	}
	return false
}

// Succeeded reports a successfully provisioned deployment.
func (d Deployment) Succeeded() bool {
	return d.Properties.ProvisioningState == "Succeeded"
}

// RegistrationDefinition is a cross-tenant delegation registered at a
// subscription. Created by template deployment, read back for
// verification.
type RegistrationDefinition struct {
	ID         string                           `json:"id"`
	Name       string                           `json:"name"`
	Properties RegistrationDefinitionProperties `json:"properties"`
}

type RegistrationDefinitionProperties struct {
	Description          string          `json:"description,omitempty"`
	RegistrationName     string          `json:"registrationDefinitionName,omitempty"`
	ManagedByTenantID    string          `json:"managedByTenantId"`
	ManagedByTenantName  string          `json:"managedByTenantName,omitempty"`
	ProvisioningState    string          `json:"provisioningState,omitempty"`
	Authorizations       []Authorization `json:"authorizations"`
}

// Authorization grants one principal one role within a delegation.
type Authorization struct {
	PrincipalID            string `json:"principalId"`
	PrincipalIDDisplayName string `json:"principalIdDisplayName,omitempty"`
	RoleDefinitionID       string `json:"roleDefinitionId"`
}

// RegistrationAssignment binds a registration definition to the
// subscription it was queried at. The expanded form carries the full
// definition, used as the fallback source for the managing tenant name.
type RegistrationAssignment struct {
	ID         string                           `json:"id"`
	Properties RegistrationAssignmentProperties `json:"properties"`
}

type RegistrationAssignmentProperties struct {
	RegistrationDefinitionID string                  `json:"registrationDefinitionId"`
	RegistrationDefinition   *RegistrationDefinition `json:"registrationDefinition,omitempty"`
}
