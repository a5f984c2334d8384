package graph

// OriginSystemGroup is the origin system tag for directory groups registered
// as catalog resources.
const OriginSystemGroup = "AadGroup"

// User is a directory user, guest or member. EmployeeID carries the
// correlating tag the auto-assignment policy targets.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	UserType          string `json:"userType,omitempty"`
	EmployeeID        string `json:"employeeId,omitempty"`
}

// Group is a directory security group.
type Group struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	Description     string `json:"description,omitempty"`
	MailNickname    string `json:"mailNickname,omitempty"`
	MailEnabled     bool   `json:"mailEnabled"`
	SecurityEnabled bool   `json:"securityEnabled"`
}

// GroupSpec is the creation payload for a security group.
type GroupSpec struct {
	DisplayName     string `json:"displayName"`
	Description     string `json:"description,omitempty"`
	MailNickname    string `json:"mailNickname"`
	MailEnabled     bool   `json:"mailEnabled"`
	SecurityEnabled bool   `json:"securityEnabled"`
}

// DirectoryRole is an activated built-in role. Roles exist as templates
// until activated; only activated roles carry an id and accept members.
type DirectoryRole struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	RoleTemplateID string `json:"roleTemplateId"`
}

// RoleTemplate is the latent form of a built-in role.
type RoleTemplate struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// DirectoryObject is the minimal shape of a role member reference.
type DirectoryObject struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// InvitationSpec is the creation payload for a guest invitation.
type InvitationSpec struct {
	InvitedUserDisplayName  string `json:"invitedUserDisplayName"`
	InvitedUserEmailAddress string `json:"invitedUserEmailAddress"`
	InviteRedirectURL       string `json:"inviteRedirectUrl"`
	SendInvitationMessage   bool   `json:"sendInvitationMessage"`
}

// Invitation is the response to a guest invitation; InvitedUser carries the
// freshly created (pending) principal.
type Invitation struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	InvitedUser *User  `json:"invitedUser"`
}

// Catalog is a named container for entitlement resources.
type Catalog struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
}

// CatalogRef is the foreign-key form of a catalog used in creation payloads.
type CatalogRef struct {
	ID string `json:"id"`
}

// AccessPackage is an assignable bundle of access owned by one catalog.
type AccessPackage struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Description string      `json:"description,omitempty"`
	IsHidden    bool        `json:"isHidden,omitempty"`
	Catalog     *CatalogRef `json:"catalog,omitempty"`
}

// Scope is the scope a catalog resource exposes. Its origin identifiers
// must be echoed verbatim into role-scope bindings; the platform validates
// referential consistency against them.
type Scope struct {
	ID           string `json:"id,omitempty"`
	OriginID     string `json:"originId"`
	OriginSystem string `json:"originSystem"`
}

// Resource is a directory object registered for use inside a catalog.
// Scopes is only populated when the fetch expands it.
type Resource struct {
	ID           string  `json:"id,omitempty"`
	DisplayName  string  `json:"displayName,omitempty"`
	OriginID     string  `json:"originId"`
	OriginSystem string  `json:"originSystem"`
	Scopes       []Scope `json:"scopes,omitempty"`
}

// ResourceRequestSpec registers a resource into a catalog. RequestType
// "adminAdd" is immediate, with no approval workflow.
type ResourceRequestSpec struct {
	RequestType string      `json:"requestType"`
	Catalog     *CatalogRef `json:"catalog"`
	Resource    *Resource   `json:"resource"`
}

// ResourceRole is a role exposed by a catalog resource (e.g. group
// "Member").
type ResourceRole struct {
	ID           string    `json:"id,omitempty"`
	DisplayName  string    `json:"displayName"`
	OriginID     string    `json:"originId"`
	OriginSystem string    `json:"originSystem"`
	Resource     *Resource `json:"resource,omitempty"`
}

// RoleScopeBinding joins a resource role and a scope onto an access
// package. Role.Resource and Scope must resolve against the same catalog
// resource.
type RoleScopeBinding struct {
	ID    string        `json:"id,omitempty"`
	Role  *ResourceRole `json:"role"`
	Scope *Scope        `json:"scope"`
}

// AttributeRuleTarget is the rule-matched target of an auto-assignment
// policy. MembershipRule is platform-defined syntax passed through
// opaquely.
type AttributeRuleTarget struct {
	ODataType      string `json:"@odata.type"`
	Description    string `json:"description,omitempty"`
	MembershipRule string `json:"membershipRule"`
}

// AutomaticRequestSettings controls whether matching principals receive
// access without a manual request.
type AutomaticRequestSettings struct {
	RequestAccessForAllowedTargets bool `json:"requestAccessForAllowedTargets"`
}

// AssignmentPolicy auto-assigns an access package to principals matching
// its membership rule.
type AssignmentPolicy struct {
	ID                       string                    `json:"id,omitempty"`
	DisplayName              string                    `json:"displayName"`
	Description              string                    `json:"description,omitempty"`
	AllowedTargetScope       string                    `json:"allowedTargetScope,omitempty"`
	SpecificAllowedTargets   []AttributeRuleTarget     `json:"specificAllowedTargets,omitempty"`
	AutomaticRequestSettings *AutomaticRequestSettings `json:"automaticRequestSettings,omitempty"`
	AccessPackage            *AccessPackageRef         `json:"accessPackage,omitempty"`
}

// AccessPackageRef is the foreign-key form of an access package.
type AccessPackageRef struct {
	ID string `json:"id"`
}
