// Package config holds the run configuration for the onboarding pipelines.
// Everything the pipelines parameterise on (names, region, retry tuning)
// lives here explicitly so tests can inject fixture values instead of
// reaching for ambient state.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mspkit/delegate/internal/apierror"
)

// Credentials identifies the app registration the pipelines act as. The
// client secret is referenced by environment variable name, never stored in
// the config file.
type Credentials struct {
	TenantID        string `yaml:"tenantId"`
	ClientID        string `yaml:"clientId"`
	ClientSecretEnv string `yaml:"clientSecretEnv"`
}

// Retry tunes the bounded waits used for directory propagation.
type Retry struct {
	Count        int `yaml:"count"`
	DelaySeconds int `yaml:"delaySeconds"`
}

// Delay returns the inter-attempt delay as a duration.
func (r Retry) Delay() time.Duration {
	return time.Duration(r.DelaySeconds) * time.Second
}

// Lighthouse configures the delegation pipeline: the template deployed per
// subscription and the group/role pair verification checks against.
type Lighthouse struct {
	TemplateFile   string `yaml:"templateFile"`
	ParametersFile string `yaml:"parametersFile"`
	Location       string `yaml:"location"`
	GroupName      string `yaml:"groupName"`
	RoleName       string `yaml:"roleName"`
}

// Config is the full run configuration. Loaded from YAML with flag
// overrides applied by the command layer.
type Config struct {
	Credentials Credentials `yaml:"credentials"`

	GroupName        string `yaml:"groupName"`
	GroupDescription string `yaml:"groupDescription"`
	RoleName         string `yaml:"roleName"`
	CatalogName      string `yaml:"catalogName"`
	PackageName      string `yaml:"packageName"`
	PolicyName       string `yaml:"policyName"`
	EmployeeTag      string `yaml:"employeeTag"`
	MembershipRule   string `yaml:"membershipRule"`

	Retry      Retry      `yaml:"retry"`
	Lighthouse Lighthouse `yaml:"lighthouse"`

	// CacheDir persists the resource-manager response cache across runs.
	// Empty keeps the cache in memory for the run only.
	CacheDir string `yaml:"cacheDir"`

	// Endpoint overrides, used by tests. Empty means the public clouds.
	GraphBaseURL string `yaml:"graphBaseUrl"`
	ARMBaseURL   string `yaml:"armBaseUrl"`
}

// Defaults the command layer starts from before applying file and flags.
var Defaults = Config{
	GroupName:   "Managed Services Operators",
	RoleName:    "Security Reader",
	CatalogName: "Managed Services",
	PackageName: "Managed Services Access",
	PolicyName:  "Auto-assign managed operators",
	Retry:       Retry{Count: 6, DelaySeconds: 10},
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Defaults
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apierror.Configuration{Key: path, Msg: "config file not readable"}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &apierror.Configuration{Key: path, Msg: fmt.Sprintf("config file not valid YAML: %v", err)}
	}

	return &cfg, nil
}

// ClientSecret resolves the secret from the configured environment
// variable.
func (c *Config) ClientSecret() (string, error) {
	name := c.Credentials.ClientSecretEnv
	if name == "" {
		name = "DELEGATE_CLIENT_SECRET"
	}
	secret := os.Getenv(name)
	if secret == "" {
		return "", &apierror.Configuration{Key: name, Msg: "client secret environment variable not set"}
	}
	return secret, nil
}

// Rule returns the auto-assignment membership rule, deriving the standard
// employee-tag equality predicate when none is configured. The rule text is
// passed through to the platform opaquely.
func (c *Config) Rule() string {
	if c.MembershipRule != "" {
		return c.MembershipRule
	}
	return fmt.Sprintf("(user.employeeId -eq %q)", c.EmployeeTag)
}

// Validate checks the preconditions every pipeline shares. Pipeline-specific
// inputs (guest list, template files) are checked by their commands.
func (c *Config) Validate() error {
	if c.Credentials.TenantID == "" {
		return &apierror.Configuration{Key: "credentials.tenantId", Msg: "tenant id is required"}
	}
	if _, err := uuid.Parse(c.Credentials.TenantID); err != nil {
		return &apierror.Configuration{Key: c.Credentials.TenantID, Msg: "tenant id is not a GUID"}
	}
	if c.Credentials.ClientID == "" {
		return &apierror.Configuration{Key: "credentials.clientId", Msg: "client id is required"}
	}
	if c.GroupName == "" {
		return &apierror.Configuration{Key: "groupName", Msg: "group display name is required"}
	}
	if c.RoleName == "" {
		return &apierror.Configuration{Key: "roleName", Msg: "directory role name is required"}
	}
	if c.Retry.Count < 1 {
		return &apierror.Configuration{Key: "retry.count", Msg: "retry count must be at least 1"}
	}
	if c.Retry.DelaySeconds < 0 {
		return &apierror.Configuration{Key: "retry.delaySeconds", Msg: "retry delay must not be negative"}
	}
	return nil
}
