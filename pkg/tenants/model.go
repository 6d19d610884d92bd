package tenants

import "time"

// Installation is one tenant's trust record, established by the "installed"
// lifecycle callback and destroyed by "uninstalled". The shared secret signs
// and verifies every JWT exchanged with that tenant's Jira instance.
type Installation struct {
	ClientKey    string    // stable tenant identifier assigned by the platform
	BaseURL      string    // tenant's Jira instance, e.g. https://acme.atlassian.net
	SharedSecret string    // HS256 key; never logged, never echoed
	PublicKey    string    // optional, informational
	InstalledAt  time.Time
}
