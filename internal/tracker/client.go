// internal/tracker/client.go
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"qalilab/pkg/config"
	"qalilab/pkg/connect"
	"qalilab/pkg/tenants"
)

// authMode controls how API requests are authenticated.
type authMode string

const (
	authBasic   authMode = "basic"   // static email + API token
	authConnect authMode = "connect" // per-request JWT signed with the tenant's shared secret
)

// Client wraps one Jira instance's REST surface. Basic-auth clients are
// process-wide; Connect clients are bound to a single installed tenant and
// obtained through Factory.ForTenant, which is what guarantees no call is
// ever made for a tenant without a registry entry.
type Client struct {
	baseURL    string
	projectKey string
	mode       authMode
	httpClient *http.Client
	log        *zap.SugaredLogger

	// basic mode
	email    string
	apiToken string

	// connect mode
	signer connect.Signer
	inst   tenants.Installation

	types *TypeCache
}

// NewBasicClient builds the single-tenant client from static configuration.
func NewBasicClient(cfg config.Config, types *TypeCache, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    normalizeBase(cfg.JiraBaseURL),
		projectKey: cfg.JiraProjectKey,
		mode:       authBasic,
		httpClient: &http.Client{},
		log:        log,
		email:      cfg.JiraEmail,
		apiToken:   cfg.JiraAPIToken,
		types:      types,
	}
}

// Factory mints tenant-bound Connect clients from the registry.
type Factory struct {
	store      tenants.Store
	signer     connect.Signer
	projectKey string
	types      *TypeCache
	log        *zap.SugaredLogger
}

func NewFactory(cfg config.Config, store tenants.Store, types *TypeCache, log *zap.SugaredLogger) *Factory {
	return &Factory{
		store:      store,
		signer:     connect.Signer{AppKey: cfg.AppKey, QSHCompat: cfg.QSHCompat},
		projectKey: cfg.JiraProjectKey,
		types:      types,
		log:        log,
	}
}

// ForTenant resolves the installation and returns a client for its instance.
// Unknown tenants get tenants.ErrNotInstalled and no HTTP ever happens.
func (f *Factory) ForTenant(ctx context.Context, clientKey string) (*Client, error) {
	inst, err := f.store.Get(ctx, clientKey)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    normalizeBase(inst.BaseURL),
		projectKey: f.projectKey,
		mode:       authConnect,
		httpClient: &http.Client{},
		log:        f.log,
		signer:     f.signer,
		inst:       inst,
		types:      f.types,
	}, nil
}

func normalizeBase(base string) string {
	base = strings.TrimRight(base, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base
}

// BrowseURL returns the human-facing link to an issue.
func (c *Client) BrowseURL(issueKey string) string {
	return fmt.Sprintf("%s/browse/%s", c.baseURL, issueKey)
}

// DefaultProject returns the configured default project key.
func (c *Client) DefaultProject() string { return c.projectKey }

// do performs one authenticated call and returns status + body. Credentials
// absent in basic mode fail here, explicitly, rather than going out
// unauthenticated.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal payload: %w", err)
		}
		payload = strings.NewReader(string(b))
	}
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, full, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch c.mode {
	case authConnect:
		tok, err := c.signer.Token(c.inst, method, path, query)
		if err != nil {
			return 0, nil, fmt.Errorf("sign outbound token: %w", err)
		}
		req.Header.Set("Authorization", "JWT "+tok)
	default:
		if c.email == "" || c.apiToken == "" {
			return 0, nil, fmt.Errorf("jira credentials not configured")
		}
		req.SetBasicAuth(c.email, c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// Issue holds the fields the generator cares about.
type Issue struct {
	Key         string
	Summary     string
	Description string
	ProjectKey  string
	Type        string
}

// GetIssue fetches one issue's summary/description/project/type.
func (c *Client) GetIssue(ctx context.Context, issueKey string) (Issue, error) {
	q := url.Values{"fields": {"summary,description,project,issuetype"}}
	status, body, err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/"+issueKey, q, nil)
	if err != nil {
		return Issue{}, err
	}
	if status != http.StatusOK {
		return Issue{}, fmt.Errorf("jira API error (HTTP %d): %s", status, string(body))
	}
	var result struct {
		Key    string `json:"key"`
		Fields struct {
			Summary     string `json:"summary"`
			Description string `json:"description"`
			Project     struct {
				Key string `json:"key"`
			} `json:"project"`
			IssueType struct {
				Name string `json:"name"`
			} `json:"issuetype"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return Issue{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return Issue{
		Key:         result.Key,
		Summary:     result.Fields.Summary,
		Description: result.Fields.Description,
		ProjectKey:  result.Fields.Project.Key,
		Type:        result.Fields.IssueType.Name,
	}, nil
}

// IssueTypes returns the issue-type names creatable in the default project.
// Failures are swallowed into an empty list — this only populates a select
// box, and a broken dropdown beats a broken page.
func (c *Client) IssueTypes(ctx context.Context) []string {
	cacheKey := c.baseURL + ":" + c.projectKey
	if names, ok := c.types.Get(ctx, cacheKey); ok {
		return names
	}
	q := url.Values{"projectKeys": {c.projectKey}}
	status, body, err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/createmeta", q, nil)
	if err != nil || status != http.StatusOK {
		return nil
	}
	var result struct {
		Projects []struct {
			IssueTypes []struct {
				Name string `json:"name"`
			} `json:"issuetypes"`
		} `json:"projects"`
	}
	if err := json.Unmarshal(body, &result); err != nil || len(result.Projects) == 0 {
		return nil
	}
	names := make([]string, 0, len(result.Projects[0].IssueTypes))
	for _, t := range result.Projects[0].IssueTypes {
		names = append(names, t.Name)
	}
	c.types.Put(ctx, cacheKey, names)
	return names
}

// IssueRef is one search hit.
type IssueRef struct {
	Key     string
	Summary string
}

// SearchIssues runs a JQL query, bounded by maxResults.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) ([]IssueRef, error) {
	q := url.Values{
		"jql":        {jql},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
		"fields":     {"summary"},
	}
	status, body, err := c.do(ctx, http.MethodGet, "/rest/api/2/search", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("jira API error (HTTP %d): %s", status, string(body))
	}
	var result struct {
		Issues []struct {
			Key    string `json:"key"`
			Fields struct {
				Summary string `json:"summary"`
			} `json:"fields"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	refs := make([]IssueRef, 0, len(result.Issues))
	for _, is := range result.Issues {
		refs = append(refs, IssueRef{Key: is.Key, Summary: is.Fields.Summary})
	}
	return refs, nil
}

// MyPermissions queries /mypermissions and reports which of the requested
// permission keys the authenticated principal holds. Diagnostic use only.
func (c *Client) MyPermissions(ctx context.Context, keys []string) (map[string]bool, error) {
	q := url.Values{"permissions": {strings.Join(keys, ",")}}
	status, body, err := c.do(ctx, http.MethodGet, "/rest/api/2/mypermissions", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("mypermissions returned %d: %s", status, string(body))
	}
	var result struct {
		Permissions map[string]struct {
			HavePermission bool `json:"havePermission"`
		} `json:"permissions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode mypermissions: %w", err)
	}
	grants := make(map[string]bool, len(result.Permissions))
	for k, p := range result.Permissions {
		grants[k] = p.HavePermission
	}
	return grants, nil
}
