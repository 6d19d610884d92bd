// internal/tracker/write.go
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var writebacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qalilab_tracker_writes_total",
	Help: "Tracker write operations by kind and outcome.",
}, []string{"kind", "outcome"})

// DescriptionSeparator sits between the previous description and appended
// content under the append policy.
const DescriptionSeparator = "\n\n--------------------\n\n"

// Update policies for UpdateDescription. Append preserves history below a
// visible separator; replace overwrites the field outright.
const (
	PolicyReplace = "replace"
	PolicyAppend  = "append"
)

// preferredTypes is the resolution order when no explicit issue type was
// requested.
var preferredTypes = []string{"Test", "Story", "Task", "Bug", "Sub-task"}

// ResolveIssueType picks the issue type for a new ticket: the explicit request
// wins, otherwise the first preferred name present among the project's types,
// otherwise "Story".
func ResolveIssueType(available []string, requested string) string {
	if requested != "" {
		return requested
	}
	have := make(map[string]bool, len(available))
	for _, t := range available {
		have[t] = true
	}
	for _, p := range preferredTypes {
		if have[p] {
			return p
		}
	}
	return "Story"
}

// CombineDescription applies the update policy to the current and new
// description values.
func CombineDescription(policy, current, added string) string {
	if policy != PolicyAppend || current == "" {
		return added
	}
	return current + DescriptionSeparator + added
}

// UpdateDescription writes a new description to the issue under the given
// policy. Write operations report (ok, message) — callers branch, nothing is
// raised.
func (c *Client) UpdateDescription(ctx context.Context, issueKey, content, policy string) (bool, string) {
	value := content
	if policy == PolicyAppend {
		current, err := c.GetIssue(ctx, issueKey)
		if err != nil {
			writebacks.WithLabelValues("description", "error").Inc()
			return false, fmt.Sprintf("Erreur: %v", err)
		}
		value = CombineDescription(policy, current.Description, content)
	}
	payload := map[string]any{"fields": map[string]any{"description": value}}
	status, body, err := c.do(ctx, http.MethodPut, "/rest/api/2/issue/"+issueKey, nil, payload)
	if err != nil {
		writebacks.WithLabelValues("description", "error").Inc()
		return false, fmt.Sprintf("Erreur: %v", err)
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		writebacks.WithLabelValues("description", "error").Inc()
		return false, fmt.Sprintf("Erreur: %d - %s", status, string(body))
	}
	writebacks.WithLabelValues("description", "ok").Inc()
	return true, "Description mise à jour avec succès"
}

// AddComment posts a comment body (plain text or Jira wiki markup) to the
// issue.
func (c *Client) AddComment(ctx context.Context, issueKey, body string) (bool, string) {
	payload := map[string]any{"body": body}
	status, respBody, err := c.do(ctx, http.MethodPost, "/rest/api/2/issue/"+issueKey+"/comment", nil, payload)
	if err != nil {
		writebacks.WithLabelValues("comment", "error").Inc()
		return false, fmt.Sprintf("Exception: %v", err)
	}
	if status != http.StatusCreated {
		writebacks.WithLabelValues("comment", "error").Inc()
		return false, fmt.Sprintf("Erreur: %d - %s", status, string(respBody))
	}
	writebacks.WithLabelValues("comment", "ok").Inc()
	return true, "Commentaire ajouté avec succès"
}

// CreateIssue creates a ticket in the default project and returns its key as
// the message on success.
func (c *Client) CreateIssue(ctx context.Context, summary, description, issueType string) (bool, string) {
	if issueType == "" {
		issueType = ResolveIssueType(c.IssueTypes(ctx), "")
	}
	payload := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": c.projectKey},
			"summary":     summary,
			"description": description,
			"issuetype":   map[string]string{"name": issueType},
		},
	}
	status, body, err := c.do(ctx, http.MethodPost, "/rest/api/2/issue/", nil, payload)
	if err != nil {
		writebacks.WithLabelValues("create", "error").Inc()
		return false, fmt.Sprintf("Erreur: %v", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		writebacks.WithLabelValues("create", "error").Inc()
		return false, fmt.Sprintf("Erreur API Jira: %d - %s", status, string(body))
	}
	var created struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.Key == "" {
		writebacks.WithLabelValues("create", "error").Inc()
		return false, fmt.Sprintf("Erreur: réponse illisible: %s", string(body))
	}
	writebacks.WithLabelValues("create", "ok").Inc()
	return true, created.Key
}

// LinkIssues creates a typed link between two issues — the workaround when a
// parent field cannot be set directly.
func (c *Client) LinkIssues(ctx context.Context, inwardKey, outwardKey, linkType string) (bool, string) {
	if linkType == "" {
		linkType = "Relates"
	}
	payload := map[string]any{
		"type":         map[string]string{"name": linkType},
		"inwardIssue":  map[string]string{"key": inwardKey},
		"outwardIssue": map[string]string{"key": outwardKey},
	}
	status, body, err := c.do(ctx, http.MethodPost, "/rest/api/2/issueLink", nil, payload)
	if err != nil {
		writebacks.WithLabelValues("link", "error").Inc()
		return false, fmt.Sprintf("Erreur: %v", err)
	}
	if status != http.StatusCreated && status != http.StatusOK && status != http.StatusNoContent {
		writebacks.WithLabelValues("link", "error").Inc()
		return false, fmt.Sprintf("Erreur: %d - %s", status, string(body))
	}
	writebacks.WithLabelValues("link", "ok").Inc()
	return true, fmt.Sprintf("Lien %s créé entre %s et %s", linkType, inwardKey, outwardKey)
}
