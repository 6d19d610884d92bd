// internal/web/diagnostics.go
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"qalilab/internal/descriptor"
	"qalilab/pkg/tenants"
)

// checkEnv reports credential presence with the values masked. The secret and
// token never leave the process.
func (a *App) checkEnv(w http.ResponseWriter, r *http.Request) {
	email := ""
	if a.cfg.JiraEmail != "" {
		if len(a.cfg.JiraEmail) > 3 {
			email = a.cfg.JiraEmail[:3] + "***"
		} else {
			email = "***"
		}
	}
	token := ""
	if a.cfg.JiraAPIToken != "" {
		token = "***"
	}
	writeJSON(w, map[string]any{
		"JIRA_BASE_URL":    a.cfg.JiraBaseURL,
		"JIRA_EMAIL":       email,
		"JIRA_API_TOKEN":   token,
		"JIRA_PROJECT_KEY": a.cfg.JiraProjectKey,
		"GENERATE_API_URL": a.cfg.GenerateURL,
	}, http.StatusOK)
}

// checkAppStatus is the install-debugging endpoint: is the descriptor
// readable, are the mandatory variables set, what URLs is the app announcing.
func (a *App) checkAppStatus(w http.ResponseWriter, r *http.Request) {
	_, statErr := os.Stat(a.cfg.DescriptorFile)
	descriptorExists := statErr == nil

	base := strings.TrimRight(a.cfg.BasePublicURL, "/")
	writeJSON(w, map[string]any{
		"app_running":        true,
		"descriptor_exists":  descriptorExists,
		"descriptor_content": descriptor.Build(a.cfg),
		"env_vars": map[string]bool{
			"JIRA_BASE_URL":    a.cfg.JiraBaseURL != "",
			"JIRA_EMAIL":       a.cfg.JiraEmail != "",
			"JIRA_API_TOKEN":   a.cfg.JiraAPIToken != "",
			"JIRA_PROJECT_KEY": a.cfg.JiraProjectKey != "",
		},
		"app_url":        base,
		"descriptor_url": base + "/atlassian-connect.json",
		"installations":  a.installationCount(r),
	}, http.StatusOK)
}

func (a *App) installationCount(r *http.Request) int {
	list, err := a.store.List(r.Context())
	if err != nil {
		return 0
	}
	return len(list)
}

// forceInstall writes a tenant record by hand, bypassing the lifecycle
// callback. Recovery tool for when a restart dropped an in-memory
// installation or Jira will not re-send the callback: the operator pastes the
// known clientKey/baseUrl/sharedSecret and trust is restored. The secret is
// accepted but never echoed back.
func (a *App) forceInstall(w http.ResponseWriter, r *http.Request) {
	var p struct {
		ClientKey    string `json:"clientKey"`
		BaseURL      string `json:"baseUrl"`
		SharedSecret string `json:"sharedSecret"`
		PublicKey    string `json:"publicKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, map[string]any{"success": false, "message": "corps JSON invalide"}, http.StatusBadRequest)
		return
	}
	if p.ClientKey == "" || p.BaseURL == "" || p.SharedSecret == "" {
		writeJSON(w, map[string]any{"success": false, "message": "champs requis: clientKey, baseUrl, sharedSecret"}, http.StatusBadRequest)
		return
	}
	err := a.store.Put(r.Context(), tenants.Installation{
		ClientKey:    p.ClientKey,
		BaseURL:      p.BaseURL,
		SharedSecret: p.SharedSecret,
		PublicKey:    p.PublicKey,
		InstalledAt:  time.Now().UTC(),
	})
	if err != nil {
		a.log.Errorw("force install failed", "clientKey", p.ClientKey, "err", err)
		writeJSON(w, map[string]any{"success": false, "message": fmt.Sprintf("Erreur: %v", err)}, http.StatusInternalServerError)
		return
	}
	a.log.Infow("tenant force-installed", "clientKey", p.ClientKey, "baseUrl", p.BaseURL)
	writeJSON(w, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Installation forcée pour %s", p.ClientKey),
		"clientKey": p.ClientKey,
	}, http.StatusOK)
}

// checkJiraAuth probes the tracker with the configured credentials and
// reports which permissions the account actually holds.
func (a *App) checkJiraAuth(w http.ResponseWriter, r *http.Request) {
	grants, err := a.jira.MyPermissions(r.Context(), []string{"BROWSE_PROJECTS", "CREATE_ISSUES", "EDIT_ISSUES", "ADD_COMMENTS"})
	if err != nil {
		writeJSON(w, map[string]any{"ok": false, "error": err.Error()}, http.StatusOK)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "permissions": grants}, http.StatusOK)
}
