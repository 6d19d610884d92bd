// internal/web/api.go
package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type generateRequest struct {
	Story    string `json:"story"`
	Format   string `json:"format"`
	Language string `json:"language"`
}

// apiGenerate is the JSON face of the generator: {story, format, language} in,
// {result} out. Upstream failures are still 200s with the displayable error
// text as the result — the UI shows whatever came back.
func (a *App) apiGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]any{"error": "corps JSON invalide"}, http.StatusBadRequest)
		return
	}
	if req.Story == "" {
		writeJSON(w, map[string]any{"error": "champ manquant: story"}, http.StatusBadRequest)
		return
	}
	prompt := a.builder.Build(req.Story, req.Format, req.Language)
	result := a.gen.Complete(r.Context(), prompt)
	writeJSON(w, map[string]any{"result": result}, http.StatusOK)
}

type ticketRequest struct {
	Content   string `json:"content"`
	Summary   string `json:"summary"`
	IssueType string `json:"issueType"`
	IssueKey  string `json:"issueKey"`
	Mode      string `json:"mode"` // "", "comment" or "description"
}

// createTicket is the write-back endpoint. Without an issueKey it creates a
// ticket (and nothing else); with one it either comments, updates the
// description, or creates a ticket linked back to the source issue.
func (a *App) createTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]any{"success": false, "message": "corps JSON invalide"}, http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		writeJSON(w, map[string]any{"success": false, "message": "champ manquant: content"}, http.StatusBadRequest)
		return
	}
	if req.IssueKey != "" && !issueKeyRe.MatchString(req.IssueKey) {
		writeJSON(w, map[string]any{"success": false, "message": fmt.Sprintf("clé d'issue au format invalide: %q", req.IssueKey)}, http.StatusBadRequest)
		return
	}
	if req.Summary == "" {
		req.Summary = "Cas de test généré automatiquement"
	}

	switch {
	case req.IssueKey != "" && req.Mode == "comment":
		ok, msg := a.jira.AddComment(r.Context(), req.IssueKey, req.Content)
		writeJSON(w, map[string]any{"success": ok, "message": msg}, http.StatusOK)
	case req.IssueKey != "" && req.Mode == "description":
		ok, msg := a.jira.UpdateDescription(r.Context(), req.IssueKey, req.Content, a.cfg.DescriptionPolicy)
		writeJSON(w, map[string]any{"success": ok, "message": msg}, http.StatusOK)
	default:
		ok, result := a.jira.CreateIssue(r.Context(), req.Summary, req.Content, req.IssueType)
		if !ok {
			writeJSON(w, map[string]any{"success": false, "message": result}, http.StatusOK)
			return
		}
		// Parent isn't settable on create, so relate the new ticket to its
		// source issue instead.
		if req.IssueKey != "" {
			if linked, msg := a.jira.LinkIssues(r.Context(), result, req.IssueKey, "Relates"); !linked {
				a.log.Warnw("ticket link failed", "ticket", result, "issue", req.IssueKey, "msg", msg)
			}
		}
		writeJSON(w, map[string]any{"success": true, "ticket_key": result}, http.StatusOK)
	}
}

func (a *App) issueTypes(w http.ResponseWriter, r *http.Request) {
	types := a.jira.IssueTypes(r.Context())
	if types == nil {
		types = []string{}
	}
	writeJSON(w, map[string]any{"issue_types": types}, http.StatusOK)
}

// addLinkToIssue drops a comment with the generator deep link on one issue.
func (a *App) addLinkToIssue(w http.ResponseWriter, r *http.Request) {
	issueKey := chi.URLParam(r, "issueKey")
	if !issueKeyRe.MatchString(issueKey) {
		writeJSON(w, map[string]any{"success": false, "message": fmt.Sprintf("clé d'issue au format invalide: %q", issueKey)}, http.StatusBadRequest)
		return
	}
	ok, details := a.jira.AddComment(r.Context(), issueKey, a.generatorLinkComment(issueKey))
	if !ok {
		writeJSON(w, map[string]any{
			"success": false,
			"message": fmt.Sprintf("Erreur lors de l'ajout du lien à l'issue %s", issueKey),
			"details": details,
		}, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Lien ajouté à l'issue %s", issueKey),
		"details": details,
	}, http.StatusOK)
}

// addLinksToStories comments the generator link on every Story in the default
// project, then reports per-issue outcomes.
func (a *App) addLinksToStories(w http.ResponseWriter, r *http.Request) {
	jql := fmt.Sprintf("project = %s AND issuetype = 'Story' ORDER BY created DESC", a.jira.DefaultProject())
	issues, err := a.jira.SearchIssues(r.Context(), jql, 100)
	if err != nil {
		writeJSON(w, map[string]any{
			"success": false,
			"message": fmt.Sprintf("Erreur lors de la récupération des user stories: %v", err),
		}, http.StatusBadRequest)
		return
	}
	if len(issues) == 0 {
		writeJSON(w, map[string]any{"success": true, "message": "Aucune user story trouvée dans le projet"}, http.StatusOK)
		return
	}

	type outcome struct {
		IssueKey string `json:"issue_key"`
		Success  bool   `json:"success"`
		Message  string `json:"message"`
	}
	results := make([]outcome, 0, len(issues))
	successful := 0
	for _, is := range issues {
		ok, msg := a.jira.AddComment(r.Context(), is.Key, a.generatorLinkComment(is.Key))
		if ok {
			successful++
		}
		results = append(results, outcome{IssueKey: is.Key, Success: ok, Message: msg})
	}
	writeJSON(w, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Traitement terminé. %d liens ajoutés avec succès, %d échecs.", successful, len(results)-successful),
		"results": results,
	}, http.StatusOK)
}

func (a *App) generatorLinkComment(issueKey string) string {
	link := fmt.Sprintf("%s/jira-panel?issueKey=%s", a.cfg.BasePublicURL, issueKey)
	return fmt.Sprintf("Cliquez ici pour [Générer des cas de test|%s] pour cette user story.", link)
}
