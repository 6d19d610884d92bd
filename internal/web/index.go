// internal/web/index.go
package web

import (
	"net/http"
	"net/url"
	"strings"

	"qalilab/pkg/middleware"
)

// index renders the form and, when a story is present, the generated test
// case. GET drives the deep-link flow (query params + autoGenerate), POST the
// interactive one. Generation failures come back as displayable text from the
// client and are rendered like any result.
func (a *App) index(w http.ResponseWriter, r *http.Request) {
	data := indexData{Format: "gherkin", Language: "fr"}

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		data.Story = strings.TrimSpace(q.Get("story"))
		if f := q.Get("format"); f != "" {
			data.Format = f
		}
		if l := q.Get("language"); l != "" {
			data.Language = l
		}
		data.ReturnURL = q.Get("returnUrl")
		if k := q.Get("issueKey"); issueKeyRe.MatchString(k) {
			data.IssueKey = k
		}
		if data.Story != "" && strings.EqualFold(q.Get("autoGenerate"), "true") {
			prompt := a.builder.Build(data.Story, data.Format, data.Language)
			data.Generated = a.gen.Complete(r.Context(), prompt)
		}
	case http.MethodPost:
		if err := r.ParseForm(); err == nil {
			data.Story = strings.TrimSpace(r.PostFormValue("story"))
			if f := r.PostFormValue("format"); f != "" {
				data.Format = f
			}
			if l := r.PostFormValue("language"); l != "" {
				data.Language = l
			}
			data.ReturnURL = r.PostFormValue("returnUrl")
			if k := r.PostFormValue("issueKey"); issueKeyRe.MatchString(k) {
				data.IssueKey = k
			}
		}
		if data.Story != "" {
			prompt := a.builder.Build(data.Story, data.Format, data.Language)
			data.Generated = a.gen.Complete(r.Context(), prompt)
		}
	}

	data.IssueTypes = a.jira.IssueTypes(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		a.log.Errorw("index render", "err", err)
	}
}

// jiraPanel is the verified deep-link target. The issue key preferably comes
// from the token's embedded context; the query parameter is the fallback for
// older web-item URLs. The issue is read with the tenant's own credentials
// and the browser is bounced to the form with everything pre-filled.
func (a *App) jiraPanel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	q := r.URL.Query()

	issueKey := claims.IssueKey
	if issueKey == "" {
		issueKey = q.Get("issueKey")
	}
	language := q.Get("language")
	if language == "" {
		language = "fr"
	}

	story := strings.TrimSpace(q.Get("description"))
	returnURL := ""

	if issueKey != "" && issueKeyRe.MatchString(issueKey) {
		cli, err := a.factory.ForTenant(r.Context(), claims.ClientKey)
		if err == nil {
			returnURL = cli.BrowseURL(issueKey)
			if story == "" {
				if issue, err := cli.GetIssue(r.Context(), issueKey); err == nil {
					story = issue.Description
					if story == "" {
						story = issue.Summary
					}
				} else {
					a.log.Warnw("panel issue fetch failed", "issueKey", issueKey, "err", err)
				}
			}
		}
	}

	redirect := url.Values{
		"story":        {story},
		"returnUrl":    {returnURL},
		"language":     {language},
		"autoGenerate": {"true"},
	}
	if issueKey != "" && issueKeyRe.MatchString(issueKey) {
		redirect.Set("issueKey", issueKey)
	}
	http.Redirect(w, r, "/?"+redirect.Encode(), http.StatusFound)
}
