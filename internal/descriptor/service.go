// internal/descriptor/service.go
package descriptor

import (
	"encoding/json"
	"os"
	"strings"

	"qalilab/pkg/config"
)

type Vendor struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Authentication struct {
	Type string `json:"type"`
}

type Lifecycle struct {
	Installed   string `json:"installed"`
	Uninstalled string `json:"uninstalled"`
}

type WebItem struct {
	Key      string         `json:"key"`
	Location string         `json:"location"`
	Name     map[string]any `json:"name"`
	URL      string         `json:"url"`
}

type WebPanel struct {
	Key      string         `json:"key"`
	Location string         `json:"location"`
	Name     map[string]any `json:"name"`
	URL      string         `json:"url"`
}

type GeneralPage struct {
	Key  string         `json:"key"`
	Name map[string]any `json:"name"`
	URL  string         `json:"url"`
}

type Modules struct {
	WebItems     []WebItem     `json:"webItems"`
	WebPanels    []WebPanel    `json:"webPanels"`
	GeneralPages []GeneralPage `json:"generalPages"`
}

// Descriptor is the Connect manifest Jira fetches before installing the app.
type Descriptor struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Key            string         `json:"key"`
	BaseURL        string         `json:"baseUrl"`
	Vendor         Vendor         `json:"vendor"`
	Authentication Authentication `json:"authentication"`
	APIVersion     int            `json:"apiVersion"`
	Lifecycle      Lifecycle      `json:"lifecycle"`
	Scopes         []string       `json:"scopes"`
	Modules        Modules        `json:"modules"`
}

// Build returns the descriptor to serve: the on-disk file when present (so a
// hand-edited manifest wins), the generated default otherwise. baseUrl is
// always rewritten to the currently configured public URL.
func Build(cfg config.Config) Descriptor {
	d, ok := fromFile(cfg.DescriptorFile)
	if !ok {
		d = defaultDescriptor(cfg)
	}
	d.BaseURL = strings.TrimRight(cfg.BasePublicURL, "/")
	return d
}

func fromFile(path string) (Descriptor, bool) {
	if path == "" {
		return Descriptor{}, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, false
	}
	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return Descriptor{}, false
	}
	return d, true
}

func defaultDescriptor(cfg config.Config) Descriptor {
	name := map[string]any{"value": "Générer des cas de test"}
	return Descriptor{
		Name:           "QALILAB AI",
		Description:    "Génération de cas de test à partir de user stories",
		Key:            cfg.AppKey,
		Vendor:         Vendor{Name: "Qalilab", URL: "https://qalilab.com"},
		Authentication: Authentication{Type: "jwt"},
		APIVersion:     1,
		Lifecycle:      Lifecycle{Installed: "/installed", Uninstalled: "/uninstalled"},
		Scopes:         []string{"READ", "WRITE"},
		Modules: Modules{
			WebItems: []WebItem{{
				Key:      "qalilab-generate-link",
				Location: "operations-work",
				Name:     name,
				URL:      "/jira-panel?issueKey={issue.key}&summary={issue.summary}&description={issue.description}",
			}},
			WebPanels: []WebPanel{{
				Key:      "qalilab-issue-panel",
				Location: "atl.jira.view.issue.right.context",
				Name:     map[string]any{"value": "Cas de test"},
				URL:      "/jira-panel?issueKey={issue.key}",
			}},
			GeneralPages: []GeneralPage{{
				Key:  "qalilab-home",
				Name: map[string]any{"value": "QALILAB AI"},
				URL:  "/",
			}},
		},
	}
}
