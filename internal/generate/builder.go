// internal/generate/builder.go
package generate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Output formats and languages recognized by the builder. Anything else falls
// back to the action/result format and French respectively, matching what the
// form submits.
const (
	FormatGherkin = "gherkin"
	FormatSteps   = "steps"

	LangFrench  = "fr"
	LangEnglish = "en"
)

const (
	defaultGherkinTmpl = "Voici une user story : \"%s\"\nEn tant qu'assistant de test, génère un scénario de test au format Gherkin (Given/When/Then) en %s."
	defaultStepsTmpl   = "Voici une user story : \"%s\"\nEn tant qu'assistant de test, génère un cas de test détaillant les actions à effectuer et les résultats attendus pour chaque action, en %s."
)

// Builder turns (story, format, language) into the instruction sent to the
// generation endpoint. Pure: same inputs, same string, no I/O at build time.
type Builder struct {
	gherkinTmpl string
	stepsTmpl   string
}

func NewBuilder() *Builder {
	return &Builder{gherkinTmpl: defaultGherkinTmpl, stepsTmpl: defaultStepsTmpl}
}

// LoadTemplates replaces the default instruction templates from a YAML file
// mapping "gherkin" and "steps" to templates with two %s slots (story, then
// language name). Missing keys keep their defaults.
func LoadTemplates(path string) (*Builder, error) {
	b := NewBuilder()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file %s: %w", path, err)
	}
	parsed := map[string]string{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	if t := parsed[FormatGherkin]; t != "" {
		b.gherkinTmpl = t
	}
	if t := parsed[FormatSteps]; t != "" {
		b.stepsTmpl = t
	}
	return b, nil
}

// Build embeds the story verbatim. Empty stories flow through; callers decide
// whether an empty story is worth a round trip.
func (b *Builder) Build(story, format, language string) string {
	lang := "français"
	if language == LangEnglish {
		lang = "anglais"
	}
	if format == FormatGherkin {
		return fmt.Sprintf(b.gherkinTmpl, story, lang)
	}
	return fmt.Sprintf(b.stepsTmpl, story, lang)
}
