// internal/web/template.go
package web

import "html/template"

// indexTmpl is the one interactive page: story input, format/language
// selectors, the generated result and the write-back controls.
var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="utf-8">
  <title>QALILAB AI — Générateur de cas de test</title>
  <style>
    body { font-family: sans-serif; max-width: 860px; margin: 2em auto; padding: 0 1em; }
    textarea { width: 100%; min-height: 8em; }
    pre { background: #f4f5f7; padding: 1em; white-space: pre-wrap; }
    label { display: block; margin-top: 1em; font-weight: bold; }
    button { margin-top: 1em; }
  </style>
</head>
<body>
  <h1>Générateur de cas de test</h1>
  <form method="post" action="/">
    <label for="story">User story</label>
    <textarea id="story" name="story" placeholder="En tant qu'utilisateur, je veux...">{{.Story}}</textarea>
    <label for="format">Format</label>
    <select id="format" name="format">
      <option value="gherkin" {{if eq .Format "gherkin"}}selected{{end}}>Gherkin (Given/When/Then)</option>
      <option value="steps" {{if ne .Format "gherkin"}}selected{{end}}>Actions / résultats attendus</option>
    </select>
    <label for="language">Langue</label>
    <select id="language" name="language">
      <option value="fr" {{if ne .Language "en"}}selected{{end}}>Français</option>
      <option value="en" {{if eq .Language "en"}}selected{{end}}>Anglais</option>
    </select>
    <input type="hidden" name="returnUrl" value="{{.ReturnURL}}">
    <input type="hidden" name="issueKey" value="{{.IssueKey}}">
    <button type="submit">Générer</button>
  </form>

  {{if .Generated}}
  <h2>Résultat</h2>
  <pre id="generated">{{.Generated}}</pre>
  <label for="issueType">Type de ticket</label>
  <select id="issueType" name="issueType">
    {{range .IssueTypes}}<option value="{{.}}">{{.}}</option>{{end}}
  </select>
  {{if .IssueKey}}
  <label for="mode">Destination ({{.IssueKey}})</label>
  <select id="mode" name="mode">
    <option value="">Nouveau ticket lié</option>
    <option value="comment">Commentaire sur l'issue</option>
    <option value="description">Description de l'issue</option>
  </select>
  {{end}}
  <input type="hidden" id="sourceIssueKey" value="{{.IssueKey}}">
  <button type="button" onclick="createTicket()">Créer un ticket Jira</button>
  <p id="ticket-status"></p>
  <script>
    function createTicket() {
      var modeSelect = document.getElementById('mode');
      var payload = {
        content: document.getElementById('generated').textContent,
        issueType: document.getElementById('issueType').value,
        issueKey: document.getElementById('sourceIssueKey').value,
        mode: modeSelect ? modeSelect.value : ''
      };
      fetch('/create_jira_ticket', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify(payload)
      }).then(function (r) { return r.json(); }).then(function (res) {
        document.getElementById('ticket-status').textContent =
          res.ticket_key ? 'Ticket créé: ' + res.ticket_key : res.message;
      }).catch(function (err) {
        document.getElementById('ticket-status').textContent = 'Erreur: ' + err;
      });
    }
  </script>
  {{end}}

  {{if .ReturnURL}}
  <p><a href="{{.ReturnURL}}">Retour à l'issue Jira</a></p>
  {{end}}
</body>
</html>
`))

type indexData struct {
	Story      string
	Format     string
	Language   string
	Generated  string
	ReturnURL  string
	IssueKey   string
	IssueTypes []string
}
