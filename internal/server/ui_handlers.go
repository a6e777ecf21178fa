package server

import (
	"html/template"
	"log/slog"
	"net/http"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>laserlines jobs</title></head>
<body>
<h1>Jobs</h1>
{{if .}}<table>
<tr><th>ID</th><th>State</th><th>Algorithm</th><th>Image</th><th>Progress</th><th>Segments</th><th></th></tr>
{{range .}}<tr>
<td><a href="/api/v1/jobs/{{.ID}}/status">{{.ID}}</a></td>
<td>{{.State}}</td>
<td>{{.Config.Algorithm}}</td>
<td>{{.Config.Image}}</td>
<td>{{if .Epochs}}{{.Epoch}}/{{.Epochs}}{{end}}</td>
<td>{{.Segments}}</td>
<td>{{if eq .State "completed"}}<a href="/api/v1/jobs/{{.ID}}/toolpath.gcode">G-code</a> <a href="/api/v1/jobs/{{.ID}}/preview.png">preview</a>{{end}}{{with .Error}} {{.}}{{end}}</td>
</tr>
{{end}}</table>{{else}}<p>No jobs yet.</p>{{end}}
</body>
</html>
`))

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := indexTemplate.Execute(w, s.jobManager.ListJobs()); err != nil {
		slog.Error("Failed to render index", "error", err)
	}
}
