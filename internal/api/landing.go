package api

import (
	"html/template"
	"net/http"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>PDF Q&amp;A Server</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 600px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  pre { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; line-height: 1.5; }
  code, .endpoint { font-family: "SF Mono", "Fira Code", Menlo, monospace; }
  .endpoint { font-size: 0.9rem; color: #a5b4fc; }
  .status { display: inline-block; width: 8px; height: 8px; background: #22c55e; border-radius: 50%; margin-right: 0.5rem; }
</style>
</head>
<body>
<div class="card">
  <h1>PDF Q&amp;A Server</h1>
  <p class="subtitle">Answers questions about <code>{{.Document}}</code> ({{.Chunks}} chunks, generator {{.Generator}}).</p>

  <div class="section">
    <div class="section-title">Ask a question</div>
    <pre><code>curl -X POST -H 'Content-Type: application/json' \
  -d '{"question": "What is this document about?"}' \
  http://HOST/api/query</code></pre>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><span class="status"></span><span class="endpoint">POST /api/query</span> &mdash; Ask a question</p>
    <p><span class="status"></span><span class="endpoint">GET /health</span> &mdash; Health check</p>
    {{if .MCP}}<p><span class="status"></span><span class="endpoint">/mcp</span> &mdash; MCP Streamable HTTP</p>{{end}}
  </div>
</div>
</body>
</html>`))

// LandingInfo fills in the landing page.
type LandingInfo struct {
	Document  string
	Chunks    int
	Generator string
	MCP       bool
}

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler(info LandingInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingTemplate.Execute(w, info)
	}
}
