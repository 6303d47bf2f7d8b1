package report

import (
	"fmt"
	"html/template"
	"io"

	"github.com/avareg/quickscan/pkg/types"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Image Scan Results</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #add8e6; }
.PASSED { color: #006400; }
.FAILED { color: #ff0000; }
.NOT_APPLICABLE { color: #ffa500; }
</style>
</head>
<body>
<h1>Image Scan Results</h1>
<p>
Images scanned: {{.ImagesScanned}} |
Any failure: {{.AnyFailure}} |
Total scan time: {{.TotalElapsed}}
</p>
<table>
<tr><th>Image Name</th><th>Image Tag</th><th>Has Modified Files</th><th>Test Case</th><th>Status</th></tr>
{{range .Rows}}<tr><td>{{.ImageName}}</td><td>{{.Tag}}</td><td>{{.ModifiedFiles}}</td><td>{{.CheckName}}</td><td class="{{.Status}}">{{.Status}}</td></tr>
{{end}}</table>
{{if .DetailedRows}}<h2>Check Details</h2>
<table>
<tr><th>Image</th><th>Check</th><th>Elapsed</th><th>Description</th><th>Help</th><th>Suggestion</th><th>Links</th></tr>
{{range .DetailedRows}}<tr><td>{{.ImageName}}:{{.Tag}}</td><td>{{.Name}}</td><td>{{.ElapsedTime}}</td><td>{{.Description}}</td><td>{{.Help}}</td><td>{{.Suggestion}}</td><td>{{if .KnowledgeBaseURL}}<a href="{{.KnowledgeBaseURL}}">kb</a>{{end}} {{if .CheckURL}}<a href="{{.CheckURL}}">check</a>{{end}}</td></tr>
{{end}}</table>
{{end}}</body>
</html>
`))

// WriteHTML renders the aggregate as a standalone HTML page, check rows
// sorted failures-first like the other formats.
func WriteHTML(w io.Writer, agg *types.AggregateResult) error {
	view := *agg
	view.Rows = sortedRows(agg.Rows)
	if err := htmlTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("error rendering html report: %w", err)
	}
	return nil
}
