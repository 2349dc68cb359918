package mail

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// StatusChange is the data shown in a status-change email.
type StatusChange struct {
	TaskID      int64
	Title       string
	Description string
	Status      string
	Priority    string
	Responsible string
	Performers  []string
	UpdatedAt   time.Time
}

// Subject returns the email subject for a status change.
func (c StatusChange) Subject() string {
	return fmt.Sprintf("Status of Task %d was Changed to %s", c.TaskID, c.Status)
}

const statusChangeTemplate = `# {{ .Subject }}

**{{ md .Title }}**

{{ if .Description }}{{ md .Description }}

{{ end }}| Field | Value |
|---|---|
| Status | {{ .Status }} |
| Priority | {{ .Priority }} |
| Responsible | {{ md .Responsible }} |
| Performers | {{ if .Performers }}{{ md (join .Performers ", ") }}{{ else }}none{{ end }} |
| Updated | {{ .UpdatedAt.UTC.Format "2006-01-02 15:04 MST" }} |
`

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

	tmplOnce sync.Once
	tmpl     *template.Template
)

// mdEscaper escapes the characters that would change Markdown structure
// inside a table cell or an inline span.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "#", `\#`,
	"\r\n", " ", "\n", " ",
)

func statusTemplate() *template.Template {
	tmplOnce.Do(func() {
		tmpl = template.Must(template.New("status_change").Funcs(template.FuncMap{
			"md":   mdEscaper.Replace,
			"join": strings.Join,
		}).Parse(statusChangeTemplate))
	})
	return tmpl
}

// RenderStatusChange returns the Markdown and HTML bodies for c.
func RenderStatusChange(c StatusChange) (markdownBody, htmlBody string, err error) {
	var md bytes.Buffer
	if err := statusTemplate().Execute(&md, c); err != nil {
		return "", "", fmt.Errorf("failed to render status change template: %w", err)
	}

	var html bytes.Buffer
	html.WriteString("<!DOCTYPE html>\n<html><body>\n")
	if err := markdown.Convert(md.Bytes(), &html); err != nil {
		return "", "", fmt.Errorf("failed to convert status change email to html: %w", err)
	}
	html.WriteString("</body></html>\n")

	return md.String(), html.String(), nil
}

// NewStatusChangeMessage builds the message sent to recipient for c.
func NewStatusChangeMessage(from, recipient string, c StatusChange) (Message, error) {
	text, html, err := RenderStatusChange(c)
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:     from,
		To:       recipient,
		Subject:  c.Subject(),
		TextBody: text,
		HTMLBody: html,
	}, nil
}
