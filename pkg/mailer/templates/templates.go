package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"

	"github.com/mitchellh/go-wordwrap"
)

//go:embed *.tmpl
var FS embed.FS

// MessageView is the message as seen by email templates.
type MessageView struct {
	ID            string    `json:"ID"`
	Subject       string    `json:"Subject"`
	Body          string    `json:"Body"`
	SenderName    string    `json:"SenderName"`
	RecipientName string    `json:"RecipientName"`
	SentAt        time.Time `json:"SentAt"`
	Path          string    `json:"Path"` // site-relative link to the message
}

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Company info
	CompanyName    string `json:"CompanyName"`
	CompanyAddress string `json:"CompanyAddress"`
	AppName        string `json:"AppName"`

	// URLs
	LogoURL        string `json:"LogoURL"`
	SupportURL     string `json:"SupportURL"`
	PrivacyURL     string `json:"PrivacyURL"`
	UnsubscribeURL string `json:"UnsubscribeURL"`

	// Subject is the localized subject line; the subject template falls
	// back to English when it is empty.
	Subject string `json:"Subject"`

	// SiteURL is "<protocol>://<domain>" of the current site
	SiteURL string      `json:"SiteURL"`
	Message MessageView `json:"Message"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		zero := reflect.Zero(rv.Type()).Interface()
		if reflect.DeepEqual(value, zero) {
			return fallback
		}
		return value
	}
}

// formatTime accepts a time.Time or an RFC 3339 string, the latter being
// what a job's Data holds after a JSON round trip.
func formatTime(v any, layout string) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout)
	case string:
		if p, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return p.Format(layout)
		}
		return t
	}
	return ""
}

// WrapWidth is the column text bodies are wrapped at.
const WrapWidth = 72

// wrap folds long lines of a plain text body.
func wrap(s string) string {
	return wordwrap.WrapString(s, WrapWidth)
}

func baseFuncs() map[string]any {
	return map[string]any{
		"now":        func() time.Time { return time.Now().UTC() },
		"formatTime": formatTime,
		"upper":      strings.ToUpper,
		"default":    defaultFn,
		"wrap":       wrap,
	}
}

// Template names
const (
	NewMessage = "new_message"
)

// set holds every embedded template, parsed once. HTML files go through
// html/template, subjects and text bodies through text/template.
type set struct {
	html *htmpl.Template
	text *texttpl.Template
}

var (
	parsed   set
	parseErr error
	once     sync.Once
)

func load() (set, error) {
	once.Do(func() {
		parsed.html, parseErr = htmpl.New("html").Funcs(htmpl.FuncMap(baseFuncs())).ParseFS(FS, "*.html.tmpl")
		if parseErr != nil {
			parseErr = fmt.Errorf("parse html templates: %w", parseErr)
			return
		}
		parsed.text, parseErr = texttpl.New("text").Funcs(texttpl.FuncMap(baseFuncs())).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl")
		if parseErr != nil {
			parseErr = fmt.Errorf("parse text templates: %w", parseErr)
		}
	})
	return parsed, parseErr
}

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
	Lookup(name string) bool
}

type htmlExec struct{ t *htmpl.Template }

func (e htmlExec) ExecuteTemplate(w io.Writer, name string, data any) error {
	return e.t.ExecuteTemplate(w, name, data)
}
func (e htmlExec) Lookup(name string) bool { return e.t.Lookup(name) != nil }

type textExec struct{ t *texttpl.Template }

func (e textExec) ExecuteTemplate(w io.Writer, name string, data any) error {
	return e.t.ExecuteTemplate(w, name, data)
}
func (e textExec) Lookup(name string) bool { return e.t.Lookup(name) != nil }

func execute(e executor, filename string, data any) (string, error) {
	if !e.Lookup(filename) {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, filename)
	}
	var buf bytes.Buffer
	if err := e.ExecuteTemplate(&buf, filename, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// ErrUnknownTemplate is returned for names without embedded files.
var ErrUnknownTemplate = errors.New("unknown email template")

// Exists reports whether name has subject, text and html files.
func Exists(name string) bool {
	s, err := load()
	if err != nil {
		return false
	}
	return s.text.Lookup(name+".subject.tmpl") != nil &&
		s.text.Lookup(name+".text.tmpl") != nil &&
		s.html.Lookup(name+".html.tmpl") != nil
}

// Render renders <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
func Render(name string, data any) (subject string, text string, html string, err error) {
	s, err := load()
	if err != nil {
		return "", "", "", err
	}
	subject, err = execute(textExec{s.text}, name+".subject.tmpl", data)
	if err != nil {
		return "", "", "", err
	}
	text, html, err = RenderBody(name, data)
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}

// RenderBody renders only the text and html bodies of a template.
func RenderBody(name string, data any) (text string, html string, err error) {
	s, err := load()
	if err != nil {
		return "", "", err
	}
	text, err = execute(textExec{s.text}, name+".text.tmpl", data)
	if err != nil {
		return "", "", err
	}
	html, err = execute(htmlExec{s.html}, name+".html.tmpl", data)
	if err != nil {
		return "", "", err
	}
	return text, html, nil
}
