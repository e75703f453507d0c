// Package templates holds the email and HTML page templates, compiled into
// the binary.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"
)

//go:embed mail/*.txt pages/*.html
var files embed.FS

// Site identifies the deployment in emails and page titles.
type Site struct {
	Name   string
	Domain string
	Scheme string // defaults to https
}

// URL is the absolute base URL of the site, without a trailing slash.
func (s Site) URL() string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + s.Domain
}

// Base is embedded by every page's data.
type Base struct {
	Title string
	Site  Site
}

// Renderer executes the embedded templates. It is safe for concurrent use.
type Renderer struct {
	mail  *texttemplate.Template
	pages *htmltemplate.Template
}

// New parses every embedded template. A parse failure is a build defect, so
// callers treat the error as fatal.
func New() (*Renderer, error) {
	mail, err := texttemplate.ParseFS(files, "mail/*.txt")
	if err != nil {
		return nil, fmt.Errorf("templates: parse mail: %w", err)
	}
	pages, err := htmltemplate.ParseFS(files, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("templates: parse pages: %w", err)
	}
	return &Renderer{mail: mail, pages: pages}, nil
}

// Text renders a plain-text mail template such as "invitation_email.txt".
func (r *Renderer) Text(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.mail.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("templates: render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Page renders an HTML page such as "accepted.html". Output is buffered so a
// failing template never leaves a half-written response.
func (r *Renderer) Page(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.pages.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("templates: render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
