package core

import (
	"bytes"
	htmltmpl "html/template"
	"log"
	"net/mail"
	"sync"
	texttmpl "text/template"

	appfs "github.com/scanmark/backend/fs"
)

var (
	textTemplates *texttmpl.Template
	htmlTemplates *htmltmpl.Template
	tmplInit      sync.Once
)

type (
	EmailMessage struct {
		To           []mail.Address
		Cc           []mail.Address
		Bcc          []mail.Address
		Subject      string
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// EmailService sends messages asynchronously; delivery failures are
	// logged, never returned.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) renderText() error {
	if m.TextContent != "" || m.TemplateName == "" {
		return nil
	}
	var buff bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&buff, m.TemplateName+".txt", m.TemplateData); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML() error {
	if m.HTMLContent != "" || m.TemplateName == "" {
		return nil
	}
	tmpl := htmlTemplates.Lookup(m.TemplateName + ".gohtml")
	if tmpl == nil {
		return nil
	}
	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.TemplateData); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	if m.TemplateName != "" {
		tmplInit.Do(parseTemplates) // only execute once during first request
	}
	if err := m.renderText(); err != nil {
		return err
	}
	return m.renderHTML()
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

func parseTemplates() {
	var err error
	if textTemplates, err = texttmpl.ParseFS(appfs.FS, "assets/templates/email/*.txt"); err != nil {
		log.Printf("core.parseTemplates: %v", err)
	}
	if htmlTemplates, err = htmltmpl.ParseFS(appfs.FS, "assets/templates/email/*.gohtml"); err != nil {
		log.Printf("core.parseTemplates: %v", err)
	}
}
