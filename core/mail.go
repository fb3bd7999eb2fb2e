package core

import (
	"bytes"
	"embed"
	"net/mail"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/email/*.txt
var emailTemplatesFS embed.FS

var (
	templates map[string]*texttmpl.Template // {name: *Template}
	tmplErr   error
	tmplInit  sync.Once
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent from BodyStr or from the named template.
func (m *EmailMessage) Render(conf AppConfig) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}

	tmplInit.Do(parseTemplates) // only execute once during first render
	if tmplErr != nil {
		return errors.Wrap(tmplErr, "parsing email templates")
	}
	tmpl, ok := templates[m.TemplateName]
	if !ok {
		return errors.Errorf("email template %q not found", m.TemplateName)
	}

	var buff bytes.Buffer
	data := ContextData{AppName: conf.Name, FrontendBaseURL: conf.FrontendBaseURL, Data: m.TemplateData}
	if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
		return errors.Wrapf(err, "executing email template %q", m.TemplateName)
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }

func parseTemplates() {
	templates = make(map[string]*texttmpl.Template)
	entries, err := emailTemplatesFS.ReadDir("templates/email")
	if err != nil {
		tmplErr = err
		return
	}
	for _, e := range entries {
		fname := e.Name()
		if fname[0] == '_' {
			continue
		}
		tmpl, err := texttmpl.New(fname).Option("missingkey=error").ParseFS(
			emailTemplatesFS, "templates/email/_base.txt", "templates/email/"+fname,
		)
		if err != nil {
			tmplErr = err
			return
		}
		templates[fname[:len(fname)-len(".txt")]] = tmpl
	}
}
