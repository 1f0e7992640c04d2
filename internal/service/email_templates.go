package service

import (
	"bytes"
	"html/template"
	"strings"
)

const (
	confirmationSubject = "Confirmação de Manifestação - Ouvidoria Igreja Novos Começos"
	updateSubjectPrefix = "Atualização da Manifestação "
	anonymousGreeting   = "Prezado(a) solicitante"
)

type emailContent struct {
	Greeting  string
	Intro     string
	Protocol  string
	Status    string
	StatusCSS string
	Summary   string
	PortalURL string
}

var ticketEmailTemplate = template.Must(template.New("ticket_email").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
    .container { max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; }
    .header { background: #1e40af; color: white; padding: 30px; text-align: center; }
    .content { padding: 30px; }
    .protocol { background: #eff6ff; border: 1px solid #dbeafe; border-radius: 6px; padding: 15px; margin: 20px 0; text-align: center; }
    .status { display: inline-block; padding: 8px 16px; border-radius: 20px; font-weight: bold; margin: 10px 0; background: #dbeafe; color: #1e40af; }
    .status.aberto { background: #fef3c7; color: #92400e; }
    .status.fechado { background: #d1fae5; color: #065f46; }
    .footer { background: #f8fafc; padding: 20px; text-align: center; color: #64748b; font-size: 14px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Ouvidoria Igreja Novos Começos</h1>
      <p>Acompanhamento de Manifestação</p>
    </div>
    <div class="content">
      <p>{{.Greeting}},</p>
      <p>{{.Intro}}</p>
      <div class="protocol"><strong>Código da Manifestação: {{.Protocol}}</strong></div>
      <p><strong>Status atual:</strong></p>
      <div class="status {{.StatusCSS}}">{{.Status}}</div>
      {{if .Summary}}<p><strong>Resumo da tratativa:</strong></p>
      <p>{{.Summary}}</p>{{end}}
      <p>Para acompanhar o andamento completo de sua manifestação, acesse nosso portal e informe o código acima.</p>
      {{if .PortalURL}}<p><a href="{{.PortalURL}}">{{.PortalURL}}</a></p>{{end}}
      <p>Agradecemos por utilizar nossos serviços.</p>
      <p>Atenciosamente,<br><strong>Equipe da Ouvidoria</strong><br>Igreja Novos Começos</p>
    </div>
    <div class="footer">
      <p>Este é um email automático. Não responda a esta mensagem.</p>
    </div>
  </div>
</body>
</html>
`))

func greeting(name *string) string {
	if name == nil || strings.TrimSpace(*name) == "" {
		return anonymousGreeting
	}
	return "Prezado(a) " + strings.TrimSpace(*name)
}

func updateSubject(protocol string) string {
	return updateSubjectPrefix + protocol
}

func statusCSSClass(status string) string {
	return strings.ToLower(strings.ReplaceAll(status, " ", ""))
}

func renderTicketEmail(content emailContent) (string, error) {
	var buf bytes.Buffer
	if err := ticketEmailTemplate.Execute(&buf, content); err != nil {
		return "", err
	}
	return buf.String(), nil
}
