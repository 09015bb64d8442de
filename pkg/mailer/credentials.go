package mailer

import (
	"bytes"
	"context"
	"html/template"
)

var planNames = map[string]string{
	"mensal":     "Plano Mensal",
	"trimestral": "Plano Trimestral",
	"anual":      "Plano Anual",
}

var credentialsTmpl = template.Must(template.New("credentials").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <div style="background: #10b981; color: #fff; padding: 24px; text-align: center;">
    <h1>Pagamento Confirmado!</h1>
    <p>Bem-vindo ao FitFoco, {{.Name}}!</p>
  </div>
  <div style="padding: 24px; background: #f9fafb;">
    <p>Seu pagamento foi confirmado e sua conta está pronta.</p>
    <p>Você adquiriu o <strong>{{.PlanName}}</strong>.</p>
    <div style="border: 2px solid #10b981; border-radius: 8px; padding: 16px; margin: 16px 0;">
      <p><strong>Email:</strong> {{.Email}}</p>
      <p><strong>Senha:</strong> <code>{{.Password}}</code></p>
    </div>
    <p><a href="{{.LoginURL}}" style="background: #10b981; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 5px;">Acessar minha conta</a></p>
    <p style="color: #6b7280; font-size: 13px;">Guarde esta senha em um local seguro. Você pode alterá-la após o primeiro login.</p>
  </div>
</body>
</html>
`))

// CredentialsSender delivers the welcome email with first-login credentials.
type CredentialsSender struct {
	mailer   *Mailer
	loginURL string
}

func NewCredentialsSender(m *Mailer, loginURL string) *CredentialsSender {
	return &CredentialsSender{mailer: m, loginURL: loginURL}
}

// SendCredentials sends the account credentials for a freshly provisioned user.
func (s *CredentialsSender) SendCredentials(ctx context.Context, email, password, name, planType string) error {
	planName, ok := planNames[planType]
	if !ok {
		planName = planType
	}

	var buf bytes.Buffer
	err := credentialsTmpl.Execute(&buf, map[string]string{
		"Name":     name,
		"Email":    email,
		"Password": password,
		"PlanName": planName,
		"LoginURL": s.loginURL,
	})
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, email, "Bem-vindo ao FitFoco! Suas Credenciais de Acesso", buf.String())
}
