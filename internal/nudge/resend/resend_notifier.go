package resend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"

	"github.com/taharajati/habit-tracker/internal/nudge"
)

const defaultFrom = "onboarding@resend.dev"

type ResendNotifier struct {
	ApiKey string
	Email  string
	From   string
}

var emailTemplate = template.Must(template.New("email").Parse(`
<p>These streaks end unless you record them in the next {{.HoursLeft}} hours ({{.Day}}):</p>
<ul>
{{range .Habits}}
  <li>{{.Name}}: {{.Streak}} in a row</li>
{{end}}
</ul>
`))

func render(m nudge.Message) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func subject(m nudge.Message) string {
	if len(m.Habits) == 1 {
		return fmt.Sprintf("Your %s streak is about to end", m.Habits[0].Name)
	}
	return fmt.Sprintf("%d streaks are about to end", len(m.Habits))
}

func (r *ResendNotifier) SendNudge(ctx context.Context, m nudge.Message) error {
	if r.ApiKey == "" || r.Email == "" {
		return errors.New("resend api key and recipient email are required")
	}
	html, err := render(m)
	if err != nil {
		return err
	}

	from := r.From
	if from == "" {
		from = defaultFrom
	}
	client := resend.NewClient(r.ApiKey)
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{r.Email},
		Subject: subject(m),
		Html:    html,
	}

	_, err = client.Emails.SendWithContext(ctx, params)
	return err
}

var _ nudge.Notifier = (*ResendNotifier)(nil)
