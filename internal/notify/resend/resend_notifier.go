package resend

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"

	"github.com/arjn/leetrack/internal/notify"
)

type ResendNotifier struct {
	ApiKey string
	From   string
}

const htmlTemplate = `
<h2>Hi {{.DisplayName}}!</h2>
<p>We noticed you haven't solved anything on LeetCode for
<strong>{{.DaysInactive}}</strong> day{{if ne .DaysInactive 1}}s{{end}}.</p>
<p>Your progress so far:</p>
<ul>
  <li><strong>{{.TotalSolved}}</strong> problems solved</li>
  <li><strong>{{.LongestStreak}}</strong> day longest streak</li>
</ul>
<p>Even one problem a day keeps the streak alive.
<a href="https://leetcode.com/problemset/">Pick one up now</a>.</p>
`

func (r *ResendNotifier) SendAlert(ctx context.Context, alert notify.Alert) error {
	tmpl, err := template.New("email").Parse(htmlTemplate)
	if err != nil {
		return err
	}

	name := alert.Name
	if name == "" {
		name = alert.Username
	}
	data := struct {
		DisplayName   string
		DaysInactive  int
		TotalSolved   int
		LongestStreak int
	}{
		DisplayName:   name,
		DaysInactive:  alert.DaysInactive,
		TotalSolved:   alert.TotalSolved,
		LongestStreak: alert.LongestStreak,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	client := resend.NewClient(r.ApiKey)
	params := &resend.SendEmailRequest{
		From:    r.From,
		To:      []string{alert.Email},
		Subject: fmt.Sprintf("LeetCode activity alert: %d days away", alert.DaysInactive),
		Html:    buf.String(),
	}

	_, err = client.Emails.SendWithContext(ctx, params)
	return err
}

var _ notify.Notifier = (*ResendNotifier)(nil)
