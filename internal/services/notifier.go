package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"squeakyknees/internal/models"
)

// OwnerNotice tells a page owner about a new top-level comment.
type OwnerNotice struct {
	Page    *models.Page
	Owner   *models.User
	Author  *models.User
	Comment *models.Comment
}

// ApprovalNotice tells a comment author their comment went live.
type ApprovalNotice struct {
	Page    *models.Page
	Author  *models.User
	Comment *models.Comment
}

// Notifier is the outbound side of comment events. Callers treat failures as
// best effort and only log them.
type Notifier interface {
	NotifyOwnerNewComment(ctx context.Context, n OwnerNotice) error
	NotifyAuthorApproved(ctx context.Context, n ApprovalNotice) error
}

// MultiNotifier fans a notice out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyOwnerNewComment(ctx context.Context, n OwnerNotice) error {
	var errs []error
	for _, nt := range m {
		if err := nt.NotifyOwnerNewComment(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) NotifyAuthorApproved(ctx context.Context, n ApprovalNotice) error {
	var errs []error
	for _, nt := range m {
		if err := nt.NotifyAuthorApproved(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOwnerNewComment(context.Context, OwnerNotice) error  { return nil }
func (nopNotifier) NotifyAuthorApproved(context.Context, ApprovalNotice) error { return nil }

// email is a rendered message, shared by the SMTP and Resend senders.
type email struct {
	To      string
	Subject string
	HTML    string
}

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "owner"}}<p>{{.Author}} left a new comment on <strong>{{.Title}}</strong>:</p>
<blockquote>{{.Body}}</blockquote>
<p><a href="{{.PageURL}}">View the page</a> · <a href="{{.ModerationURL}}">Moderation queue</a></p>{{end}}
{{define "approved"}}<p>Hi {{.Author}},</p>
<p>Your comment on <strong>{{.Title}}</strong> has been approved and is now visible to everyone.</p>
<p><a href="{{.PageURL}}">View the page</a></p>{{end}}
`))

type emailData struct {
	Author        string
	Title         string
	Body          template.HTML
	PageURL       string
	ModerationURL string
}

// mailRenderer builds the owner and approval emails. Both the SMTP and the
// Resend notifier share it.
type mailRenderer struct {
	siteURL string
}

func (r mailRenderer) pageURL(p *models.Page) string {
	return strings.TrimRight(r.siteURL, "/") + "/" + strings.Trim(p.Slug, "/") + "/"
}

func (r mailRenderer) owner(n OwnerNotice) (email, bool, error) {
	if n.Owner == nil || n.Owner.Email == "" || n.Page == nil || n.Comment == nil {
		return email{}, false, nil
	}

	body, err := execute("owner", emailData{
		Author:        displayName(n.Author),
		Title:         n.Page.Title,
		Body:          ContentHTML(n.Comment.Content),
		PageURL:       r.pageURL(n.Page),
		ModerationURL: strings.TrimRight(r.siteURL, "/") + "/api/moderation/comments",
	})
	if err != nil {
		return email{}, false, err
	}
	return email{
		To:      n.Owner.Email,
		Subject: "New comment on: " + n.Page.Title,
		HTML:    body,
	}, true, nil
}

func (r mailRenderer) approved(n ApprovalNotice) (email, bool, error) {
	if n.Author == nil || n.Author.Email == "" || n.Page == nil {
		return email{}, false, nil
	}

	body, err := execute("approved", emailData{
		Author:  displayName(n.Author),
		Title:   n.Page.Title,
		PageURL: r.pageURL(n.Page),
	})
	if err != nil {
		return email{}, false, err
	}
	return email{
		To:      n.Author.Email,
		Subject: fmt.Sprintf("Your comment on '%s' was approved", n.Page.Title),
		HTML:    body,
	}, true, nil
}

func execute(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func displayName(u *models.User) string {
	if u == nil || u.Username == "" {
		return "Someone"
	}
	return u.Username
}

// ContentHTML renders clean comment content for display. Text blocks are
// already sanitized; code is escaped into a pre element.
func ContentHTML(content models.Content) template.HTML {
	var b strings.Builder
	for _, blk := range content {
		switch v := blk.(type) {
		case models.TextBlock:
			b.WriteString(v.HTML)
		case models.CodeBlock:
			b.WriteString("<pre><code")
			if v.Language != "" {
				b.WriteString(` class="language-`)
				b.WriteString(template.HTMLEscapeString(v.Language))
				b.WriteString(`"`)
			}
			b.WriteString(">")
			b.WriteString(template.HTMLEscapeString(v.Code))
			b.WriteString("</code></pre>")
		}
	}
	return template.HTML(b.String())
}
