package services

import (
	"fmt"
	"html/template"
	"strings"

	"paper-submission-api/models"
)

// RenderedEmail is the output of every template function.
type RenderedEmail struct {
	Subject string
	HTML    string
}

type emailMetaItem struct {
	Label string
	Value string
}

// emailParagraph is rendered as escaped Before, then Strong in bold, then
// After. Every part is escaped, so callers may pass user input anywhere.
type emailParagraph struct {
	Before string
	Strong string
	After  string
}

func plain(text string) emailParagraph {
	return emailParagraph{Before: text}
}

func escapeParagraphText(text string) string {
	escaped := template.HTMLEscapeString(text)
	escaped = strings.ReplaceAll(strings.ReplaceAll(escaped, "\r\n", "\n"), "\r", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br />")
}

func buildEmailTemplate(subject string, paragraphs []emailParagraph, meta []emailMetaItem, buttonText, buttonURL string) string {
	var contentBuilder strings.Builder
	for _, paragraph := range paragraphs {
		if strings.TrimSpace(paragraph.Before+paragraph.Strong+paragraph.After) == "" {
			continue
		}
		contentBuilder.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;word-break:break-word;">`)
		contentBuilder.WriteString(escapeParagraphText(paragraph.Before))
		if paragraph.Strong != "" {
			contentBuilder.WriteString("<strong>")
			contentBuilder.WriteString(escapeParagraphText(paragraph.Strong))
			contentBuilder.WriteString("</strong>")
		}
		contentBuilder.WriteString(escapeParagraphText(paragraph.After))
		contentBuilder.WriteString(`</p>`)
	}

	metaSection := ""
	rows := make([]emailMetaItem, 0, len(meta))
	for _, item := range meta {
		label := strings.TrimSpace(item.Label)
		value := strings.TrimSpace(item.Value)
		if label == "" || value == "" {
			continue
		}
		rows = append(rows, emailMetaItem{Label: label, Value: value})
	}
	if len(rows) > 0 {
		var metaBuilder strings.Builder
		metaBuilder.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="margin:0 0 24px 0;border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;"><tbody>`)
		for i, row := range rows {
			border := "border-bottom:1px solid #e5e7eb;"
			if i == len(rows)-1 {
				border = ""
			}
			metaBuilder.WriteString(fmt.Sprintf(`<tr><td style="padding:12px 16px;font-size:13px;color:#6b7280;width:38%%;%s">%s</td><td style="padding:12px 16px;font-size:15px;color:#111827;font-weight:600;%s">%s</td></tr>`,
				border, template.HTMLEscapeString(row.Label), border, template.HTMLEscapeString(row.Value)))
		}
		metaBuilder.WriteString(`</tbody></table>`)
		metaSection = metaBuilder.String()
	}

	buttonSection := ""
	if strings.TrimSpace(buttonText) != "" && strings.TrimSpace(buttonURL) != "" {
		buttonSection = fmt.Sprintf(`<div style="text-align:center;margin:12px 0 24px 0;"><a href="%s" style="display:inline-block;padding:12px 28px;background-color:#2563eb;color:#ffffff;text-decoration:none;border-radius:999px;font-weight:600;">%s</a></div>`,
			template.HTMLEscapeString(buttonURL), template.HTMLEscapeString(buttonText))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
<h1 style="margin:0 0 20px 0;font-size:22px;font-weight:700;color:#111827;line-height:1.35;">%s</h1>
<div style="color:#1f2937;font-size:16px;line-height:1.75;">
%s
</div>
%s
%s
</div>
</div>
</body>
</html>`, template.HTMLEscapeString(subject), template.HTMLEscapeString(subject), contentBuilder.String(), metaSection, buttonSection)
}

func greetingName(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}

// AssignmentData feeds AssignmentEmail.
type AssignmentData struct {
	ReviewerName string
	PaperTitle   string
	AuthorName   string
	DashboardURL string
}

func AssignmentEmail(d AssignmentData) RenderedEmail {
	subject := "New paper assigned for review"
	html := buildEmailTemplate(subject, []emailParagraph{
		plain(fmt.Sprintf("Dear %s,", greetingName(d.ReviewerName, "Reviewer"))),
		plain("A new paper has been assigned to you for review. Please sign in to the reviewer dashboard to read it and record your decision."),
	}, []emailMetaItem{
		{Label: "Paper title", Value: d.PaperTitle},
		{Label: "Author", Value: d.AuthorName},
	}, "Open dashboard", d.DashboardURL)
	return RenderedEmail{Subject: subject, HTML: html}
}

// StatusUpdateData feeds StatusUpdateEmail.
type StatusUpdateData struct {
	ReviewerName string
	PaperTitle   string
	AuthorName   string
	Status       string
}

func StatusUpdateEmail(d StatusUpdateData) RenderedEmail {
	subject := fmt.Sprintf("Submission status updated: %s", StatusLabel(d.Status))
	html := buildEmailTemplate(subject, []emailParagraph{
		plain(fmt.Sprintf("Dear %s,", greetingName(d.ReviewerName, "Reviewer"))),
		{Before: "The status of a paper assigned to you is now ", Strong: StatusLabel(d.Status), After: "."},
	}, []emailMetaItem{
		{Label: "Paper title", Value: d.PaperTitle},
		{Label: "Author", Value: d.AuthorName},
		{Label: "Status", Value: StatusLabel(d.Status)},
	}, "", "")
	return RenderedEmail{Subject: subject, HTML: html}
}

// DecisionData feeds the author decision templates.
type DecisionData struct {
	AuthorName string
	PaperTitle string
}

func DecisionSelectedEmail(d DecisionData) RenderedEmail {
	subject := "Congratulations! Your paper has been selected"
	html := buildEmailTemplate(subject, []emailParagraph{
		plain(fmt.Sprintf("Dear %s,", greetingName(d.AuthorName, "Author"))),
		{Before: "We are pleased to inform you that your paper has been ", Strong: "selected", After: " for presentation."},
		plain("Further details about the programme and presentation schedule will follow by email."),
	}, []emailMetaItem{
		{Label: "Paper title", Value: d.PaperTitle},
		{Label: "Decision", Value: StatusLabel(models.StatusSelected)},
	}, "", "")
	return RenderedEmail{Subject: subject, HTML: html}
}

func DecisionRejectedEmail(d DecisionData) RenderedEmail {
	subject := "Update on your paper submission"
	html := buildEmailTemplate(subject, []emailParagraph{
		plain(fmt.Sprintf("Dear %s,", greetingName(d.AuthorName, "Author"))),
		plain("Thank you for submitting your work. After careful review we regret to inform you that your paper was not selected this time."),
		plain("We appreciate your interest and encourage you to submit again in the future."),
	}, []emailMetaItem{
		{Label: "Paper title", Value: d.PaperTitle},
		{Label: "Decision", Value: StatusLabel(models.StatusRejected)},
	}, "", "")
	return RenderedEmail{Subject: subject, HTML: html}
}

// DecisionEmail picks the template for a decision status.
func DecisionEmail(status string, d DecisionData) (RenderedEmail, string, bool) {
	switch status {
	case models.StatusSelected:
		return DecisionSelectedEmail(d), KindDecisionSelected, true
	case models.StatusRejected:
		return DecisionRejectedEmail(d), KindDecisionRejected, true
	}
	return RenderedEmail{}, "", false
}

// CredentialsData feeds CredentialsEmail.
type CredentialsData struct {
	ReviewerName string
	Username     string
	Password     string
	LoginURL     string
}

func CredentialsEmail(d CredentialsData) RenderedEmail {
	subject := "Your reviewer account"
	html := buildEmailTemplate(subject, []emailParagraph{
		plain(fmt.Sprintf("Dear %s,", greetingName(d.ReviewerName, "Reviewer"))),
		plain("A reviewer account has been created for you on the paper submission portal. Please sign in with the credentials below and keep them confidential."),
	}, []emailMetaItem{
		{Label: "Username", Value: d.Username},
		{Label: "Password", Value: d.Password},
	}, "Sign in", d.LoginURL)
	return RenderedEmail{Subject: subject, HTML: html}
}

// SubmissionReceivedData feeds SubmissionReceivedEmail and NewSubmissionAlertEmail.
type SubmissionReceivedData struct {
	AuthorName   string
	PaperTitle   string
	Institution  string
	SubmissionID string
}

func SubmissionReceivedEmail(d SubmissionReceivedData) RenderedEmail {
	subject := "We received your paper submission"
	html := buildEmailTemplate(subject, []emailParagraph{
		plain(fmt.Sprintf("Dear %s,", greetingName(d.AuthorName, "Author"))),
		plain("Thank you for your submission. Our committee will review it and you will be notified by email once a decision is made."),
	}, []emailMetaItem{
		{Label: "Paper title", Value: d.PaperTitle},
		{Label: "Reference", Value: d.SubmissionID},
	}, "", "")
	return RenderedEmail{Subject: subject, HTML: html}
}

func NewSubmissionAlertEmail(d SubmissionReceivedData, dashboardURL string) RenderedEmail {
	subject := fmt.Sprintf("New submission: %s", strings.TrimSpace(d.PaperTitle))
	html := buildEmailTemplate(subject, []emailParagraph{
		plain("A new paper has been submitted and is waiting for reviewer assignment."),
	}, []emailMetaItem{
		{Label: "Paper title", Value: d.PaperTitle},
		{Label: "Author", Value: d.AuthorName},
		{Label: "Institution", Value: d.Institution},
		{Label: "Reference", Value: d.SubmissionID},
	}, "Open admin dashboard", dashboardURL)
	return RenderedEmail{Subject: subject, HTML: html}
}

// StatusLabel renders a status for humans.
func StatusLabel(status string) string {
	switch status {
	case models.StatusPending:
		return "Pending"
	case models.StatusAssigned:
		return "Under review"
	case models.StatusSelected:
		return "Selected"
	case models.StatusRejected:
		return "Rejected"
	}
	return status
}
