package main

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/wesnick/gmcli/pkg/gmcli"
	"github.com/wesnick/gmcli/pkg/gmcli/reporting"
)

const defaultListLimit = 100

// messageListOutput is JSON output format for message lists
type messageListOutput struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Labels   []string `json:"labels"`
	Date     string   `json:"date"`
	From     string   `json:"from"`
	Subject  string   `json:"subject"`
	Snippet  string   `json:"snippet"`
}

// listLabelID maps the list command's label argument to a label filter.
// "all" lists every message; an empty result means no filter.
func listLabelID(ctx context.Context, resolver *gmcli.LabelResolver, label string) (string, error) {
	switch strings.ToLower(label) {
	case "", "inbox":
		return gmcli.Inbox.ID(), nil
	case "all":
		return "", nil
	case "drafts":
		return gmcli.Draft.ID(), nil
	}
	l, ok, err := resolver.Lookup(ctx, label)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &gmcli.LabelNotFoundError{Name: label}
	}
	return l.ID, nil
}

func listQuery(query string, unreadOnly bool) string {
	if !unreadOnly {
		return query
	}
	if query == "" {
		return "is:unread"
	}
	return "is:unread " + query
}

func runMessagesList(ctx context.Context, client *gmcli.Client, resolver *gmcli.LabelResolver, label, query string, unreadOnly bool, limit int64, out *outputWriter) error {
	labelID, err := listLabelID(ctx, resolver, label)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	ids, err := client.ListMessages(ctx, listQuery(query, unreadOnly), labelID, limit)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}
	if len(ids) == 0 && !out.json {
		out.writeMessage("No messages found")
		return nil
	}

	messages := make([]*gmcli.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := client.GetMessage(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get message %s: %w", id, err)
		}
		messages = append(messages, msg)
	}

	if out.json {
		output := make([]messageListOutput, len(messages))
		for i, msg := range messages {
			names, err := resolver.Names(ctx, msg.LabelIDs)
			if err != nil {
				log.Debugf("Could not resolve label names for %s: %v", msg.ID, err)
				names = msg.LabelIDs
			}
			from, _ := msg.Header("From")
			subject, _ := msg.Header("Subject")
			date, _ := msg.Header("Date")
			output[i] = messageListOutput{
				ID:       msg.ID,
				ThreadID: msg.ThreadID,
				Labels:   names,
				Date:     date,
				From:     from,
				Subject:  subject,
				Snippet:  msg.Snippet,
			}
		}
		return out.writeJSON(output)
	}

	headers := []string{"ID", "FROM", "SUBJECT"}
	rows := make([][]string, len(messages))
	for i, msg := range messages {
		from, _ := msg.Header("From")
		subject, ok := msg.Header("Subject")
		if !ok || subject == "" {
			subject = "(no subject)"
		}
		rows[i] = []string{
			msg.ID,
			truncateString(from, 30),
			truncateString(subject, 60),
		}
	}
	return out.writeTable(headers, rows)
}

// messageReadOutput is JSON output format for reading a message
type messageReadOutput struct {
	ID           string            `json:"id"`
	ThreadID     string            `json:"threadId"`
	LabelIDs     []string          `json:"labelIds"`
	Snippet      string            `json:"snippet"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body,omitempty"`
	BodyMarkdown string            `json:"bodyMarkdown,omitempty"`
}

var commonHeaders = []string{"From", "To", "Cc", "Subject", "Date"}

// readBody picks the text to show for a message. With preferHTML the HTML
// part is rendered as markdown when present. The snippet is the last resort.
func readBody(msg *gmcli.Message, preferHTML bool) (body, note string) {
	if preferHTML {
		if html, ok := msg.HTMLBody(); ok {
			markdown, err := convertHTMLToMarkdown(html)
			if err == nil {
				return markdown, ""
			}
			log.Debugf("Falling back from HTML body: %v", err)
		}
	}
	if text, ok := msg.PlainTextBody(); ok {
		return strings.TrimRight(text, "\r\n"), ""
	}
	return msg.Snippet, "no plain-text body; showing snippet"
}

func runMessagesRead(ctx context.Context, client *gmcli.Client, resolver *gmcli.LabelResolver, messageID string, preferHTML, headersOnly bool, out *outputWriter) error {
	msg, err := client.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}

	if out.json {
		output := messageReadOutput{
			ID:       msg.ID,
			ThreadID: msg.ThreadID,
			LabelIDs: msg.LabelIDs,
			Snippet:  msg.Snippet,
			Headers:  make(map[string]string),
		}
		for _, h := range commonHeaders {
			if val, ok := msg.Header(h); ok && val != "" {
				output.Headers[h] = val
			}
		}
		if !headersOnly {
			if text, ok := msg.PlainTextBody(); ok {
				output.Body = text
			}
			if html, ok := msg.HTMLBody(); ok {
				if markdown, err := convertHTMLToMarkdown(html); err == nil {
					output.BodyMarkdown = markdown
				}
			}
		}
		return out.writeJSON(output)
	}

	names, err := resolver.Names(ctx, msg.LabelIDs)
	if err != nil {
		log.Debugf("Could not resolve label names for %s: %v", msg.ID, err)
		names = msg.LabelIDs
	}

	frontmatter := EmailFrontmatter{
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Labels:    names,
	}
	frontmatter.From, _ = msg.Header("From")
	frontmatter.To, _ = msg.Header("To")
	frontmatter.Cc, _ = msg.Header("Cc")
	frontmatter.Subject, _ = msg.Header("Subject")
	frontmatter.Date, _ = msg.Header("Date")

	var body string
	if !headersOnly {
		body, frontmatter.Note = readBody(msg, preferHTML)
	}

	formatted, err := formatEmail(frontmatter, body)
	if err != nil {
		return err
	}
	fmt.Fprint(out.writer, formatted)
	return nil
}

func runArchive(ctx context.Context, client *gmcli.Client, messageID string, out *outputWriter) error {
	if err := client.Archive(ctx, messageID); err != nil {
		return fmt.Errorf("failed to archive message: %w", err)
	}
	return out.writeResult("archived", messageID, fmt.Sprintf("Archived %s", messageID))
}

func runSpam(ctx context.Context, client *gmcli.Client, messageID string, out *outputWriter) error {
	if err := client.MarkSpam(ctx, messageID); err != nil {
		return fmt.Errorf("failed to mark as spam: %w", err)
	}
	return out.writeResult("spam", messageID, fmt.Sprintf("Marked as spam %s", messageID))
}

func runUnspam(ctx context.Context, client *gmcli.Client, messageID string, out *outputWriter) error {
	if err := client.Unspam(ctx, messageID); err != nil {
		return fmt.Errorf("failed to move to inbox: %w", err)
	}
	return out.writeResult("unspam", messageID, fmt.Sprintf("Moved to inbox %s", messageID))
}

func runTrash(ctx context.Context, client *gmcli.Client, messageID string, out *outputWriter) error {
	if err := client.Trash(ctx, messageID); err != nil {
		return fmt.Errorf("failed to trash message: %w", err)
	}
	return out.writeResult("trashed", messageID, fmt.Sprintf("Moved to trash %s", messageID))
}

func runMarkRead(ctx context.Context, client *gmcli.Client, messageID string, out *outputWriter) error {
	if err := client.MarkRead(ctx, messageID); err != nil {
		return fmt.Errorf("failed to mark as read: %w", err)
	}
	return out.writeResult("read", messageID, "Message marked as read")
}

func runMarkUnread(ctx context.Context, client *gmcli.Client, messageID string, out *outputWriter) error {
	if err := client.MarkUnread(ctx, messageID); err != nil {
		return fmt.Errorf("failed to mark as unread: %w", err)
	}
	return out.writeResult("unread", messageID, "Message marked as unread")
}

// runClearLabels removes every user label from a message in one request.
// System labels stay. With dryRun the change is shown as a diff instead.
func runClearLabels(ctx context.Context, client *gmcli.Client, resolver *gmcli.LabelResolver, messageID string, dryRun bool, out *outputWriter) error {
	msg, err := client.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}
	labels, err := resolver.Labels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}

	kinds := make(map[string]gmcli.Label, len(labels))
	for _, l := range labels {
		kinds[l.ID] = l
	}

	var remove, before, after []string
	for _, id := range msg.LabelIDs {
		l, known := kinds[id]
		name := id
		if known {
			name = l.Name
		}
		before = append(before, name)
		if known && l.Kind == gmcli.KindUser {
			remove = append(remove, id)
			continue
		}
		after = append(after, name)
	}

	if len(remove) == 0 {
		if out.json {
			return out.writeJSON(map[string]interface{}{"id": messageID, "removed": []string{}})
		}
		out.writeMessage(fmt.Sprintf("No user labels on %s", messageID))
		return nil
	}

	if dryRun {
		if out.json {
			return out.writeJSON(map[string]interface{}{"id": messageID, "would_remove": remove, "dry_run": true})
		}
		diff, err := reporting.LabelDiff(messageID, before, after)
		if err != nil {
			return fmt.Errorf("failed to render diff: %w", err)
		}
		fmt.Fprint(out.writer, reporting.ColorizeDiff(diff))
		return nil
	}

	if err := client.ModifyLabels(ctx, messageID, nil, remove); err != nil {
		return fmt.Errorf("failed to clear labels: %w", err)
	}
	if out.json {
		return out.writeJSON(map[string]interface{}{"id": messageID, "removed": remove})
	}
	out.writeMessage(fmt.Sprintf("Removed %d user label(s) from %s", len(remove), messageID))
	return nil
}

// runUnsubscribe asks the provider to unsubscribe. With open, the first
// http(s) List-Unsubscribe link is also opened in the browser.
func runUnsubscribe(ctx context.Context, client *gmcli.Client, messageID string, open bool, openURL func(string) error, out *outputWriter) error {
	if err := client.Unsubscribe(ctx, messageID); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	if !open {
		return out.writeResult("unsubscribed", messageID, fmt.Sprintf("Unsubscribed %s", messageID))
	}

	msg, err := client.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}
	link, ok := msg.HTTPUnsubscribeLink()
	if !ok {
		header, present := msg.Header("List-Unsubscribe")
		if !present {
			out.writeMessage("No unsubscribe header found in this message")
		} else {
			out.writeMessage(fmt.Sprintf("No HTTP unsubscribe link found. Header: %s", header))
		}
		return nil
	}
	out.writeMessage("Opening unsubscribe link...")
	if err := openURL(link); err != nil {
		return fmt.Errorf("failed to open %s: %w", link, err)
	}
	return nil
}
