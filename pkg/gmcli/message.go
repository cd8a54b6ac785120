package gmcli

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"google.golang.org/api/gmail/v1"
)

// Header is one message header, in the order the server returned it.
type Header struct {
	Name  string
	Value string
}

// BodyNode is a node of a message's MIME tree. Data holds the base64url
// payload of a leaf; containers carry Children instead.
type BodyNode struct {
	MimeType string
	Data     string
	Children []BodyNode
}

// Message is a fetched message. It is a value: nothing in it refers back
// to the Client that produced it, and nothing mutates it after creation.
type Message struct {
	ID       string
	ThreadID string
	Snippet  string
	LabelIDs []string
	Headers  []Header
	Body     *BodyNode
}

func messageFromAPI(m *gmail.Message) *Message {
	msg := &Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		LabelIDs: append([]string(nil), m.LabelIds...),
	}
	if m.Payload == nil {
		return msg
	}
	for _, h := range m.Payload.Headers {
		if h == nil {
			continue
		}
		msg.Headers = append(msg.Headers, Header{Name: h.Name, Value: h.Value})
	}
	body := nodeFromPart(m.Payload)
	msg.Body = &body
	return msg
}

func nodeFromPart(p *gmail.MessagePart) BodyNode {
	n := BodyNode{MimeType: p.MimeType}
	if p.Body != nil {
		n.Data = p.Body.Data
	}
	for _, c := range p.Parts {
		if c == nil {
			continue
		}
		n.Children = append(n.Children, nodeFromPart(c))
	}
	return n
}

// Header returns the value of the first header named name, ignoring case.
func (m *Message) Header(name string) (string, bool) {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// PlainTextBody returns the message text.
//
// A single-part message's own payload wins outright. Otherwise the first
// text/plain leaf in a depth-first, pre-order walk is returned. Leaves that
// fail to decode are skipped.
func (m *Message) PlainTextBody() (string, bool) {
	if m.Body == nil {
		return "", false
	}
	if m.Body.Data != "" {
		if text, ok := decodeBody(m.Body.Data); ok {
			return text, true
		}
	}
	return findPart(m.Body.Children, "text/plain")
}

// HTMLBody returns the first text/html payload, searched like PlainTextBody.
func (m *Message) HTMLBody() (string, bool) {
	if m.Body == nil {
		return "", false
	}
	if m.Body.MimeType == "text/html" && m.Body.Data != "" {
		if html, ok := decodeBody(m.Body.Data); ok {
			return html, true
		}
	}
	return findPart(m.Body.Children, "text/html")
}

func findPart(parts []BodyNode, mimeType string) (string, bool) {
	for _, p := range parts {
		if p.MimeType == mimeType && p.Data != "" {
			if text, ok := decodeBody(p.Data); ok {
				return text, true
			}
		}
		if len(p.Children) > 0 {
			if text, ok := findPart(p.Children, mimeType); ok {
				return text, true
			}
		}
	}
	return "", false
}

// decodeBody decodes unpadded base64url into UTF-8 text. Stray padding is
// tolerated.
func decodeBody(data string) (string, bool) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil || !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// UnsubscribeLinks returns the entries of the List-Unsubscribe header with
// their angle brackets removed, e.g. mailto: and https: targets.
func (m *Message) UnsubscribeLinks() []string {
	v, ok := m.Header("List-Unsubscribe")
	if !ok {
		return nil
	}
	var links []string
	for _, part := range strings.Split(v, ",") {
		link := strings.Trim(strings.TrimSpace(part), "<>")
		if link != "" {
			links = append(links, link)
		}
	}
	return links
}

// HTTPUnsubscribeLink returns the first http(s) unsubscribe target.
func (m *Message) HTTPUnsubscribeLink() (string, bool) {
	for _, l := range m.UnsubscribeLinks() {
		lower := strings.ToLower(l)
		if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
			return l, true
		}
	}
	return "", false
}
