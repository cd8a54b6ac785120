package main

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"gopkg.in/yaml.v3"
)

// EmailFrontmatter represents the YAML frontmatter for email output
type EmailFrontmatter struct {
	MessageID string   `yaml:"message_id"`
	ThreadID  string   `yaml:"thread_id"`
	From      string   `yaml:"from"`
	To        string   `yaml:"to"`
	Cc        string   `yaml:"cc,omitempty"`
	Subject   string   `yaml:"subject"`
	Date      string   `yaml:"date"`
	Labels    []string `yaml:"labels,omitempty"`
	Note      string   `yaml:"note,omitempty"` // For fallback messages
}

// convertHTMLToMarkdown converts HTML email body to markdown
func convertHTMLToMarkdown(htmlBody string) (string, error) {
	markdown, err := md.ConvertString(htmlBody)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// formatEmail renders YAML frontmatter followed by the body.
func formatEmail(frontmatter EmailFrontmatter, body string) (string, error) {
	var output strings.Builder

	output.WriteString("---\n")
	frontmatterBytes, err := yaml.Marshal(frontmatter)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	output.Write(frontmatterBytes)
	output.WriteString("---\n")

	if body != "" {
		output.WriteString("\n")
		output.WriteString(body)
		output.WriteString("\n")
	}

	return output.String(), nil
}
