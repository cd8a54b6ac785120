package main

import (
	"context"
	"fmt"

	"github.com/wesnick/gmcli/pkg/gmcli"
)

// labelListOutput is JSON output for labels
type labelListOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func runLabelsList(ctx context.Context, resolver *gmcli.LabelResolver, systemOnly, userOnly bool, out *outputWriter) error {
	if systemOnly && userOnly {
		return fmt.Errorf("--system and --user-only are mutually exclusive")
	}

	labels, err := resolver.Labels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}

	filtered := []gmcli.Label{}
	for _, l := range labels {
		isSystem := l.Kind == gmcli.KindSystem
		if systemOnly && !isSystem {
			continue
		}
		if userOnly && isSystem {
			continue
		}
		filtered = append(filtered, l)
	}

	if out.json {
		output := make([]labelListOutput, len(filtered))
		for i, l := range filtered {
			output[i] = labelListOutput{ID: l.ID, Name: l.Name, Type: l.Kind.String()}
		}
		return out.writeJSON(output)
	}

	headers := []string{"NAME", "TYPE", "ID"}
	rows := make([][]string, len(filtered))
	for i, l := range filtered {
		rows[i] = []string{l.Name, l.Kind.String(), l.ID}
	}
	return out.writeTable(headers, rows)
}

func runLabelAdd(ctx context.Context, client *gmcli.Client, resolver *gmcli.LabelResolver, messageID, label string, out *outputWriter) error {
	labelID, err := resolver.ResolveForAdd(ctx, label)
	if err != nil {
		return fmt.Errorf("failed to resolve label: %w", err)
	}
	if err := client.ModifyLabels(ctx, messageID, []string{labelID}, nil); err != nil {
		return fmt.Errorf("failed to add label: %w", err)
	}
	return out.writeResult("labeled", messageID, fmt.Sprintf("Added label %s to %s", label, messageID))
}

func runLabelRemove(ctx context.Context, client *gmcli.Client, resolver *gmcli.LabelResolver, messageID, label string, out *outputWriter) error {
	labelID, err := resolver.ResolveForRemove(ctx, label)
	if err != nil {
		return err
	}
	if err := client.ModifyLabels(ctx, messageID, nil, []string{labelID}); err != nil {
		return fmt.Errorf("failed to remove label: %w", err)
	}
	return out.writeResult("unlabeled", messageID, fmt.Sprintf("Removed label %s from %s", label, messageID))
}
