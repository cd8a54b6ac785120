package gmcli

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LabelService is the part of Client the resolver needs.
type LabelService interface {
	ListLabels(ctx context.Context) ([]Label, error)
	CreateLabel(ctx context.Context, name string) (Label, error)
}

// LabelResolver maps user-supplied label names to remote label IDs. The
// remote listing is fetched at most once per resolver.
type LabelResolver struct {
	svc    LabelService
	labels []Label
	loaded bool
}

// NewLabelResolver returns a resolver backed by svc.
func NewLabelResolver(svc LabelService) *LabelResolver {
	return &LabelResolver{svc: svc}
}

// Labels returns the remote labels in listing order.
func (r *LabelResolver) Labels(ctx context.Context) ([]Label, error) {
	if r.loaded {
		return r.labels, nil
	}
	labels, err := r.svc.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	r.labels, r.loaded = labels, true
	return r.labels, nil
}

// Lookup finds an existing label by name, ignoring case, or by exact ID.
// When several labels share a name the first in listing order wins.
func (r *LabelResolver) Lookup(ctx context.Context, name string) (Label, bool, error) {
	if s, ok := ParseSystemLabel(name); ok {
		return Label{ID: s.ID(), Name: s.ID(), Kind: KindSystem}, true, nil
	}
	labels, err := r.Labels(ctx)
	if err != nil {
		return Label{}, false, err
	}
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return l, true, nil
		}
	}
	for _, l := range labels {
		if l.ID == name {
			return l, true, nil
		}
	}
	return Label{}, false, nil
}

// ResolveForAdd returns the ID of the named label, creating it when no
// label of that name exists. System labels resolve without a remote call
// and are never created.
func (r *LabelResolver) ResolveForAdd(ctx context.Context, name string) (string, error) {
	l, ok, err := r.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	if ok {
		return l.ID, nil
	}
	log.Debugf("Label %q not found, creating it", name)
	created, err := r.svc.CreateLabel(ctx, name)
	if err != nil {
		return "", err
	}
	r.labels = append(r.labels, created)
	return created.ID, nil
}

// ResolveForRemove returns the ID of the named label. A label that does not
// exist yields *LabelNotFoundError.
func (r *LabelResolver) ResolveForRemove(ctx context.Context, name string) (string, error) {
	l, ok, err := r.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &LabelNotFoundError{Name: name}
	}
	return l.ID, nil
}

// Names maps label IDs to display names, leaving unknown IDs as they are.
func (r *LabelResolver) Names(ctx context.Context, ids []string) ([]string, error) {
	labels, err := r.Labels(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(labels))
	for _, l := range labels {
		byID[l.ID] = l.Name
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		if n, ok := byID[id]; ok {
			names[i] = n
		} else {
			names[i] = id
		}
	}
	return names, nil
}
