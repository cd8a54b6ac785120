package gmcli

import (
	"strings"

	"google.golang.org/api/gmail/v1"
)

// LabelKind separates provider-defined labels from user labels.
type LabelKind int

const (
	KindUser LabelKind = iota
	KindSystem
)

func (k LabelKind) String() string {
	if k == KindSystem {
		return "system"
	}
	return "user"
}

// Label is a remote label. Identity is ID; Name is matched
// case-insensitively when resolving.
type Label struct {
	ID   string
	Name string
	Kind LabelKind
}

func labelFromAPI(l *gmail.Label) Label {
	kind := KindUser
	if _, ok := ParseSystemLabel(l.Id); ok || l.Type == "system" {
		kind = KindSystem
	}
	return Label{ID: l.Id, Name: l.Name, Kind: kind}
}

// SystemLabel is one of the fixed provider labels. They are never created.
type SystemLabel int

// The closed set of system labels.
const (
	Inbox SystemLabel = iota + 1
	Sent
	Draft
	Trash
	Spam
	Starred
	Important
	Unread
	CategoryPersonal
	CategorySocial
	CategoryPromotions
	CategoryUpdates
	CategoryForums
)

var systemLabelIDs = [...]string{
	Inbox:              "INBOX",
	Sent:               "SENT",
	Draft:              "DRAFT",
	Trash:              "TRASH",
	Spam:               "SPAM",
	Starred:            "STARRED",
	Important:          "IMPORTANT",
	Unread:             "UNREAD",
	CategoryPersonal:   "CATEGORY_PERSONAL",
	CategorySocial:     "CATEGORY_SOCIAL",
	CategoryPromotions: "CATEGORY_PROMOTIONS",
	CategoryUpdates:    "CATEGORY_UPDATES",
	CategoryForums:     "CATEGORY_FORUMS",
}

// ID returns the remote identifier, which is also the label's name.
func (s SystemLabel) ID() string {
	if s < Inbox || s > CategoryForums {
		return ""
	}
	return systemLabelIDs[s]
}

func (s SystemLabel) String() string { return s.ID() }

// ParseSystemLabel reports whether name is a system label, ignoring case.
func ParseSystemLabel(name string) (SystemLabel, bool) {
	switch strings.ToUpper(name) {
	case "INBOX":
		return Inbox, true
	case "SENT":
		return Sent, true
	case "DRAFT":
		return Draft, true
	case "TRASH":
		return Trash, true
	case "SPAM":
		return Spam, true
	case "STARRED":
		return Starred, true
	case "IMPORTANT":
		return Important, true
	case "UNREAD":
		return Unread, true
	case "CATEGORY_PERSONAL":
		return CategoryPersonal, true
	case "CATEGORY_SOCIAL":
		return CategorySocial, true
	case "CATEGORY_PROMOTIONS":
		return CategoryPromotions, true
	case "CATEGORY_UPDATES":
		return CategoryUpdates, true
	case "CATEGORY_FORUMS":
		return CategoryForums, true
	}
	return 0, false
}
