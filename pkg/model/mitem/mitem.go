package mitem

import (
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
)

// Item is a named row ordered by Weight inside the group named by GroupKey.
// A nil GroupKey places the item in the shared ungrouped list.
type Item struct {
	ID       idwrap.IDWrap `json:"id" yaml:"id"`
	GroupKey *string       `json:"group,omitempty" yaml:"group,omitempty"`
	Name     string        `json:"name" yaml:"name"`
	Weight   int64         `json:"weight" yaml:"weight"`
}

func (i Item) GetID() idwrap.IDWrap { return i.ID }
func (i Item) GetWeight() int64     { return i.Weight }

func (i Item) GetGroup() (any, bool) {
	if i.GroupKey == nil {
		return nil, false
	}
	return *i.GroupKey, true
}

// Group returns the group key or "" when the item is ungrouped.
func (i Item) Group() string {
	if i.GroupKey == nil {
		return ""
	}
	return *i.GroupKey
}

// GroupPtr turns "" into nil so flag values map onto the ungrouped list.
func GroupPtr(group string) *string {
	if group == "" {
		return nil
	}
	return &group
}
