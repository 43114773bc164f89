package mitem_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/model/mitem"
)

func TestItemGroup(t *testing.T) {
	t.Parallel()

	loose := mitem.Item{Name: "loose"}
	v, ok := loose.GetGroup()
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "", loose.Group())

	grouped := mitem.Item{GroupKey: mitem.GroupPtr("todo")}
	v, ok = grouped.GetGroup()
	assert.True(t, ok)
	assert.Equal(t, "todo", v)
	assert.Equal(t, "todo", grouped.Group())

	assert.Nil(t, mitem.GroupPtr(""))
}

func TestItemJSON(t *testing.T) {
	t.Parallel()
	item := mitem.Item{ID: idwrap.NewNow(), Name: "a", Weight: 3}

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"group"`)
	assert.Contains(t, string(data), `"id":"`+item.ID.String()+`"`)

	var back mitem.Item
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, item, back)
}
