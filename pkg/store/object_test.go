package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectFields(t *testing.T) {
	obj := NewObject("ArticlePage", "id-1")
	assert.Equal(t, "", obj.Field("Title"))

	obj.SetField("Title", "Welcome")
	assert.Equal(t, "Welcome", obj.Field("Title"))

	obj.SetField("Title", "Updated")
	assert.Equal(t, "Updated", obj.Field("Title"))
}

func TestObjectRefs(t *testing.T) {
	obj := NewObject("ArticlePage", "id-1")

	obj.LinkSingle("Author", "author-1")
	obj.LinkSingle("Author", "author-2")
	assert.Equal(t, "author-2", obj.SingleRefs["Author"])

	obj.AddMulti("Categories", "cat-1")
	obj.AddMulti("Categories", "cat-2")
	assert.Equal(t, []string{"cat-1", "cat-2"}, obj.MultiRefs["Categories"])

	assert.True(t, obj.HasMulti("Categories", "cat-1"))
	assert.False(t, obj.HasMulti("Categories", "cat-3"))
	assert.False(t, obj.HasMulti("Gallery", "cat-1"))
}
