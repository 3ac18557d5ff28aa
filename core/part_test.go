package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContent_NilSafety(t *testing.T) {
	var c *Content
	assert.Empty(t, c.Text())
	assert.Empty(t, c.FunctionCalls())
	assert.Empty(t, c.FunctionResponses())
	assert.Nil(t, c.Clone())
}

func TestContent_Text_ConcatenatesTextParts(t *testing.T) {
	c := &Content{Role: RoleModel, Parts: []Part{
		TextPart{Text: "hello"},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "f"}},
		TextPart{Text: " world"},
	}}
	assert.Equal(t, "hello world", c.Text())
}

func TestContent_Clone_Independent(t *testing.T) {
	c := NewUserContent("hi")
	clone := c.Clone()
	clone.Parts[0] = TextPart{Text: "changed"}
	assert.Equal(t, "hi", c.Text())
}

func TestNewContentHelpers(t *testing.T) {
	u := NewUserContent("question")
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, "question", u.Text())

	m := NewModelContent("answer")
	assert.Equal(t, RoleModel, m.Role)
	assert.Equal(t, "answer", m.Text())
}
