package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	msg := &EmailMessage{
		TemplateName: "rename_partial",
		TemplateData: map[string]interface{}{
			"Kind":       "teacher",
			"NewID":      "T2",
			"OldID":      "T1",
			"Reason":     "Teacher has classes",
			"MutationID": "01HX",
		},
	}
	require.NoError(t, msg.Render("Masomo"))
	assert.True(t, msg.HasContent())

	// the partial base templates are embedded too
	assert.Contains(t, msg.TextContent, "Old record T1 could NOT be removed: Teacher has classes")
	assert.Contains(t, msg.TextContent, "Sent by the Masomo admin console.")
	assert.Contains(t, msg.HTMLContent, "T2")
	assert.Contains(t, msg.HTMLContent, "Masomo")

	plain := &EmailMessage{BodyStr: "hello"}
	require.NoError(t, plain.Render("Masomo"))
	assert.Equal(t, "hello", plain.TextContent)
	assert.Empty(t, plain.HTMLContent)
}
