package emailsvc

import (
	"bytes"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
)

func TestConsoleService(t *testing.T) {
	conf := &core.Config{AppName: "Masomo"}
	svc := NewConsoleServiceMock(conf)

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Ops", Address: "ops@school.test"}},
			Subject:      "Teacher rename T1 -> T2 partially applied",
			TemplateName: "rename_partial",
			TemplateData: map[string]interface{}{
				"Kind": "teacher", "NewID": "T2", "OldID": "T1", "Reason": "Teacher has classes", "MutationID": "01HX",
			},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "New record T2 was created.")
	assert.Contains(t, sent[0].TextContent, "Old record T1 could NOT be removed: Teacher has classes")
	assert.Contains(t, sent[0].TextContent, "Sent by the Masomo admin console.")
	assert.Contains(t, sent[0].HTMLContent, "<strong>T2</strong>")
}

func TestConsoleService_Output(t *testing.T) {
	var buf bytes.Buffer
	conf := &core.Config{AppName: "Masomo", TestMode: true}
	svc := NewConsoleService(conf, log.New(&buf, "", 0), core.NopLogger())
	svc.sync = true

	svc.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "ops@school.test"}}, Subject: "hi", BodyStr: "hello"})
	assert.Contains(t, buf.String(), "Subject: [Masomo] hi")
	assert.Contains(t, buf.String(), "hello")
}

func TestNew(t *testing.T) {
	_, ok := New(&core.Config{}, nil, core.NopLogger()).(*consoleService)
	assert.True(t, ok)
	_, ok = New(&core.Config{SendgridAPIKey: "key"}, nil, core.NopLogger()).(*sendgridService)
	assert.True(t, ok)
}
