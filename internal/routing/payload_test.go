package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

func TestSystemFromEndpoint(t *testing.T) {
	cases := map[string]string{
		"https://company.atlassian.net/rest/api/3/issue":    "jira",
		"https://jira.internal.example.com/rest/api":        "jira",
		"https://company.freshservice.com/api/v2/tickets":   "freshservice",
		"https://hooks.slack.com/services/T0/B0/XX":         "slack",
		"https://webhook.site/abc-def":                      "webhook_test",
		"https://tickets.example.com/api":                   "unknown",
		"not a url but parses as opaque without a host ://": "unknown",
	}
	for endpoint, want := range cases {
		assert.Equal(t, want, SystemFromEndpoint(endpoint), endpoint)
	}
}

func TestJiraPayloadShape(t *testing.T) {
	ticket := testTicket()
	payload := BuildPayload(ticket, mappingFor("https://x.atlassian.net"), "jira")

	fields, ok := payload["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ticket.Title, fields["summary"])
	assert.Equal(t, map[string]any{"name": "High"}, fields["priority"])
	assert.Contains(t, fields["labels"], "department:it")
	assert.Contains(t, fields["labels"], "auto-routed")
}

func TestFreshservicePayloadShape(t *testing.T) {
	ticket := testTicket()
	mapping := mappingFor("https://x.freshservice.com")
	payload := BuildPayload(ticket, mapping, "freshservice")

	inner, ok := payload["ticket"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ticket.Title, inner["subject"])
	assert.Equal(t, 3, inner["priority"], "high maps to freshservice level 3")
	custom, ok := inner["custom_fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, mapping.TeamName, custom["assigned_team"])
	assert.Equal(t, 0.9, custom["ai_confidence"])
}

func TestSlackPayloadTruncatesDescription(t *testing.T) {
	ticket := testTicket()
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	ticket.Description = string(long)

	payload := BuildPayload(ticket, mappingFor("https://hooks.slack.com/x"), "slack")

	attachments, ok := payload["attachments"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)
	fields, ok := attachments[0]["fields"].([]map[string]any)
	require.True(t, ok)
	desc, ok := fields[0]["value"].(string)
	require.True(t, ok)
	assert.Len(t, desc, 303)
}

func TestGenericPayloadCarriesMetadata(t *testing.T) {
	ticket := testTicket()
	ticket.Metadata = map[string]string{"source": "email-gateway"}

	payload := BuildPayload(ticket, mappingFor("https://tickets.example.com"), "unknown")

	assert.Equal(t, ticket.ID, payload["ticket_id"])
	assert.Equal(t, ticket.Metadata, payload["metadata"])
	assert.Equal(t, domain.DepartmentIT, payload["department"])
}

func TestExtractExternalID(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		system string
		want   *string
	}{
		{"jira key", `{"key": "SUPP-42", "id": "10001"}`, "jira", strPtr("SUPP-42")},
		{"numeric id", `{"id": 12345}`, "unknown", strPtr("12345")},
		{"freshservice nested", `{"ticket": {"id": 987}}`, "freshservice", strPtr("987")},
		{"nested issue", `{"issue": {"key": "OPS-1"}}`, "unknown", strPtr("OPS-1")},
		{"no id", `{"status": "accepted"}`, "unknown", nil},
		{"empty body", ``, "unknown", nil},
		{"not json", `ok`, "unknown", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractExternalID([]byte(tc.body), tc.system)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}

func TestExtractExternalIDSlackSynthetic(t *testing.T) {
	got := ExtractExternalID([]byte("ok"), "slack")
	require.NotNil(t, got)
	assert.Regexp(t, `^slack_\d{14}$`, *got)
}

func strPtr(s string) *string { return &s }
