package routing

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// SystemFromEndpoint identifies the downstream system from the target URL.
func SystemFromEndpoint(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "unknown"
	}
	host := strings.ToLower(parsed.Host)
	switch {
	case strings.Contains(host, "atlassian.net") || strings.Contains(host, "jira"):
		return "jira"
	case strings.Contains(host, "freshservice"):
		return "freshservice"
	case strings.Contains(host, "slack.com"):
		return "slack"
	case strings.Contains(host, "webhook.site"):
		return "webhook_test"
	default:
		return "unknown"
	}
}

var jiraPriorities = map[domain.TicketPriority]string{
	domain.TicketPriorityLow:      "Low",
	domain.TicketPriorityMedium:   "Medium",
	domain.TicketPriorityHigh:     "High",
	domain.TicketPriorityCritical: "Highest",
}

var freshservicePriorities = map[domain.TicketPriority]int{
	domain.TicketPriorityLow:      1,
	domain.TicketPriorityMedium:   2,
	domain.TicketPriorityHigh:     3,
	domain.TicketPriorityCritical: 4,
}

// BuildPayload shapes the ticket for the target system's API.
func BuildPayload(ticket domain.Ticket, mapping domain.DepartmentMapping, system string) map[string]any {
	switch system {
	case "jira":
		return jiraPayload(ticket, mapping)
	case "freshservice":
		return freshservicePayload(ticket, mapping)
	case "slack":
		return slackPayload(ticket, mapping)
	default:
		return genericPayload(ticket, mapping)
	}
}

func jiraPayload(ticket domain.Ticket, mapping domain.DepartmentMapping) map[string]any {
	department := "general"
	if ticket.Department != nil {
		department = strings.ToLower(string(*ticket.Department))
	}
	return map[string]any{
		"fields": map[string]any{
			"project":   map[string]any{"key": "SUPP"},
			"summary":   ticket.Title,
			"issuetype": map[string]any{"name": "Task"},
			"priority":  map[string]any{"name": jiraPriorities[ticket.Priority]},
			"reporter":  map[string]any{"emailAddress": ticket.SubmitterEmail},
			"description": map[string]any{
				"type":    "doc",
				"version": 1,
				"content": []map[string]any{{
					"type":    "paragraph",
					"content": []map[string]any{{"type": "text", "text": ticket.Description}},
				}},
			},
			"labels": []string{"department:" + department, "auto-routed"},
		},
	}
}

func freshservicePayload(ticket domain.Ticket, mapping domain.DepartmentMapping) map[string]any {
	confidence := 0.0
	if ticket.ConfidenceScore != nil {
		confidence = *ticket.ConfidenceScore
	}
	return map[string]any{
		"ticket": map[string]any{
			"subject":     ticket.Title,
			"description": ticket.Description,
			"email":       ticket.SubmitterEmail,
			"priority":    freshservicePriorities[ticket.Priority],
			"status":      2,
			"source":      2,
			"tags":        []string{"auto-routed", mapping.TeamName},
			"custom_fields": map[string]any{
				"assigned_team": mapping.TeamName,
				"ai_confidence": confidence,
			},
		},
	}
}

func slackPayload(ticket domain.Ticket, mapping domain.DepartmentMapping) map[string]any {
	department := string(domain.DepartmentGeneral)
	if ticket.Department != nil {
		department = string(*ticket.Department)
	}
	description := ticket.Description
	if len(description) > 300 {
		description = description[:300] + "..."
	}
	return map[string]any{
		"text": "New Ticket: " + ticket.Title,
		"attachments": []map[string]any{{
			"fields": []map[string]any{
				{"title": "Description", "value": description, "short": false},
				{"title": "Reporter", "value": ticket.SubmitterEmail, "short": true},
				{"title": "Priority", "value": strings.ToUpper(string(ticket.Priority)), "short": true},
				{"title": "Department", "value": department, "short": true},
				{"title": "Assigned To", "value": mapping.TeamName, "short": true},
			},
			"footer": "Ticket ID: " + ticket.ID,
		}},
	}
}

func genericPayload(ticket domain.Ticket, mapping domain.DepartmentMapping) map[string]any {
	payload := map[string]any{
		"ticket_id":   ticket.ID,
		"title":       ticket.Title,
		"description": ticket.Description,
		"email":       ticket.SubmitterEmail,
		"priority":    ticket.Priority,
		"team":        mapping.TeamName,
		"metadata":    ticket.Metadata,
	}
	if ticket.Department != nil {
		payload["department"] = *ticket.Department
	}
	if ticket.ConfidenceScore != nil {
		payload["confidence_score"] = *ticket.ConfidenceScore
	}
	return payload
}

// ExtractExternalID pulls the downstream ticket identifier out of a
// successful response body. Slack webhooks return no identifier; a synthetic
// one keeps the projection populated.
func ExtractExternalID(body []byte, system string) *string {
	if system == "slack" {
		id := "slack_" + time.Now().UTC().Format("20060102150405")
		return &id
	}
	if len(body) == 0 {
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	if system == "freshservice" {
		if nested, ok := payload["ticket"].(map[string]any); ok {
			payload = nested
		}
	}

	for _, key := range []string{"key", "id", "ticket_id", "number"} {
		if val, ok := payload[key]; ok {
			if id := stringify(val); id != "" {
				return &id
			}
		}
	}
	for _, nestedKey := range []string{"ticket", "issue", "data"} {
		nested, ok := payload[nestedKey].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"key", "id", "ticket_id", "number"} {
			if val, ok := nested[key]; ok {
				if id := stringify(val); id != "" {
					return &id
				}
			}
		}
	}
	return nil
}

func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
