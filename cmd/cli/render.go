package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/sdk/go/mapkit_verifier"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	s := table.StyleRounded
	s.Format.Header = text.FormatDefault
	t.SetStyle(s)
	return t
}

func renderToken(out io.Writer, tok *mapkit_verifier.Token, signature string) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Field", "Value"})

	origin := tok.Origin
	if origin == "" {
		origin = "(any)"
	}
	expires := tok.ExpiresAt.Format(time.RFC3339)
	if tok.Expired(time.Now()) {
		expires += " (expired)"
	} else {
		expires += fmt.Sprintf(" (in %s)", time.Until(tok.ExpiresAt).Round(time.Second))
	}

	t.AppendRows([]table.Row{
		{"alg", tok.Algorithm},
		{"kid", tok.KeyID},
		{"typ", tok.Type},
		{"iss", tok.Issuer},
		{"iat", tok.IssuedAt.Format(time.RFC3339)},
		{"exp", expires},
		{"origin", origin},
		{"signature", signature},
	})
	t.Render()
}

func renderSettings(out io.Writer, resp *dto.SettingsResponse) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Setting", "Value"})

	status := string(resp.Settings.Status)
	if status == "" {
		status = "(not validated)"
	}
	hasKey := "no"
	if resp.Settings.HasPrivateKey {
		hasKey = "yes"
	}
	t.AppendRows([]table.Row{
		{"key_id", resp.Settings.KeyID},
		{"team_id", resp.Settings.TeamID},
		{"private_key", hasKey},
		{"status", status},
	})
	if resp.ValidationError != nil {
		t.AppendRow(table.Row{"validation_error", fmt.Sprintf("%s: %s", resp.ValidationError.Code, resp.ValidationError.Message)})
	}
	t.Render()
}

func renderAuditEvents(out io.Writer, events []*models.AuditEvent) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Time", "Type", "Outcome", "Actor", "Key", "Message"})
	for _, ev := range events {
		t.AppendRow(table.Row{
			ev.Timestamp.Format(time.RFC3339),
			ev.Type,
			ev.Outcome,
			ev.Actor,
			ev.KeyID,
			truncate(ev.Message, 60),
		})
	}
	t.Render()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
