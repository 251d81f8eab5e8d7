package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <club-id>",
		Short: "Watch a club's tournaments change live",
		Long: `Connect to the club's event stream and print a line per event.

Events include:
  - connected: Stream established
  - tournaments: A tournament in the club was created, changed or deleted.
    Each tournament is listed with its status and completed match count.

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchClub(ctx, args[0], jsonOutput, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// ClubEvent is one event received from a club stream
type ClubEvent struct {
	Time    time.Time       `json:"time"`
	Event   string          `json:"event"`
	Summary string          `json:"summary"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// tournamentsPayload is the part of a tournaments event the CLI shows
type tournamentsPayload struct {
	ClubID      string `json:"clubId"`
	Tournaments []struct {
		Name    string `json:"name"`
		Status  string `json:"status"`
		Matches []struct {
			Status string `json:"status"`
		} `json:"matches"`
	} `json:"tournaments"`
}

func watchClub(ctx context.Context, clubID string, jsonOutput bool, out io.Writer) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/clubs/" + clubID + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	// The stream stays open until the server or ctx ends it
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	err = readEvents(resp.Body, func(event, data string) {
		printClubEvent(out, newClubEvent(time.Now(), event, data), jsonOutput)
	})
	if err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("stream error: %w", err)
	}
	if !jsonOutput {
		_, _ = fmt.Fprintln(out, "Disconnected")
	}
	return nil
}

// readEvents splits an event stream into frames and calls fn for each named
// event. Comment lines such as keepalives are skipped.
func readEvents(r io.Reader, fn func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var event string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch {
		case line == "":
			if event != "" {
				fn(event, strings.Join(data, "\n"))
			}
			event, data = "", nil
		case field == "":
		case field == "event":
			event = value
		case field == "data":
			data = append(data, value)
		}
	}
	return scanner.Err()
}

func newClubEvent(at time.Time, event, data string) ClubEvent {
	e := ClubEvent{Time: at, Event: event, Summary: summarizeEvent(event, data)}
	if json.Valid([]byte(data)) {
		e.Data = json.RawMessage(data)
	}
	return e
}

// summarizeEvent renders an event payload as one line
func summarizeEvent(event, data string) string {
	switch event {
	case "connected":
		var hello struct {
			ClubID string `json:"clubId"`
		}
		if err := json.Unmarshal([]byte(data), &hello); err == nil && hello.ClubID != "" {
			return "watching club " + hello.ClubID
		}
	case "tournaments":
		var p tournamentsPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			break
		}
		if len(p.Tournaments) == 0 {
			return "no tournaments"
		}
		parts := make([]string, len(p.Tournaments))
		for i, t := range p.Tournaments {
			done := 0
			for _, m := range t.Matches {
				if m.Status == "completed" {
					done++
				}
			}
			parts[i] = fmt.Sprintf("%s [%s %d/%d]", t.Name, t.Status, done, len(t.Matches))
		}
		return fmt.Sprintf("%d tournament(s): %s", len(parts), strings.Join(parts, ", "))
	}

	flat := strings.ReplaceAll(data, "\n", " ")
	if len(flat) > 100 {
		flat = flat[:100] + "..."
	}
	return flat
}

func printClubEvent(out io.Writer, e ClubEvent, jsonOutput bool) {
	if jsonOutput {
		line, _ := json.Marshal(e)
		_, _ = fmt.Fprintln(out, string(line))
		return
	}
	_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", e.Time.Format("15:04:05"), e.Event, e.Summary)
}
