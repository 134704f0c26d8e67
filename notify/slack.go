package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlackWebhook posts Block Kit messages to an incoming-webhook URL.
type SlackWebhook struct {
	URL    string
	Client *http.Client
}

func NewSlackWebhook(url string) *SlackWebhook {
	return &SlackWebhook{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *SlackWebhook) Name() string { return "slack" }

func (s *SlackWebhook) SendAlert(ctx context.Context, a Alert) error {
	return s.post(ctx, alertPayload(a))
}

func (s *SlackWebhook) SendDigest(ctx context.Context, d Digest) error {
	return s.post(ctx, slackPayload{
		Text: fmt.Sprintf("%d pickup request(s) awaiting confirmation", len(d.Pending)),
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: d.PlainText()}},
		},
	})
}

func (s *SlackWebhook) post(ctx context.Context, payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// =============================================================================
// BLOCK KIT
// =============================================================================

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

func mrkdwn(text string) slackText {
	return slackText{Type: "mrkdwn", Text: text}
}

func alertPayload(a Alert) slackPayload {
	r := a.Request
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "🚨 New Pickup Request", Emoji: true}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s* has food ready for rescue!", a.Donor.BusinessName)}},
		{Type: "section", Fields: []slackText{
			mrkdwn("*Food:*\n" + r.FoodDescription),
			mrkdwn("*Estimated Weight:*\n" + FormatWeight(r.EstimatedWeight)),
			mrkdwn("*Pickup Date:*\n" + FormatPickupDate(r.PickupDate)),
			mrkdwn("*Time Window:*\n" + r.PickupTimeWindow.Label()),
		}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Address:*\n<%s|%s>",
			MapsURL(r.PickupAddress), r.PickupAddress.String())}},
		{Type: "section", Fields: []slackText{
			mrkdwn("*Contact:*\n" + a.Donor.ContactName),
			mrkdwn("*On Arrival:*\n" + r.ContactOnArrival),
		}},
	}
	if r.SpecialInstructions != "" {
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn",
			Text: "*Special Instructions:*\n" + r.SpecialInstructions}})
	}
	blocks = append(blocks,
		slackBlock{Type: "divider"},
		slackBlock{Type: "context", Elements: []slackText{mrkdwn(fmt.Sprintf("Request ID: `%s`", r.ID))}},
	)

	return slackPayload{
		Text:   fmt.Sprintf("New pickup request from %s", a.Donor.BusinessName),
		Blocks: blocks,
	}
}
