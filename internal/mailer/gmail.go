package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

const gmailSendEndpoint = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

// GmailTransport sends mail through the Gmail REST API using a stored
// OAuth token. The token JSON is the blob captured during the owner's
// authorization flow.
type GmailTransport struct {
	client   *http.Client
	endpoint string
}

// NewGmailTransport builds a transport from an OAuth token JSON blob.
func NewGmailTransport(ctx context.Context, tokenJSON []byte) (*GmailTransport, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	src := oauth2.ReuseTokenSource(&tok, oauth2.StaticTokenSource(&tok))

	return &GmailTransport{
		client:   oauth2.NewClient(ctx, src),
		endpoint: gmailSendEndpoint,
	}, nil
}

type gmailSendRequest struct {
	Raw string `json:"raw"` // base64url-encoded RFC 2822 message
}

// Send delivers one plain-text message via the Gmail API.
func (t *GmailTransport) Send(ctx context.Context, to, subject, body string) error {
	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s", to, subject, body)

	payload, err := json.Marshal(gmailSendRequest{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		return fmt.Errorf("marshal gmail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gmail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("gmail send to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gmail API error for %s: %s", to, resp.Status)
	}

	return nil
}
