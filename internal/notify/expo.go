package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"github.com/sirupsen/logrus"
)

// DefaultExpoEndpoint is Expo's push send API.
const DefaultExpoEndpoint = "https://exp.host/--/api/v2/push/send"

// ExpoSender posts messages to the Expo push service through the Expo SDK.
type ExpoSender struct {
	client      *http.Client
	host        string
	apiURL      string
	accessToken string
}

func NewExpoSender(client *http.Client, endpoint, accessToken string) *ExpoSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	host, apiURL := splitExpoEndpoint(endpoint)
	return &ExpoSender{client: client, host: host, apiURL: apiURL, accessToken: accessToken}
}

// splitExpoEndpoint turns a full send URL into the host and API prefix the
// SDK client expects; it appends "/push/send" itself.
func splitExpoEndpoint(endpoint string) (host, apiURL string) {
	u, err := url.Parse(endpoint)
	if endpoint == "" || err != nil || u.Host == "" {
		return expo.DefaultHost, expo.DefaultBaseAPIURL
	}
	path := strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/push/send")
	return u.Scheme + "://" + u.Host, path
}

func (s *ExpoSender) Send(ctx context.Context, msg Message) error {
	to, err := pushToken(msg.To)
	if err != nil {
		return err
	}

	// The SDK builds requests without a context, so the per-send context and
	// the access token ride on the transport.
	httpClient := *s.client
	httpClient.Transport = &expoTransport{base: s.client.Transport, ctx: ctx, accessToken: s.accessToken}
	client := expo.NewPushClient(&expo.ClientConfig{
		Host:       s.host,
		APIURL:     s.apiURL,
		HTTPClient: &httpClient,
	})

	resp, err := client.Publish(&expo.PushMessage{
		To:    []expo.ExponentPushToken{to},
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Data,
		Sound: msg.Sound,
	})
	if err != nil {
		return fmt.Errorf("expo push: %w", err)
	}
	if err := resp.ValidateResponse(); err != nil {
		return fmt.Errorf("expo push ticket: %w", err)
	}
	return nil
}

type expoTransport struct {
	base        http.RoundTripper
	ctx         context.Context
	accessToken string
}

func (t *expoTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	req.Header.Set("Accept", "application/json")
	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// LogSender only logs messages; it stands in for Expo when push is disabled.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"to":    msg.To,
			"title": msg.Title,
		}).Debug("push delivery disabled, message not sent")
	}
	return nil
}
