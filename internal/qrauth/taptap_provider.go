package qrauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// HTTPProvider implements Provider against a TapTap-style OAuth
// device-authorization endpoint: a client-credentials-free flow where a
// QR code encodes a device code the player's phone confirms out of band.
type HTTPProvider struct {
	client      *http.Client
	baseURL     string
	clientID    string
	scope       string
}

// NewHTTPProvider builds an HTTPProvider. client may be nil, in which
// case a client with a 10s timeout is constructed.
func NewHTTPProvider(baseURL, clientID, scope string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{client: client, baseURL: strings.TrimRight(baseURL, "/"), clientID: clientID, scope: scope}
}

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURL         string `json:"verification_url"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

// CreateDeviceCode starts a device-authorization flow.
func (p *HTTPProvider) CreateDeviceCode(ctx context.Context, version string) (DeviceCode, error) {
	form := url.Values{
		"client_id": {p.clientID},
		"response_type": {"device_code"},
		"scope":         {p.scope},
		"version":       {version},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/oauth2/device/code", strings.NewReader(form.Encode()))
	if err != nil {
		return DeviceCode{}, eris.Wrap(err, "qrauth: build device code request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return DeviceCode{}, eris.Wrap(err, "qrauth: device code request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return DeviceCode{}, eris.Errorf("qrauth: device code request returned status %d", resp.StatusCode)
	}

	var body deviceCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return DeviceCode{}, eris.Wrap(err, "qrauth: decode device code response")
	}

	return DeviceCode{
		DeviceCode:   body.DeviceCode,
		DeviceID:     body.UserCode,
		QRCodeURL:    body.VerificationURL,
		ExpiresIn:    body.ExpiresIn,
		IntervalSecs: body.Interval,
	}, nil
}

type pollResponse struct {
	Status       string `json:"status"`
	SessionToken string `json:"access_token"`
}

// PollDeviceCode polls the device-authorization endpoint once.
func (p *HTTPProvider) PollDeviceCode(ctx context.Context, deviceCode, version string) (PollResult, error) {
	form := url.Values{
		"client_id":   {p.clientID},
		"device_code": {deviceCode},
		"grant_type":  {"device_token"},
		"version":     {version},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/oauth2/device/token", strings.NewReader(form.Encode()))
	if err != nil {
		return PollResult{}, eris.Wrap(err, "qrauth: build poll request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return PollResult{}, eris.Wrap(err, "qrauth: poll request")
	}
	defer func() { _ = resp.Body.Close() }()

	var body pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return PollResult{}, eris.Wrap(err, "qrauth: decode poll response")
	}

	switch body.Status {
	case "approved", "authorization_approved":
		return PollResult{Status: UpstreamApproved, SessionToken: body.SessionToken}, nil
	case "denied", "authorization_denied":
		return PollResult{Status: UpstreamDenied}, nil
	case "scanned":
		return PollResult{Status: UpstreamScanned}, nil
	default:
		return PollResult{Status: UpstreamPending}, nil
	}
}
