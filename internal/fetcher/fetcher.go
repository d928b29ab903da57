// Package fetcher resolves a credential to an upstream session token and
// retrieves a player's encrypted save blob from a LeanCloud-like cloud
// storage provider, one HTTP round trip at a time.
package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phigros-go/phigros-backend/internal/model"
	"github.com/phigros-go/phigros-backend/internal/resilience"
)

// Version selects the upstream region: distinct base URLs and app
// credentials per region.
type Version string

const (
	VersionCN     Version = "cn"
	VersionGlobal Version = "global"
)

// RegionConfig is one region's upstream connection parameters.
type RegionConfig struct {
	BaseURL string
	AppID   string
	AppKey  string
}

// Config is the fetcher's full static configuration.
type Config struct {
	CN     RegionConfig
	Global RegionConfig

	Timeout time.Duration
	// MaxBlobBytes bounds the save blob download; zero defaults to 64 MiB.
	MaxBlobBytes int64
}

const defaultMaxBlobBytes = 64 << 20

func (c Config) region(v Version) RegionConfig {
	if v == VersionGlobal {
		return c.Global
	}
	return c.CN
}

func (c Config) maxBlobBytes() int64 {
	if c.MaxBlobBytes > 0 {
		return c.MaxBlobBytes
	}
	return defaultMaxBlobBytes
}

// Metadata is the LeanCloud-like metadata response.
type Metadata struct {
	SummaryB64  string
	DownloadURL string
	UpdatedAt   time.Time
}

// Result is the full fetch output: the raw ciphertext container plus
// whatever metadata accompanied it.
type Result struct {
	BlobURL    string
	UpdatedAt  *time.Time
	SummaryB64 string
	Bytes      []byte
	Trailer    json.RawMessage
}

// Fetcher composes credential resolution, metadata retrieval, and bounded
// blob download behind the teacher's retry+circuit-breaker wrapping.
type Fetcher struct {
	client  *http.Client
	cfg     Config
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// New builds a Fetcher. client may be nil, in which case a client with
// cfg.Timeout is constructed.
func New(cfg Config, client *http.Client) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client: client,
		cfg:    cfg,
		retry:  resilience.DefaultRetryConfig(),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		}),
	}
}

// Fetch runs the full credential -> session token -> metadata -> blob
// pipeline for one save request.
func (f *Fetcher) Fetch(ctx context.Context, cred model.Credential, version Version) (*Result, error) {
	token, err := f.resolveSessionToken(ctx, cred, version)
	if err != nil {
		return nil, err
	}

	meta, err := f.fetchMetadata(ctx, token, version)
	if err != nil {
		return nil, err
	}

	blob, err := f.downloadBlob(ctx, meta.DownloadURL)
	if err != nil {
		return nil, err
	}

	updatedAt := meta.UpdatedAt
	return &Result{
		BlobURL:    meta.DownloadURL,
		UpdatedAt:  &updatedAt,
		SummaryB64: meta.SummaryB64,
		Bytes:      blob,
	}, nil
}

// resolveSessionToken mirrors the identity hasher's selection order so a
// credential resolves to the same upstream identity it hashes to:
// SessionToken, External.APIUserID (indirection), External.SessionToken,
// External.(Platform, PlatformID) (indirection).
func (f *Fetcher) resolveSessionToken(ctx context.Context, cred model.Credential, version Version) (string, error) {
	if cred.SessionToken != "" {
		return cred.SessionToken, nil
	}
	if cred.External == nil {
		return "", NewProviderError(ErrUnauthorized, eris.New("fetcher: no credential material"))
	}
	if cred.External.APIUserID != "" {
		return f.resolveViaIndirection(ctx, version, "api_user_id", cred.External.APIUserID)
	}
	if cred.External.SessionToken != "" {
		return cred.External.SessionToken, nil
	}
	if cred.External.Platform != "" && cred.External.PlatformID != "" {
		return f.resolveViaIndirection(ctx, version, "platform_pair", cred.External.Platform+":"+cred.External.PlatformID)
	}
	return "", NewProviderError(ErrUnauthorized, eris.New("fetcher: incomplete external credential"))
}

// resolveViaIndirection exchanges a third-party identifier for an
// upstream session token through the region's indirection endpoint.
func (f *Fetcher) resolveViaIndirection(ctx context.Context, version Version, kind, material string) (string, error) {
	region := f.cfg.region(version)
	var token string
	err := resilience.Do(ctx, f.retry, func(ctx context.Context) error {
		return f.breaker.Execute(ctx, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, region.BaseURL+"/sessions/exchange", nil)
			if err != nil {
				return eris.Wrap(err, "fetcher: build indirection request")
			}
			q := req.URL.Query()
			q.Set("kind", kind)
			q.Set("value", material)
			req.URL.RawQuery = q.Encode()
			req.Header.Set("X-LC-Id", region.AppID)
			req.Header.Set("X-LC-Key", region.AppKey)

			resp, err := f.client.Do(req)
			if err != nil {
				return resilience.NewTransientError(err, 0)
			}
			defer resp.Body.Close()

			if statusErr := classifyStatus(resp.StatusCode); statusErr != nil {
				return statusErr
			}

			var body struct {
				SessionToken string `json:"sessionToken"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return NewProviderError(ErrMalformedMetadata, eris.Wrap(err, "fetcher: decode indirection response"))
			}
			token = body.SessionToken
			return nil
		})
	})
	if err != nil {
		return "", toProviderError(err)
	}
	return token, nil
}

// fetchMetadata issues the authenticated LeanCloud-like metadata GET.
func (f *Fetcher) fetchMetadata(ctx context.Context, sessionToken string, version Version) (*Metadata, error) {
	region := f.cfg.region(version)
	var meta Metadata

	err := resilience.Do(ctx, f.retry, func(ctx context.Context) error {
		return f.breaker.Execute(ctx, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, region.BaseURL+"/classes/_GameSave", nil)
			if err != nil {
				return eris.Wrap(err, "fetcher: build metadata request")
			}
			req.Header.Set("X-LC-Session", sessionToken)
			req.Header.Set("X-LC-Id", region.AppID)
			req.Header.Set("X-LC-Key", region.AppKey)

			resp, err := f.client.Do(req)
			if err != nil {
				return resilience.NewTransientError(err, 0)
			}
			defer resp.Body.Close()

			if statusErr := classifyStatus(resp.StatusCode); statusErr != nil {
				return statusErr
			}

			var body struct {
				SummaryB64  string `json:"summary"`
				DownloadURL string `json:"gameFile"`
				UpdatedAt   string `json:"updatedAt"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return NewProviderError(ErrMalformedMetadata, eris.Wrap(err, "fetcher: decode metadata response"))
			}
			updatedAt, err := time.Parse(time.RFC3339, body.UpdatedAt)
			if err != nil {
				return NewProviderError(ErrMalformedMetadata, eris.Wrap(err, "fetcher: parse updatedAt"))
			}

			meta = Metadata{SummaryB64: body.SummaryB64, DownloadURL: body.DownloadURL, UpdatedAt: updatedAt}
			return nil
		})
	})
	if err != nil {
		return nil, toProviderError(err)
	}
	return &meta, nil
}

// downloadBlob retrieves the ciphertext container with a bounded read,
// transparently un-gzipping when the stream carries the gzip magic.
func (f *Fetcher) downloadBlob(ctx context.Context, url string) ([]byte, error) {
	var out []byte
	err := resilience.Do(ctx, f.retry, func(ctx context.Context) error {
		return f.breaker.Execute(ctx, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return eris.Wrap(err, "fetcher: build blob request")
			}
			resp, err := f.client.Do(req)
			if err != nil {
				return resilience.NewTransientError(err, 0)
			}
			defer resp.Body.Close()

			if statusErr := classifyStatus(resp.StatusCode); statusErr != nil {
				return statusErr
			}

			limited := io.LimitReader(resp.Body, f.cfg.maxBlobBytes()+1)
			data, err := io.ReadAll(limited)
			if err != nil {
				return resilience.NewTransientError(err, 0)
			}
			if int64(len(data)) > f.cfg.maxBlobBytes() {
				return NewProviderError(ErrBlobTooLarge, eris.New("fetcher: blob exceeds size cap"))
			}

			if isGzip(data) {
				decompressed, err := gunzip(data)
				if err != nil {
					return NewProviderError(ErrMalformedMetadata, eris.Wrap(err, "fetcher: decompress blob"))
				}
				data = decompressed
			}
			out = data
			return nil
		})
	})
	if err != nil {
		return nil, toProviderError(err)
	}
	return out, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return NewProviderError(ErrUnauthorized, eris.Errorf("fetcher: upstream status %d", status))
	case status == http.StatusForbidden:
		return NewProviderError(ErrForbidden, eris.Errorf("fetcher: upstream status %d", status))
	case status == http.StatusNotFound:
		return NewProviderError(ErrNotFound, eris.Errorf("fetcher: upstream status %d", status))
	case status == http.StatusTooManyRequests:
		return resilience.NewTransientError(NewProviderError(ErrRateLimited, eris.Errorf("fetcher: upstream status %d", status)), status)
	case status >= 500:
		return resilience.NewTransientError(NewProviderError(ErrUpstream5xx, eris.Errorf("fetcher: upstream status %d", status)), status)
	default:
		return NewProviderError(ErrMalformedMetadata, eris.Errorf("fetcher: unexpected upstream status %d", status))
	}
}

// toProviderError unwraps resilience retry/circuit-breaker errors back to
// the underlying ProviderError where possible.
func toProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return NewProviderError(ErrUpstream5xx, err)
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	zap.L().Warn("fetcher: unclassified error surfaced as Network", zap.Error(err))
	return NewProviderError(ErrNetwork, err)
}
