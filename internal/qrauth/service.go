package qrauth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/phigros-go/phigros-backend/internal/model"
)

const defaultBusinessTTL = 5 * time.Minute

// CreateResult is returned to the caller that starts a QR login.
type CreateResult struct {
	QRID      string
	QRCodeURL string
	ExpiresIn int
	Interval  int
}

// PollOutcome is returned to a caller polling an in-flight QR login.
type PollOutcome struct {
	State   model.QRState
	Session *model.SessionData
}

// Service composes the cache and an upstream Provider into the
// create/poll device-authorization operations.
type Service struct {
	cache    *Cache
	provider Provider
	nowFunc  func() time.Time
}

// NewService builds a Service backed by provider.
func NewService(provider Provider) *Service {
	return &Service{
		cache:    NewCache(),
		provider: provider,
		nowFunc:  time.Now,
	}
}

// CreateQR starts a device-authorization flow for version and stores a
// Pending cache entry keyed by a freshly generated qr_id.
func (s *Service) CreateQR(ctx context.Context, version string) (*CreateResult, error) {
	dc, err := s.provider.CreateDeviceCode(ctx, version)
	if err != nil {
		return nil, eris.Wrap(err, "qrauth: create device code")
	}

	now := s.nowFunc()
	expiresIn := dc.ExpiresIn
	businessTTL := defaultBusinessTTL
	if expiresIn > 0 {
		businessTTL = time.Duration(expiresIn) * time.Second
	} else {
		expiresIn = int(defaultBusinessTTL.Seconds())
	}
	interval := dc.IntervalSecs
	if interval <= 0 {
		interval = 3
	}

	qrID := "qr_" + uuid.New().String()
	s.cache.Put(qrID, model.QRSession{
		QRID:         qrID,
		State:        model.QRStatePending,
		DeviceCode:   dc.DeviceCode,
		DeviceID:     dc.DeviceID,
		IntervalSecs: interval,
		NextPollAt:   now,
		ExpiresAt:    now.Add(businessTTL),
		Version:      version,
	})

	return &CreateResult{
		QRID:      qrID,
		QRCodeURL: dc.QRCodeURL,
		ExpiresIn: expiresIn,
		Interval:  interval,
	}, nil
}

// Poll advances qrID through the device-authorization state machine,
// making at most one upstream call, and returns the resulting state.
func (s *Service) Poll(ctx context.Context, qrID string) (*PollOutcome, error) {
	session, ok := s.cache.Get(qrID)
	if !ok {
		return nil, ErrNotFound
	}

	now := s.nowFunc()
	if now.After(session.ExpiresAt) {
		s.cache.Remove(qrID)
		return nil, ErrExpired
	}

	if session.State != model.QRStatePending && session.State != model.QRStateScanned {
		// Confirmed sessions are terminal; re-polling just replays state.
		return &PollOutcome{State: session.State, Session: session.Session}, nil
	}

	if now.Before(session.NextPollAt) {
		return &PollOutcome{State: session.State}, nil
	}

	result, err := s.provider.PollDeviceCode(ctx, session.DeviceCode, session.Version)
	if err != nil {
		return nil, eris.Wrap(err, "qrauth: poll device code")
	}

	switch result.Status {
	case UpstreamApproved:
		session.State = model.QRStateConfirmed
		session.Session = &model.SessionData{SessionToken: result.SessionToken}
		s.cache.Put(qrID, session)
		return &PollOutcome{State: session.State, Session: session.Session}, nil

	case UpstreamDenied:
		s.cache.Remove(qrID)
		return nil, ErrDenied

	case UpstreamScanned:
		session.State = model.QRStateScanned
		session.NextPollAt = now.Add(time.Duration(session.IntervalSecs) * time.Second)
		s.cache.Put(qrID, session)
		return &PollOutcome{State: session.State}, nil

	default: // UpstreamPending or unrecognized
		session.NextPollAt = now.Add(time.Duration(session.IntervalSecs) * time.Second)
		s.cache.Put(qrID, session)
		return &PollOutcome{State: session.State}, nil
	}
}
