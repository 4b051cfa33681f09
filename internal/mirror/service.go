package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/store"
)

// ErrNotConfigured marks operations attempted before an endpoint URL has
// been saved in settings. Callers treat it as a cheap no-op failure, and
// the store's background dispatch recognizes the wrapped sentinel and
// stays silent about it.
var ErrNotConfigured = fmt.Errorf("mirror: %w", store.ErrSyncNotConfigured)

var errMissingStore = errors.New("mirror: store is required")

// ServiceConfig describes the dependencies of the mirror Service.
type ServiceConfig struct {
	Client *Client
	Store  *store.Store
	Logger *zap.Logger
}

// Service composes the wire client with the local store. Pushes upload
// local snapshots; pulls replace local collections in full. The endpoint
// URL is read from settings on every call so saving a new URL takes
// effect immediately.
type Service struct {
	client *Client
	store  *store.Store
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	client := cfg.Client
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = NewClient(nil, logger)
	}
	return &Service{client: client, store: cfg.Store, logger: logger}, nil
}

func (s *Service) endpoint(ctx context.Context) (string, error) {
	endpoint := strings.TrimSpace(s.store.Settings(ctx).GoogleScriptURL)
	if endpoint == "" {
		return "", ErrNotConfigured
	}
	return endpoint, nil
}

// PushProducts uploads the full local product collection.
func (s *Service) PushProducts(ctx context.Context) error {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return err
	}
	return s.client.SaveProducts(ctx, endpoint, s.store.Products(ctx))
}

// PullProducts replaces the local product collection with the remote
// snapshot. Returns whether the pull succeeded; on failure local data is
// untouched.
func (s *Service) PullProducts(ctx context.Context) (bool, error) {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return false, err
	}
	products, err := s.client.GetProducts(ctx, endpoint)
	if err != nil {
		return false, err
	}
	if err := s.store.ReplaceProducts(ctx, products); err != nil {
		return false, err
	}
	return true, nil
}

// PushSettings uploads the settings record.
func (s *Service) PushSettings(ctx context.Context) error {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return err
	}
	return s.client.SaveSettings(ctx, endpoint, s.store.Settings(ctx))
}

// PullSettings replaces local settings with the remote snapshot, except
// the endpoint URL itself: the locally configured value always survives a
// pull so connectivity is never lost by syncing.
func (s *Service) PullSettings(ctx context.Context) (bool, error) {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return false, err
	}
	remote, err := s.client.GetSettings(ctx, endpoint)
	if err != nil {
		return false, err
	}
	remote.GoogleScriptURL = s.store.Settings(ctx).GoogleScriptURL
	if err := s.store.ReplaceSettings(ctx, remote); err != nil {
		return false, err
	}
	return true, nil
}

// PullSubscribers replaces the entire local subscriber collection with the
// rows from the remote sheet. The sheet is authoritative: local-only
// subscribers not yet pushed are lost. Rows without an @ are skipped.
// Returns the number of subscribers pulled.
func (s *Service) PullSubscribers(ctx context.Context) (int, error) {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := s.client.GetSubscribers(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(row.Email, "@") {
			emails = append(emails, row.Email)
		}
	}
	if err := s.store.ReplaceAllSubscribers(ctx, emails); err != nil {
		return 0, err
	}
	return len(emails), nil
}

// SyncAllFromCloud pulls products then settings sequentially and reports a
// single combined outcome. Used once at dashboard load.
func (s *Service) SyncAllFromCloud(ctx context.Context) error {
	if _, err := s.PullProducts(ctx); err != nil {
		return fmt.Errorf("pull products: %w", err)
	}
	if _, err := s.PullSettings(ctx); err != nil {
		return fmt.Errorf("pull settings: %w", err)
	}
	return nil
}

// AddSubscriberRemote appends one email to the remote sheet. Best effort;
// the caller has already written locally.
func (s *Service) AddSubscriberRemote(ctx context.Context, email string) error {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return err
	}
	return s.client.AddSubscriber(ctx, endpoint, email)
}

// SendTestEmail relays a rendered campaign to a single address.
func (s *Service) SendTestEmail(ctx context.Context, email, subject, htmlBody string) error {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return err
	}
	return s.client.SendTestEmail(ctx, endpoint, email, subject, htmlBody)
}

// SendToAll starts a campaign on the endpoint.
func (s *Service) SendToAll(ctx context.Context, subject, htmlBody string) (CampaignResult, error) {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return CampaignResult{}, err
	}
	return s.client.SendToAll(ctx, endpoint, subject, htmlBody)
}

// ResumeCampaign sends the next quota batch.
func (s *Service) ResumeCampaign(ctx context.Context) (CampaignResult, error) {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return CampaignResult{}, err
	}
	return s.client.ResumeCampaign(ctx, endpoint)
}

// CampaignStatus polls campaign progress.
func (s *Service) CampaignStatus(ctx context.Context) (CampaignStatus, error) {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return CampaignStatus{}, err
	}
	return s.client.GetCampaignStatus(ctx, endpoint)
}
