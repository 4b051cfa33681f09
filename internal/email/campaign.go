package email

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
	"github.com/afflab/affiliatehub/backend/internal/mirror"
	"github.com/afflab/affiliatehub/backend/internal/store"
)

var (
	// ErrNoSubscribers rejects a send-to-all with an empty mailing list.
	ErrNoSubscribers = errors.New("email: no subscribers")

	errMissingMirror = errors.New("email: mirror service is required")
	errMissingStore  = errors.New("email: store is required")
)

// ServiceConfig describes the campaign service dependencies.
type ServiceConfig struct {
	Mirror *mirror.Service
	Store  *store.Store
	Logger *zap.Logger
}

// Service renders campaigns and relays delivery to the script endpoint.
type Service struct {
	mirror *mirror.Service
	store  *store.Store
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Mirror == nil {
		return nil, errMissingMirror
	}
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{mirror: cfg.Mirror, store: cfg.Store, logger: logger}, nil
}

// CampaignDraft is the caller-supplied campaign content. Products default
// to the current selection when empty.
type CampaignDraft struct {
	Template TemplateName
	Subject  string
	Intro    string
	Brand    string
}

func (s *Service) render(ctx context.Context, draft CampaignDraft) (string, error) {
	return Render(draft.Template, TemplateData{
		Products:  s.store.SelectedProducts(ctx),
		Subject:   draft.Subject,
		Intro:     draft.Intro,
		BrandName: draft.Brand,
		Settings:  s.store.Settings(ctx),
	})
}

// Preview renders the campaign HTML without sending anything.
func (s *Service) Preview(ctx context.Context, draft CampaignDraft) (string, error) {
	return s.render(ctx, draft)
}

// SendTest renders the campaign and delivers it to a single address.
func (s *Service) SendTest(ctx context.Context, draft CampaignDraft, recipient string) error {
	htmlBody, err := s.render(ctx, draft)
	if err != nil {
		return err
	}
	return s.mirror.SendTestEmail(ctx, recipient, draft.Subject, htmlBody)
}

// SendToAll starts a campaign for every subscriber. Only a campaign the
// endpoint reports fully delivered is recorded in history; a batched
// campaign (daily quota hit) continues through Resume without a record.
func (s *Service) SendToAll(ctx context.Context, draft CampaignDraft) (mirror.CampaignResult, error) {
	subscribers := s.store.Subscribers(ctx)
	if len(subscribers) == 0 {
		return mirror.CampaignResult{}, ErrNoSubscribers
	}
	htmlBody, err := s.render(ctx, draft)
	if err != nil {
		return mirror.CampaignResult{}, err
	}
	result, err := s.mirror.SendToAll(ctx, draft.Subject, htmlBody)
	if err != nil {
		return mirror.CampaignResult{}, err
	}
	if result.Remaining == 0 {
		record := catalog.EmailRecord{
			Subject:        draft.Subject,
			RecipientCount: len(subscribers),
			Template:       string(draft.Template),
		}
		if err := s.store.AddEmailHistory(ctx, record); err != nil {
			s.logger.Warn("campaign sent but history write failed", zap.Error(err))
		}
	}
	return result, nil
}

// Resume sends the next quota batch of an in-flight campaign.
func (s *Service) Resume(ctx context.Context) (mirror.CampaignResult, error) {
	return s.mirror.ResumeCampaign(ctx)
}

// Status polls the endpoint for campaign progress.
func (s *Service) Status(ctx context.Context) (mirror.CampaignStatus, error) {
	return s.mirror.CampaignStatus(ctx)
}
