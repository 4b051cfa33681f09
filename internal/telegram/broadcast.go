package telegram

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

// postDelay is the self-imposed spacing between consecutive channel posts.
const postDelay = 2 * time.Second

var errMissingClient = errors.New("telegram: client is required")

// Sender is the subset of Client the broadcaster needs.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, photoURL, caption string) error
}

// BroadcasterConfig describes a Broadcaster. Delay defaults to 2 seconds.
type BroadcasterConfig struct {
	Sender Sender
	Logger *zap.Logger
	Delay  time.Duration
}

// Broadcaster posts a batch of products one by one, pacing requests with a
// rate limiter instead of backoff: there is no retry, a failed post just
// increments the failure count.
type Broadcaster struct {
	sender  Sender
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewBroadcaster constructs a Broadcaster.
func NewBroadcaster(cfg BroadcasterConfig) (*Broadcaster, error) {
	if cfg.Sender == nil {
		return nil, errMissingClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = postDelay
	}
	return &Broadcaster{
		sender:  cfg.Sender,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}, nil
}

// Result counts the outcome of one broadcast run.
type Result struct {
	Posted int `json:"posted"`
	Failed int `json:"failed"`
}

// Broadcast posts every product sequentially. Products with an image are
// sent as photos when includeImages is set. The run stops early only when
// the context is cancelled.
func (b *Broadcaster) Broadcast(ctx context.Context, products []catalog.Product, style PostStyle, includeImages bool) (Result, error) {
	var result Result
	for _, product := range products {
		if err := b.limiter.Wait(ctx); err != nil {
			return result, err
		}
		message := ComposePost(product, style)

		var err error
		if includeImages && product.Image != "" {
			err = b.sender.SendPhoto(ctx, product.Image, message)
		} else {
			err = b.sender.SendMessage(ctx, message)
		}
		if err != nil {
			b.logger.Warn("channel post failed",
				zap.String("product_id", product.ID),
				zap.Error(err))
			result.Failed++
			continue
		}
		result.Posted++
	}
	return result, nil
}
