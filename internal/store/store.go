// Package store implements the hub's durable record set: six named
// collections persisted as whole serialized blobs with read-modify-write
// semantics on every mutation. It is the sole source of truth read by
// clients; the cloud mirror only overwrites it through explicit pulls.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

const historyCap = 50

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a dotted operation code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opStoreNew = "store.new"
	opLoad     = "store.load"
	opSave     = "store.save"
	opClear    = "store.clear_all"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Syncer pushes local state to the cloud mirror. Pushes are dispatched
// after the local write commits and their failures never affect the write.
type Syncer interface {
	PushProducts(ctx context.Context) error
	PushSettings(ctx context.Context) error
}

// ErrSyncNotConfigured marks a Syncer without a remote endpoint. A push
// failing with it is a quiet no-op, not a logged failure: running without
// an endpoint is a supported mode, not an error state.
var ErrSyncNotConfigured = errors.New("sync endpoint not configured")

// SyncEventKind names the collection a background push covered.
type SyncEventKind string

const (
	SyncEventProducts SyncEventKind = "products"
	SyncEventSettings SyncEventKind = "settings"
)

// SyncEvent reports the outcome of one fire-and-forget push. Events exist
// for UI feedback only; when nobody is draining the channel they are dropped.
type SyncEvent struct {
	Kind SyncEventKind
	Err  error
}

// ServiceConfig describes the dependencies of the Store.
type ServiceConfig struct {
	Database    *gorm.DB
	Clock       func() time.Time
	IDProvider  IDProvider
	Logger      *zap.Logger
	SyncTimeout time.Duration
}

// Store provides synchronous CRUD over the persisted collections.
type Store struct {
	db          *gorm.DB
	clock       func() time.Time
	idProvider  IDProvider
	logger      *zap.Logger
	syncer      Syncer
	events      chan SyncEvent
	syncTimeout time.Duration
}

// New constructs a Store.
func New(cfg ServiceConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opStoreNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opStoreNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	timeout := cfg.SyncTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Store{
		db:          cfg.Database,
		clock:       clock,
		idProvider:  cfg.IDProvider,
		logger:      logger,
		events:      make(chan SyncEvent, 16),
		syncTimeout: timeout,
	}, nil
}

// AttachSyncer wires the cloud mirror in after construction. A store
// without a syncer simply skips the background pushes.
func (s *Store) AttachSyncer(syncer Syncer) {
	s.syncer = syncer
}

// SyncEvents exposes completion notifications of background pushes.
func (s *Store) SyncEvents() <-chan SyncEvent {
	return s.events
}

// load reads a collection blob into out. Missing rows and blobs that fail
// to parse both leave out at its zero value: reads are fail-open so a
// corrupt record degrades to an empty collection instead of an error.
func (s *Store) load(ctx context.Context, key string, out any) {
	var row Record
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("record read failed, treating as empty",
				zap.String("operation", opLoad),
				zap.String("key", key),
				zap.Error(err))
		}
		return
	}
	if err := json.Unmarshal([]byte(row.Value), out); err != nil {
		s.logger.Warn("record blob corrupt, treating as empty",
			zap.String("operation", opLoad),
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *Store) save(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return newServiceError(opSave, "encode_failed", err)
	}
	row := Record{Key: key, Value: string(encoded)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return newServiceError(opSave, "write_failed", err)
	}
	return nil
}

func (s *Store) newID(prefix string) (string, error) {
	value, err := s.idProvider.NewID()
	if err != nil {
		return "", err
	}
	return prefix + value, nil
}

func (s *Store) timestamp() string {
	return s.clock().UTC().Format(time.RFC3339)
}

// ----- products -----

// Products returns all products, newest first.
func (s *Store) Products(ctx context.Context) []catalog.Product {
	products := []catalog.Product{}
	s.load(ctx, keyProducts, &products)
	return products
}

// SelectedProducts returns the products currently marked for broadcasting.
func (s *Store) SelectedProducts(ctx context.Context) []catalog.Product {
	selected := []catalog.Product{}
	for _, product := range s.Products(ctx) {
		if product.Selected {
			selected = append(selected, product)
		}
	}
	return selected
}

// ProductDraft carries the caller-supplied fields of a new product.
type ProductDraft struct {
	Title         string           `json:"title"`
	Price         string           `json:"price"`
	Rating        string           `json:"rating"`
	Platform      catalog.Platform `json:"platform"`
	Category      catalog.Category `json:"category"`
	Image         string           `json:"image"`
	AffiliateLink string           `json:"affiliateLink"`
}

// AddProduct assigns an id and creation timestamp, prepends the record and
// persists the collection. The stored product is returned.
func (s *Store) AddProduct(ctx context.Context, draft ProductDraft) (catalog.Product, error) {
	id, err := s.newID("p_")
	if err != nil {
		return catalog.Product{}, newServiceError("store.add_product", "id_generation_failed", err)
	}
	product := catalog.Product{
		ID:            id,
		Title:         draft.Title,
		Price:         draft.Price,
		Rating:        draft.Rating,
		Platform:      draft.Platform,
		Category:      draft.Category,
		Image:         draft.Image,
		AffiliateLink: draft.AffiliateLink,
		CreatedAt:     s.timestamp(),
		Selected:      false,
	}
	products := append([]catalog.Product{product}, s.Products(ctx)...)
	if err := s.save(ctx, keyProducts, products); err != nil {
		return catalog.Product{}, err
	}
	s.dispatchSync(SyncEventProducts)
	return product, nil
}

// ProductPatch lists the fields an update may touch; nil fields stay as-is.
type ProductPatch struct {
	Title         *string           `json:"title"`
	Price         *string           `json:"price"`
	Rating        *string           `json:"rating"`
	Platform      *catalog.Platform `json:"platform"`
	Category      *catalog.Category `json:"category"`
	Image         *string           `json:"image"`
	AffiliateLink *string           `json:"affiliateLink"`
}

// UpdateProduct shallow-merges patch into the matching product. Unknown ids
// are a no-op.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch ProductPatch) error {
	products := s.Products(ctx)
	for i := range products {
		if products[i].ID != id {
			continue
		}
		applyPatch(&products[i], patch)
		if err := s.save(ctx, keyProducts, products); err != nil {
			return err
		}
		s.dispatchSync(SyncEventProducts)
		return nil
	}
	return nil
}

func applyPatch(product *catalog.Product, patch ProductPatch) {
	if patch.Title != nil {
		product.Title = *patch.Title
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Rating != nil {
		product.Rating = *patch.Rating
	}
	if patch.Platform != nil {
		product.Platform = *patch.Platform
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.Image != nil {
		product.Image = *patch.Image
	}
	if patch.AffiliateLink != nil {
		product.AffiliateLink = *patch.AffiliateLink
	}
}

// DeleteProduct removes the matching product; unknown ids are a no-op.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.DeleteProducts(ctx, []string{id})
}

// DeleteProducts removes every product whose id appears in ids.
func (s *Store) DeleteProducts(ctx context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := []catalog.Product{}
	for _, product := range s.Products(ctx) {
		if !drop[product.ID] {
			kept = append(kept, product)
		}
	}
	if err := s.save(ctx, keyProducts, kept); err != nil {
		return err
	}
	s.dispatchSync(SyncEventProducts)
	return nil
}

// ToggleProductSelection flips the selected flag; unknown ids are a no-op.
func (s *Store) ToggleProductSelection(ctx context.Context, id string) error {
	products := s.Products(ctx)
	for i := range products {
		if products[i].ID != id {
			continue
		}
		products[i].Selected = !products[i].Selected
		if err := s.save(ctx, keyProducts, products); err != nil {
			return err
		}
		s.dispatchSync(SyncEventProducts)
		return nil
	}
	return nil
}

// SelectAllProducts marks every product selected in one rewrite.
func (s *Store) SelectAllProducts(ctx context.Context) error {
	return s.setAllSelected(ctx, true)
}

// DeselectAllProducts clears every selection in one rewrite.
func (s *Store) DeselectAllProducts(ctx context.Context) error {
	return s.setAllSelected(ctx, false)
}

func (s *Store) setAllSelected(ctx context.Context, selected bool) error {
	products := s.Products(ctx)
	for i := range products {
		products[i].Selected = selected
	}
	if err := s.save(ctx, keyProducts, products); err != nil {
		return err
	}
	s.dispatchSync(SyncEventProducts)
	return nil
}

// ReplaceProducts overwrites the whole collection with the supplied snapshot.
// Used by cloud pulls; deliberately does not dispatch a push back.
func (s *Store) ReplaceProducts(ctx context.Context, products []catalog.Product) error {
	if products == nil {
		products = []catalog.Product{}
	}
	return s.save(ctx, keyProducts, products)
}

// ----- subscribers -----

// Subscribers returns all subscribers, newest first.
func (s *Store) Subscribers(ctx context.Context) []catalog.Subscriber {
	subscribers := []catalog.Subscriber{}
	s.load(ctx, keySubscribers, &subscribers)
	return subscribers
}

// AddSubscriber inserts a new subscriber with the email normalized to
// lowercase. A duplicate (case-insensitive) returns nil without writing.
func (s *Store) AddSubscriber(ctx context.Context, email string) (*catalog.Subscriber, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	subscribers := s.Subscribers(ctx)
	for _, existing := range subscribers {
		if strings.EqualFold(existing.Email, normalized) {
			return nil, nil
		}
	}
	id, err := s.newID("s_")
	if err != nil {
		return nil, newServiceError("store.add_subscriber", "id_generation_failed", err)
	}
	subscriber := catalog.Subscriber{
		ID:      id,
		Email:   normalized,
		AddedAt: s.timestamp(),
	}
	subscribers = append([]catalog.Subscriber{subscriber}, subscribers...)
	if err := s.save(ctx, keySubscribers, subscribers); err != nil {
		return nil, err
	}
	return &subscriber, nil
}

// RemoveSubscriber deletes by id; unknown ids are a no-op.
func (s *Store) RemoveSubscriber(ctx context.Context, id string) error {
	kept := []catalog.Subscriber{}
	for _, subscriber := range s.Subscribers(ctx) {
		if subscriber.ID != id {
			kept = append(kept, subscriber)
		}
	}
	return s.save(ctx, keySubscribers, kept)
}

// ReplaceAllSubscribers swaps the entire collection for the pulled email
// set. The remote sheet is authoritative for subscribers, so local-only
// entries are discarded here.
func (s *Store) ReplaceAllSubscribers(ctx context.Context, emails []string) error {
	subscribers := make([]catalog.Subscriber, 0, len(emails))
	addedAt := s.timestamp()
	for _, email := range emails {
		id, err := s.newID("s_")
		if err != nil {
			return newServiceError("store.replace_subscribers", "id_generation_failed", err)
		}
		subscribers = append(subscribers, catalog.Subscriber{
			ID:      id,
			Email:   strings.ToLower(strings.TrimSpace(email)),
			AddedAt: addedAt,
		})
	}
	return s.save(ctx, keySubscribers, subscribers)
}

// ----- settings -----

// Settings returns the configuration record, zero-valued when unset.
func (s *Store) Settings(ctx context.Context) catalog.Settings {
	settings := catalog.Settings{}
	s.load(ctx, keySettings, &settings)
	return settings
}

// SaveSettings replaces the configuration record in full.
func (s *Store) SaveSettings(ctx context.Context, settings catalog.Settings) error {
	if err := s.save(ctx, keySettings, settings); err != nil {
		return err
	}
	s.dispatchSync(SyncEventSettings)
	return nil
}

// ReplaceSettings overwrites settings without dispatching a push back.
// Used by cloud pulls.
func (s *Store) ReplaceSettings(ctx context.Context, settings catalog.Settings) error {
	return s.save(ctx, keySettings, settings)
}

// ----- stats -----

// Stats returns the broadcast counters.
func (s *Store) Stats(ctx context.Context) catalog.Stats {
	stats := catalog.Stats{}
	s.load(ctx, keyStats, &stats)
	return stats
}

// AddTelegramPosts bumps the telegram counter by the number of posts that
// actually went out.
func (s *Store) AddTelegramPosts(ctx context.Context, count int) error {
	return s.mutateStats(ctx, func(stats *catalog.Stats) {
		stats.TelegramPosts += count
	})
}

func (s *Store) mutateStats(ctx context.Context, mutate func(*catalog.Stats)) error {
	stats := s.Stats(ctx)
	mutate(&stats)
	return s.save(ctx, keyStats, stats)
}

// ----- history -----

// EmailHistory returns the capped email campaign log, newest first.
func (s *Store) EmailHistory(ctx context.Context) []catalog.EmailRecord {
	history := []catalog.EmailRecord{}
	s.load(ctx, keyEmailHistory, &history)
	return history
}

// AddEmailHistory prepends a campaign record, evicts beyond the cap and
// bumps the emailsSent counter.
func (s *Store) AddEmailHistory(ctx context.Context, entry catalog.EmailRecord) error {
	entry.SentAt = s.timestamp()
	history := append([]catalog.EmailRecord{entry}, s.EmailHistory(ctx)...)
	if len(history) > historyCap {
		history = history[:historyCap]
	}
	if err := s.save(ctx, keyEmailHistory, history); err != nil {
		return err
	}
	return s.mutateStats(ctx, func(stats *catalog.Stats) {
		stats.EmailsSent++
	})
}

// FBHistory returns the capped Facebook post log, newest first.
func (s *Store) FBHistory(ctx context.Context) []catalog.FBRecord {
	history := []catalog.FBRecord{}
	s.load(ctx, keyFBHistory, &history)
	return history
}

// AddFBHistory prepends a saved post, evicts beyond the cap and bumps the
// fbPosts counter.
func (s *Store) AddFBHistory(ctx context.Context, entry catalog.FBRecord) error {
	entry.CreatedAt = s.timestamp()
	history := append([]catalog.FBRecord{entry}, s.FBHistory(ctx)...)
	if len(history) > historyCap {
		history = history[:historyCap]
	}
	if err := s.save(ctx, keyFBHistory, history); err != nil {
		return err
	}
	return s.mutateStats(ctx, func(stats *catalog.Stats) {
		stats.FBPosts++
	})
}

// ----- backup -----

// Backup is the exported document. On import, keys absent from the
// document leave the stored collection untouched.
type Backup struct {
	Products     []catalog.Product     `json:"products"`
	Subscribers  []catalog.Subscriber  `json:"subscribers"`
	Settings     *catalog.Settings     `json:"settings,omitempty"`
	Stats        *catalog.Stats        `json:"stats,omitempty"`
	EmailHistory []catalog.EmailRecord `json:"emailHistory"`
	FBHistory    []catalog.FBRecord    `json:"fbHistory"`
	ExportedAt   string                `json:"exportedAt"`
}

// ExportAll snapshots every collection into a single backup document.
func (s *Store) ExportAll(ctx context.Context) Backup {
	settings := s.Settings(ctx)
	stats := s.Stats(ctx)
	return Backup{
		Products:     s.Products(ctx),
		Subscribers:  s.Subscribers(ctx),
		Settings:     &settings,
		Stats:        &stats,
		EmailHistory: s.EmailHistory(ctx),
		FBHistory:    s.FBHistory(ctx),
		ExportedAt:   s.timestamp(),
	}
}

// ImportAll overwrites each collection present in the backup.
func (s *Store) ImportAll(ctx context.Context, backup Backup) error {
	if backup.Products != nil {
		if err := s.save(ctx, keyProducts, backup.Products); err != nil {
			return err
		}
	}
	if backup.Subscribers != nil {
		if err := s.save(ctx, keySubscribers, backup.Subscribers); err != nil {
			return err
		}
	}
	if backup.Settings != nil {
		if err := s.save(ctx, keySettings, *backup.Settings); err != nil {
			return err
		}
	}
	if backup.Stats != nil {
		if err := s.save(ctx, keyStats, *backup.Stats); err != nil {
			return err
		}
	}
	if backup.EmailHistory != nil {
		if err := s.save(ctx, keyEmailHistory, backup.EmailHistory); err != nil {
			return err
		}
	}
	if backup.FBHistory != nil {
		if err := s.save(ctx, keyFBHistory, backup.FBHistory); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll removes every collection record.
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("key IN ?", allKeys).Delete(&Record{}).Error
	if err != nil {
		return newServiceError(opClear, "delete_failed", err)
	}
	return nil
}

// ----- background sync -----

// dispatchSync pushes the named collection to the cloud mirror on a
// background goroutine. The push runs after the local write has committed
// and its failure is reported, never propagated.
func (s *Store) dispatchSync(kind SyncEventKind) {
	if s.syncer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()

		var err error
		switch kind {
		case SyncEventProducts:
			err = s.syncer.PushProducts(ctx)
		case SyncEventSettings:
			err = s.syncer.PushSettings(ctx)
		}
		if err != nil && !errors.Is(err, ErrSyncNotConfigured) {
			s.logger.Warn("cloud push failed, local data stands",
				zap.String("collection", string(kind)),
				zap.Error(err))
		}
		select {
		case s.events <- SyncEvent{Kind: kind, Err: err}:
		default:
		}
	}()
}
