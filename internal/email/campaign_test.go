package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
	"github.com/afflab/affiliatehub/backend/internal/mirror"
	"github.com/afflab/affiliatehub/backend/internal/store"
)

func newCampaignFixture(t *testing.T, endpoint string) (*Service, *store.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:email-%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&store.Record{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	hubStore, err := store.New(store.ServiceConfig{Database: db, IDProvider: store.NewUUIDProvider()})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	if endpoint != "" {
		if err := hubStore.ReplaceSettings(context.Background(), catalog.Settings{GoogleScriptURL: endpoint}); err != nil {
			t.Fatalf("failed to store endpoint: %v", err)
		}
	}
	mirrorService, err := mirror.NewService(mirror.ServiceConfig{Store: hubStore, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build mirror: %v", err)
	}
	campaignService, err := NewService(ServiceConfig{Mirror: mirrorService, Store: hubStore, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build campaign service: %v", err)
	}
	return campaignService, hubStore
}

func seedSelectedProduct(t *testing.T, hubStore *store.Store) {
	t.Helper()
	ctx := context.Background()
	product, err := hubStore.AddProduct(ctx, store.ProductDraft{Title: "Wireless Earbuds", Price: "24.99", AffiliateLink: "https://amzn.to/a"})
	if err != nil {
		t.Fatalf("failed to add product: %v", err)
	}
	if err := hubStore.ToggleProductSelection(ctx, product.ID); err != nil {
		t.Fatalf("failed to select product: %v", err)
	}
}

func TestPreviewRendersSelectedProducts(t *testing.T) {
	campaignService, hubStore := newCampaignFixture(t, "")
	seedSelectedProduct(t, hubStore)

	html, err := campaignService.Preview(context.Background(), CampaignDraft{Template: TemplateMinimal, Subject: "finds"})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !strings.Contains(html, "Wireless Earbuds") {
		t.Fatalf("expected selected product in preview")
	}
}

func TestSendToAllRequiresSubscribers(t *testing.T) {
	campaignService, hubStore := newCampaignFixture(t, "http://unused.invalid")
	seedSelectedProduct(t, hubStore)

	_, err := campaignService.SendToAll(context.Background(), CampaignDraft{Subject: "finds"})
	if !errors.Is(err, ErrNoSubscribers) {
		t.Fatalf("expected ErrNoSubscribers, got %v", err)
	}
}

func TestSendToAllRecordsHistoryOnlyWhenComplete(t *testing.T) {
	var remaining atomic.Int64
	remaining.Store(10)
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Action string `json:"action"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Action != "sendToAll" {
			t.Fatalf("unexpected action: %s", payload.Action)
		}
		fmt.Fprintf(w, `{"success":true,"sentThisBatch":5,"remaining":%d}`, remaining.Load())
	}))
	defer endpoint.Close()

	campaignService, hubStore := newCampaignFixture(t, endpoint.URL)
	seedSelectedProduct(t, hubStore)
	ctx := context.Background()
	hubStore.AddSubscriber(ctx, "alice@example.com")

	// First batch hits the quota: no history yet.
	result, err := campaignService.SendToAll(ctx, CampaignDraft{Template: TemplateMinimal, Subject: "finds"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.Remaining != 10 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if got := len(hubStore.EmailHistory(ctx)); got != 0 {
		t.Fatalf("expected no history for partial send, got %d", got)
	}

	// A complete run records the campaign and bumps the counter.
	remaining.Store(0)
	if _, err := campaignService.SendToAll(ctx, CampaignDraft{Template: TemplateMinimal, Subject: "finds"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	history := hubStore.EmailHistory(ctx)
	if len(history) != 1 || history[0].Subject != "finds" || history[0].RecipientCount != 1 {
		t.Fatalf("unexpected history: %#v", history)
	}
	if got := hubStore.Stats(ctx).EmailsSent; got != 1 {
		t.Fatalf("expected emailsSent 1, got %d", got)
	}
}

func TestSendTestDeliversRenderedCampaign(t *testing.T) {
	var delivered struct {
		Action   string `json:"action"`
		Email    string `json:"email"`
		Subject  string `json:"subject"`
		HTMLBody string `json:"htmlBody"`
	}
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&delivered)
		w.Write([]byte(`{"success":true}`))
	}))
	defer endpoint.Close()

	campaignService, hubStore := newCampaignFixture(t, endpoint.URL)
	seedSelectedProduct(t, hubStore)

	err := campaignService.SendTest(context.Background(), CampaignDraft{Template: TemplateMinimal, Subject: "finds"}, "tester@example.com")
	if err != nil {
		t.Fatalf("test send failed: %v", err)
	}
	if delivered.Action != "sendTestEmail" || delivered.Email != "tester@example.com" {
		t.Fatalf("unexpected delivery payload: %#v", delivered)
	}
	if !strings.Contains(delivered.HTMLBody, "Wireless Earbuds") {
		t.Fatalf("expected rendered campaign body")
	}
}
