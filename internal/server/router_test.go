package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/afflab/affiliatehub/backend/internal/auth"
	"github.com/afflab/affiliatehub/backend/internal/email"
	"github.com/afflab/affiliatehub/backend/internal/fetcher"
	"github.com/afflab/affiliatehub/backend/internal/mirror"
	"github.com/afflab/affiliatehub/backend/internal/store"
)

const testOwnerEmail = "owner@example.com"

type fixture struct {
	handler http.Handler
	store   *store.Store
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:server-%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
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
	mirrorService, err := mirror.NewService(mirror.ServiceConfig{Store: hubStore, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build mirror: %v", err)
	}
	hubStore.AttachSyncer(mirrorService)
	campaignService, err := email.NewService(email.ServiceConfig{Mirror: mirrorService, Store: hubStore, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build campaigns: %v", err)
	}
	sessions := auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: []byte("test-secret"),
		AllowedEmail:  testOwnerEmail,
		Issuer:        "affiliatehub-auth",
		Audience:      "affiliatehub-api",
	})
	handler, err := NewHTTPHandler(Dependencies{
		Sessions:  sessions,
		Store:     hubStore,
		Mirror:    mirrorService,
		Campaigns: campaignService,
		Fetcher:   fetcher.NewService(fetcher.ServiceConfig{Logger: zap.NewNop()}),
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	token, _, err := sessions.Login(context.Background(), testOwnerEmail)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return &fixture{handler: handler, store: hubStore, token: token}
}

func (f *fixture) do(t *testing.T, method, path string, payload any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	request := httptest.NewRequest(method, path, &body)
	request.Header.Set("Content-Type", "application/json")
	if authed {
		request.Header.Set("Authorization", "Bearer "+f.token)
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, request)
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %s: %v", recorder.Body.String(), err)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/products", "/subscribers", "/settings", "/stats"} {
		recorder := f.do(t, http.MethodGet, path, nil, false)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, recorder.Code)
		}
	}

	recorder := f.do(t, http.MethodGet, "/products", nil, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", recorder.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	f := newFixture(t)

	granted := f.do(t, http.MethodPost, "/auth/login", map[string]string{"email": testOwnerEmail}, false)
	if granted.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", granted.Code)
	}
	var response loginResponsePayload
	decode(t, granted, &response)
	if response.AccessToken == "" || response.TokenType != "Bearer" {
		t.Fatalf("unexpected login response: %#v", response)
	}

	denied := f.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "stranger@example.com"}, false)
	if denied.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", denied.Code)
	}
}

func TestAddProductValidatesAndScores(t *testing.T) {
	f := newFixture(t)

	missing := f.do(t, http.MethodPost, "/products", map[string]string{"title": "no price"}, true)
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", missing.Code)
	}

	created := f.do(t, http.MethodPost, "/products", map[string]string{
		"title":         "Wireless Earbuds",
		"price":         "24.99",
		"affiliateLink": "https://amzn.to/abc",
	}, true)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var response struct {
		Product struct {
			ID         string `json:"id"`
			Platform   string `json:"platform"`
			Category   string `json:"category"`
			Score      int    `json:"score"`
			ScoreColor string `json:"scoreColor"`
		} `json:"product"`
	}
	decode(t, created, &response)
	if response.Product.Platform != "amazon" {
		t.Fatalf("expected detected platform amazon, got %s", response.Product.Platform)
	}
	if response.Product.Category != "other" {
		t.Fatalf("expected default category, got %s", response.Product.Category)
	}
	if response.Product.Score <= 0 || response.Product.ScoreColor == "" {
		t.Fatalf("expected score decoration, got %#v", response.Product)
	}
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/products", map[string]string{"title": "cheap", "price": "0.40", "affiliateLink": "https://amzn.to/a"}, true)
	f.do(t, http.MethodPost, "/products", map[string]string{"title": "pricey", "price": "9.99", "affiliateLink": "https://www.ebay.com/itm/1"}, true)

	var amazonOnly struct {
		Products []struct {
			Title string `json:"title"`
		} `json:"products"`
	}
	decode(t, f.do(t, http.MethodGet, "/products?platform=amazon", nil, true), &amazonOnly)
	if len(amazonOnly.Products) != 1 || amazonOnly.Products[0].Title != "cheap" {
		t.Fatalf("unexpected filtered list: %#v", amazonOnly.Products)
	}

	var byPrice struct {
		Products []struct {
			Title string `json:"title"`
		} `json:"products"`
	}
	decode(t, f.do(t, http.MethodGet, "/products?sort=price-low", nil, true), &byPrice)
	if len(byPrice.Products) != 2 || byPrice.Products[0].Title != "cheap" {
		t.Fatalf("unexpected price sort: %#v", byPrice.Products)
	}

	var all struct {
		Products []struct {
			Title string `json:"title"`
		} `json:"products"`
	}
	decode(t, f.do(t, http.MethodGet, "/products?platform=all", nil, true), &all)
	if len(all.Products) != 2 {
		t.Fatalf("expected both products for platform=all, got %#v", all.Products)
	}
}

func TestAddSubscriberConflictsAndValidation(t *testing.T) {
	f := newFixture(t)

	bad := f.do(t, http.MethodPost, "/subscribers", map[string]string{"email": "not-an-email"}, true)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.Code)
	}

	first := f.do(t, http.MethodPost, "/subscribers", map[string]string{"email": "Alice@Example.com"}, true)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	duplicate := f.do(t, http.MethodPost, "/subscribers", map[string]string{"email": "alice@example.com"}, true)
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", duplicate.Code)
	}
}

func TestAddSubscriberPushesRemoteAfterResponse(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	pushed := []string{}
	script := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var request struct {
				Action string `json:"action"`
				Email  string `json:"email"`
			}
			json.NewDecoder(r.Body).Decode(&request)
			if request.Action == "addSubscriber" {
				mu.Lock()
				pushed = append(pushed, request.Email)
				mu.Unlock()
			}
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer script.Close()

	settings := f.do(t, http.MethodPut, "/settings", map[string]string{"googleScriptUrl": script.URL}, true)
	if settings.Code != http.StatusOK {
		t.Fatalf("failed to configure endpoint: %d", settings.Code)
	}

	// The remote push runs on a context captured before the handler
	// returns, so it must survive the response and a stream of further
	// requests reusing the same handler.
	const adds = 5
	for i := 0; i < adds; i++ {
		created := f.do(t, http.MethodPost, "/subscribers", map[string]string{
			"email": fmt.Sprintf("user%d@example.com", i),
		}, true)
		if created.Code != http.StatusCreated {
			t.Fatalf("add %d: expected 201, got %d", i, created.Code)
		}
		f.do(t, http.MethodGet, "/subscribers", nil, true)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		count := len(pushed)
		mu.Unlock()
		if count >= adds {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d remote pushes, got %d", adds, count)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStatsSummarizesCollections(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/products", map[string]string{"title": "a", "price": "1", "affiliateLink": "x"}, true)
	f.do(t, http.MethodPost, "/subscribers", map[string]string{"email": "alice@example.com"}, true)
	f.do(t, http.MethodPost, "/products/select-all", nil, true)

	var response struct {
		TotalProducts   int `json:"totalProducts"`
		SelectedCount   int `json:"selectedCount"`
		SubscriberCount int `json:"subscriberCount"`
	}
	decode(t, f.do(t, http.MethodGet, "/stats", nil, true), &response)
	if response.TotalProducts != 1 || response.SelectedCount != 1 || response.SubscriberCount != 1 {
		t.Fatalf("unexpected stats: %#v", response)
	}
}

func TestClearAllRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/products", map[string]string{"title": "a", "price": "1", "affiliateLink": "x"}, true)

	unconfirmed := f.do(t, http.MethodPost, "/backup/clear", nil, true)
	if unconfirmed.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirmation, got %d", unconfirmed.Code)
	}

	confirmed := f.do(t, http.MethodPost, "/backup/clear?confirm=true", nil, true)
	if confirmed.Code != http.StatusOK {
		t.Fatalf("expected 200 with confirmation, got %d", confirmed.Code)
	}

	var listed struct {
		Products []json.RawMessage `json:"products"`
	}
	decode(t, f.do(t, http.MethodGet, "/products", nil, true), &listed)
	if len(listed.Products) != 0 {
		t.Fatalf("expected empty catalog after clear, got %d", len(listed.Products))
	}
}

func TestExportImportEndpoints(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/products", map[string]string{"title": "a", "price": "1", "affiliateLink": "x"}, true)

	exported := f.do(t, http.MethodGet, "/backup/export", nil, true)
	if exported.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", exported.Code)
	}
	var backup map[string]json.RawMessage
	decode(t, exported, &backup)
	if _, ok := backup["exportedAt"]; !ok {
		t.Fatalf("expected exportedAt in backup")
	}

	other := newFixture(t)
	imported := other.do(t, http.MethodPost, "/backup/import", json.RawMessage(exported.Body.Bytes()), true)
	if imported.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", imported.Code, imported.Body.String())
	}
	var listed struct {
		Products []json.RawMessage `json:"products"`
	}
	decode(t, other.do(t, http.MethodGet, "/products", nil, true), &listed)
	if len(listed.Products) != 1 {
		t.Fatalf("expected imported product, got %d", len(listed.Products))
	}
}

func TestShareComposeRequiresSelection(t *testing.T) {
	f := newFixture(t)

	empty := f.do(t, http.MethodPost, "/share/compose", map[string]string{"platform": "twitter"}, true)
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without selection, got %d", empty.Code)
	}

	f.do(t, http.MethodPost, "/products", map[string]string{"title": "a", "price": "1", "affiliateLink": "https://amzn.to/a"}, true)
	f.do(t, http.MethodPost, "/products/select-all", nil, true)

	composed := f.do(t, http.MethodPost, "/share/compose", map[string]string{"platform": "twitter"}, true)
	if composed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", composed.Code)
	}
	var composition struct {
		Text string `json:"text"`
		Link string `json:"link"`
	}
	decode(t, composed, &composition)
	if composition.Text == "" || composition.Link == "" {
		t.Fatalf("unexpected composition: %#v", composition)
	}

	unknown := f.do(t, http.MethodPost, "/share/compose", map[string]string{"platform": "myspace"}, true)
	if unknown.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown platform, got %d", unknown.Code)
	}
}

func TestTelegramBroadcastWithoutCredentials(t *testing.T) {
	f := newFixture(t)

	recorder := f.do(t, http.MethodPost, "/telegram/broadcast", map[string]any{"style": "clean"}, true)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409 without credentials, got %d", recorder.Code)
	}
}

func TestEmailSendRequiresSubject(t *testing.T) {
	f := newFixture(t)

	recorder := f.do(t, http.MethodPost, "/email/send", map[string]string{"template": "minimal"}, true)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without subject, got %d", recorder.Code)
	}
}
