package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/storefront"
	"shopsmart_v1_202610/internal/wizard"
)

// ==================== fake backend ====================

type fakeStore struct {
	mu        sync.Mutex
	calls     []string
	products  map[int64]*wizard.Product
	nextID    int64
	failImage bool
	failBasic error
	shop      []storefront.Product
	orders    []storefront.CartItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: map[int64]*wizard.Product{}, nextID: 100}
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) ListActive(context.Context) ([]wizard.Category, error) {
	f.record("list-categories")
	return []wizard.Category{{ID: 3, Name: "Camisas", Status: wizard.StatusActive}}, nil
}

func (f *fakeStore) Create(_ context.Context, b wizard.BasicFields) (*wizard.Product, error) {
	f.record("create-product")
	if f.failBasic != nil {
		return nil, f.failBasic
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &wizard.Product{ID: f.nextID, Name: b.Name, CategoryID: b.CategoryID, Status: b.Status}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, b wizard.BasicFields) (*wizard.Product, error) {
	f.record("update-product")
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.Name = b.Name
	return p, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*wizard.Product, error) {
	f.record("get-product")
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	out := *p
	out.Name = p.Name + " (server)"
	return &out, nil
}

func (f *fakeStore) List(context.Context) ([]wizard.Product, error) {
	f.record("list-products")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []wizard.Product{}
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

type fakeImages struct{ *fakeStore }

func (f fakeImages) Create(_ context.Context, productID int64, img wizard.DraftImage) (*wizard.Image, error) {
	f.record("create-image")
	if f.failImage {
		return nil, &wizard.TransportError{Op: "create image", Status: 400, FieldErrors: map[string][]string{"imagen": {"too big"}}}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	im := wizard.Image{ID: 1, ProductID: productID, URL: img.URL, IsPrincipal: img.IsPrincipal}
	f.products[productID].Images = append(f.products[productID].Images, im)
	return &im, nil
}

type fakeVariants struct{ *fakeStore }

func (f fakeVariants) Create(_ context.Context, in wizard.VariantInput) (*wizard.Variant, error) {
	f.record("create-variant:" + in.SKU)
	f.mu.Lock()
	defer f.mu.Unlock()
	v := wizard.Variant{ID: 1, ProductID: in.ProductID, SKU: in.SKU, Size: in.Size, Color: in.Color, Price: in.Price}
	f.products[in.ProductID].Variants = append(f.products[in.ProductID].Variants, v)
	return &v, nil
}

type fakeCatalog struct{ *fakeStore }

func (f fakeCatalog) DeleteProduct(_ context.Context, id int64) error {
	f.record("delete-product")
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
	return nil
}

func (f fakeCatalog) ListImages(_ context.Context, productID int64) ([]wizard.Image, error) {
	f.record("list-images")
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[productID]; ok {
		return append([]wizard.Image{}, p.Images...), nil
	}
	return []wizard.Image{}, nil
}

func (f fakeCatalog) DeleteImage(_ context.Context, id int64) error {
	f.record("delete-image")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		kept := []wizard.Image{}
		for _, img := range p.Images {
			if img.ID != id {
				kept = append(kept, img)
			}
		}
		p.Images = kept
	}
	return nil
}

func (f fakeCatalog) ListVariants(_ context.Context, productID int64) ([]wizard.Variant, error) {
	f.record("list-variants")
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[productID]; ok {
		return append([]wizard.Variant{}, p.Variants...), nil
	}
	return []wizard.Variant{}, nil
}

func (f fakeCatalog) DeleteVariant(_ context.Context, id int64) error {
	f.record("delete-variant")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		kept := []wizard.Variant{}
		for _, v := range p.Variants {
			if v.ID != id {
				kept = append(kept, v)
			}
		}
		p.Variants = kept
	}
	return nil
}

func (f *fakeStore) ShopProducts(context.Context) ([]storefront.Product, error) {
	return f.shop, nil
}

type fakeOrders struct{ *fakeStore }

func (f fakeOrders) Checkout(_ context.Context, _ wizard.User, _ *dto.CheckoutRequest, items []storefront.CartItem) (*OrderSummary, error) {
	f.orders = append(f.orders, items...)
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return &OrderSummary{ID: 1, Number: "ORD-1", Status: "pending", Total: total}, nil
}

func (f fakeOrders) Pay(context.Context, wizard.User, int64, *dto.PaymentRequest) (*OrderSummary, error) {
	return &OrderSummary{ID: 1, Status: "paid"}, nil
}

func (f fakeOrders) MyOrders(context.Context, wizard.User) ([]OrderSummary, error) {
	return []OrderSummary{{ID: 1}}, nil
}

func (f fakeOrders) Track(context.Context, wizard.User, int64) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"pending"}`), nil
}

type fakeBackend struct {
	store     *fakeStore
	refreshes int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Authenticate(_ context.Context, username, password string) (*Identity, error) {
	if password != "secret" {
		return nil, errors.New("invalid username or password")
	}
	role := ""
	switch username {
	case "admin":
		role = "admin"
	case "seller":
		role = "seller"
	}
	return &Identity{User: wizard.User{ID: 7, Username: username, Role: role}, Token: "t0", Refresh: "r0"}, nil
}

func (b *fakeBackend) Gateway(*Identity) *Gateway {
	return &Gateway{
		Categories: b.store,
		Products:   b.store,
		Images:     fakeImages{b.store},
		Variants:   fakeVariants{b.store},
		Shop:       b.store,
		Orders:     fakeOrders{b.store},
		Catalog:    fakeCatalog{b.store},
	}
}

func (b *fakeBackend) RefreshIdentity(_ context.Context, id *Identity) (*Identity, error) {
	b.refreshes++
	out := *id
	out.Token = "t1"
	return &out, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeStore) {
	store := newFakeStore()
	m := NewManager(&fakeBackend{store: store}, Options{NoticeDelay: 20 * time.Millisecond, SessionTTL: time.Hour})
	return m, store
}

func login(t *testing.T, m *Manager, username string) *Session {
	s, err := m.Login(context.Background(), username, "secret")
	require.NoError(t, err)
	return s
}

// fillCamisa 走完 Camisa 草稿：基础信息、一张 URL 图片、一个 L/Azul 变体
func fillCamisa(t *testing.T, s *Session) {
	steps := []wizard.Action{
		wizard.SetBasicInfo{Name: "Camisa", CategoryID: 3},
		wizard.Next{},
		wizard.AddImage{URL: "https://img.test/camisa.jpg", Principal: true},
		wizard.Next{},
		wizard.ToggleSize{Size: wizard.SizeL},
		wizard.SetVariantForm{Color: "Azul", Price: "19.99"},
		wizard.AddVariants{},
	}
	for _, a := range steps {
		_, err := s.Dispatch(a)
		require.NoError(t, err, "%T", a)
	}
}

// ==================== Manager ====================

func TestManager_LoginGetLogout(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Login(context.Background(), "admin", "wrong")
	assert.Error(t, err)
	assert.Zero(t, m.Len())

	s := login(t, m, "admin")
	assert.Equal(t, "admin", s.Role())
	assert.Equal(t, int64(7), s.CurrentUser().ID)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	var evicted []string
	m.OnEvict(func(id string) { evicted = append(evicted, id) })
	m.Logout(s.ID)
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, []string{s.ID}, evicted)
}

func TestManager_EvictIdle(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := login(t, m, "admin")
	now = now.Add(50 * time.Minute)
	fresh := login(t, m, "seller")
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, m.EvictIdle())
	_, err := m.Get(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestManager_Refresh(t *testing.T) {
	m, _ := newTestManager(t)
	s := login(t, m, "admin")

	got, err := m.Refresh(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", got.currentIdentity().Token)
	assert.Equal(t, 1, m.Backend().(*fakeBackend).refreshes)

	_, err = m.Refresh(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGate(t *testing.T) {
	admin := Gate("admin")
	assert.Equal(t, ViewDashboard, admin.View)
	keys := []string{}
	for _, mod := range admin.Modules {
		keys = append(keys, mod.Key)
	}
	assert.Equal(t, []string{"products", "categories", "inventory", "stock", "sales", "forecast", "users", "roles", "reports"}, keys)

	seller := Gate("seller")
	assert.Equal(t, ViewDashboard, seller.View)
	require.Len(t, seller.Modules, 1)
	assert.Equal(t, "sales", seller.Modules[0].Key)

	for _, role := range []string{"", "customer"} {
		g := Gate(role)
		assert.Equal(t, ViewShop, g.View)
		assert.Empty(t, g.Modules)
	}

	assert.True(t, CanAuthor("admin"))
	assert.False(t, CanAuthor("seller"))
}

// ==================== 向导 ====================

func TestSession_SubmitCamisa(t *testing.T) {
	m, store := newTestManager(t)
	s := login(t, m, "admin")
	_, err := s.Products(context.Background(), false)
	require.NoError(t, err)

	fillCamisa(t, s)
	view := s.Wizard()
	assert.True(t, view.CanSubmit)
	assert.Equal(t, wizard.Completeness{Basic: true, Images: true, Variants: true}, view.Completeness)

	view, report, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wizard.StageSuccess, report.Outcome)
	assert.False(t, report.Partial())
	assert.Equal(t, 1, report.ImagesOK)
	assert.Equal(t, 1, report.VariantsOK)

	assert.Equal(t, []string{"list-products", "create-product", "create-image", "create-variant:CAMISA-AZUL-L", "get-product"}, store.Calls())

	// 草稿清空，回到第一步
	assert.Equal(t, wizard.StageBasicInfo, view.Stage)
	assert.Empty(t, view.Draft.Name)
	assert.Equal(t, "Product created", view.Notice)

	// 列表中是回查结果而不是草稿
	list, err := s.Products(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Camisa (server)", list[0].Name)

	// 提示自动消失并重新加载列表
	assert.Eventually(t, func() bool {
		return s.Wizard().Notice == ""
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		calls := store.Calls()
		return calls[len(calls)-1] == "list-products"
	}, time.Second, 5*time.Millisecond)
}

func TestSession_SubmitBeforeListLoaded(t *testing.T) {
	m, store := newTestManager(t)
	store.products[50] = &wizard.Product{ID: 50, Name: "Existing", CategoryID: 3}
	s := login(t, m, "admin")

	fillCamisa(t, s)
	_, _, err := s.Submit(context.Background())
	require.NoError(t, err)

	list, err := s.Products(context.Background(), false)
	require.NoError(t, err)
	names := []string{}
	for _, p := range list {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Existing", "Camisa"}, names)
}

func TestSession_SubmitFailureKeepsDraft(t *testing.T) {
	m, store := newTestManager(t)
	store.failBasic = &wizard.TransportError{
		Op: "create product", Status: http.StatusBadRequest,
		FieldErrors: map[string][]string{"nombre": {"Ya existe un producto con este nombre."}},
	}
	s := login(t, m, "admin")
	fillCamisa(t, s)

	view, report, err := s.Submit(context.Background())
	var te *wizard.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"Ya existe un producto con este nombre."}, te.FieldErrors["nombre"])
	assert.Equal(t, wizard.StageFailed, report.Outcome)

	assert.Equal(t, wizard.StageVariants, view.Stage)
	assert.Equal(t, "Camisa", view.Draft.Name)
	assert.Contains(t, view.Error, "Ya existe")
	assert.Equal(t, []string{"create-product"}, store.Calls())
}

func TestSession_SubmitPartial(t *testing.T) {
	m, store := newTestManager(t)
	store.failImage = true
	s := login(t, m, "admin")
	fillCamisa(t, s)

	view, report, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Partial())
	require.Len(t, report.ImagesFailed, 1)
	assert.Equal(t, "https://img.test/camisa.jpg", report.ImagesFailed[0].Label)
	assert.Equal(t, []string{"too big"}, report.ImagesFailed[0].FieldErrors["imagen"])
	assert.Equal(t, 1, report.VariantsOK)
	assert.Equal(t, "Product created with some errors", view.Notice)
}

func TestSession_DispatchValidation(t *testing.T) {
	m, _ := newTestManager(t)
	s := login(t, m, "admin")

	view, err := s.Dispatch(wizard.Next{})
	assert.True(t, wizard.IsValidation(err))
	assert.Equal(t, wizard.StageBasicInfo, view.Stage)
	assert.Equal(t, "name and category are required", view.Error)

	view, err = s.Dispatch(wizard.SetBasicInfo{Name: "Polera", CategoryID: 3})
	require.NoError(t, err)
	assert.Empty(t, view.Error)
	assert.Equal(t, wizard.DescriptionSoftLimit, view.DescriptionRemaining)
}

func TestSession_OpenEdit(t *testing.T) {
	m, store := newTestManager(t)
	s := login(t, m, "admin")
	fillCamisa(t, s)
	_, report, err := s.Submit(context.Background())
	require.NoError(t, err)

	view, err := s.OpenEdit(context.Background(), report.Product.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.ModeEdit, view.Mode)
	assert.True(t, view.CanSubmit)

	_, err = s.OpenEdit(context.Background(), 999)
	assert.ErrorIs(t, err, ErrProductMissing)

	_, err = s.Dispatch(wizard.SetBasicInfo{Name: "Camisa Oxford", CategoryID: 3})
	require.NoError(t, err)
	view, _, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Product updated", view.Notice)
	assert.Contains(t, store.Calls(), "update-product")
}

// seedStored 直接在数据源放一个带两张图片、两个变体的商品
func seedStored(store *fakeStore) {
	store.products[60] = &wizard.Product{
		ID: 60, Name: "Polo", CategoryID: 3, Status: wizard.StatusActive,
		Images: []wizard.Image{
			{ID: 11, ProductID: 60, URL: "https://img.test/a.jpg", IsPrincipal: true},
			{ID: 12, ProductID: 60, URL: "https://img.test/b.jpg"},
		},
		Variants: []wizard.Variant{
			{ID: 21, ProductID: 60, SKU: "POLO-M-AZUL", Size: wizard.SizeM, Color: "Azul", Price: decimal.NewFromInt(20)},
			{ID: 22, ProductID: 60, SKU: "POLO-L-AZUL", Size: wizard.SizeL, Color: "Azul", Price: decimal.NewFromInt(20)},
		},
	}
}

func TestSession_StoredItems(t *testing.T) {
	m, store := newTestManager(t)
	seedStored(store)
	s := login(t, m, "admin")
	ctx := context.Background()

	images, err := s.StoredImages(ctx, 60)
	require.NoError(t, err)
	assert.Len(t, images, 2)
	variants, err := s.StoredVariants(ctx, 60)
	require.NoError(t, err)
	assert.Len(t, variants, 2)

	_, err = s.DeleteStoredImage(ctx, 60, 99)
	assert.ErrorIs(t, err, ErrItemMissing)
	assert.NotContains(t, store.Calls(), "delete-image")
}

func TestSession_DeleteStoredSyncsEditDraft(t *testing.T) {
	m, store := newTestManager(t)
	seedStored(store)
	s := login(t, m, "admin")
	ctx := context.Background()

	_, err := s.Products(ctx, false)
	require.NoError(t, err)
	view, err := s.OpenEdit(ctx, 60)
	require.NoError(t, err)
	require.Len(t, view.Draft.Images, 2)

	// 未提交的基础字段修改在同步后保留
	_, err = s.Dispatch(wizard.SetBasicInfo{Name: "Polo Piqué", CategoryID: 3})
	require.NoError(t, err)

	view, err = s.DeleteStoredImage(ctx, 60, 12)
	require.NoError(t, err)
	require.Len(t, view.Draft.Images, 1)
	assert.Equal(t, "img-11", view.Draft.Images[0].ID)
	assert.Equal(t, "Polo Piqué", view.Draft.Name)

	view, err = s.DeleteStoredVariant(ctx, 60, 21)
	require.NoError(t, err)
	require.Len(t, view.Draft.Variants, 1)
	assert.Equal(t, "POLO-L-AZUL", view.Draft.Variants[0].SKU)

	list, err := s.Products(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Images, 1)
	assert.Len(t, list[0].Variants, 1)
}

func TestSession_DeleteProduct(t *testing.T) {
	m, store := newTestManager(t)
	seedStored(store)
	s := login(t, m, "admin")
	ctx := context.Background()

	_, err := s.Products(ctx, false)
	require.NoError(t, err)
	_, err = s.OpenEdit(ctx, 60)
	require.NoError(t, err)

	view, err := s.DeleteProduct(ctx, 60)
	require.NoError(t, err)
	assert.Equal(t, wizard.ModeCreate, view.Mode)
	assert.Empty(t, view.Draft.Name)

	list, err := s.Products(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Contains(t, store.Calls(), "delete-product")
}

func TestSession_Categories(t *testing.T) {
	m, store := newTestManager(t)
	s := login(t, m, "admin")

	for i := 0; i < 2; i++ {
		cats, err := s.Categories(context.Background(), false)
		require.NoError(t, err)
		require.Len(t, cats, 1)
	}
	assert.Equal(t, []string{"list-categories"}, store.Calls())
}

// ==================== 购物车与订单 ====================

func TestSession_CartAndCheckout(t *testing.T) {
	m, store := newTestManager(t)
	store.shop = []storefront.Product{{
		ID: 5, Name: "Polera", Price: decimal.RequireFromString("15.50"),
		Colors: []string{"Rojo"}, Sizes: []string{"M"},
	}}

	guest := m.Guest()
	assert.Nil(t, guest.CurrentUser())
	item, err := guest.AddToCart(context.Background(), 5, storefront.Selection{Color: "Rojo", Size: "M", Quantity: 2})
	require.NoError(t, err)
	assert.NotEqual(t, "5", item.CartID)

	_, err = guest.Checkout(context.Background(), &dto.CheckoutRequest{Address: "x", City: "Lima", Phone: "1"})
	assert.ErrorIs(t, err, ErrLoginRequired)

	s := login(t, m, "ana")
	_, err = s.Checkout(context.Background(), &dto.CheckoutRequest{})
	assert.ErrorIs(t, err, ErrCartEmpty)

	_, err = s.AddToCart(context.Background(), 99, storefront.Selection{})
	assert.ErrorIs(t, err, ErrProductMissing)

	_, err = s.AddToCart(context.Background(), 5, storefront.Selection{Size: "M"})
	var ve *storefront.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "color", ve.Field)

	added, err := s.AddToCart(context.Background(), 5, storefront.Selection{Color: "Rojo", Size: "M", Quantity: 2})
	require.NoError(t, err)
	_, err = s.AddToCart(context.Background(), 5, storefront.Selection{Color: "Rojo", Size: "M"})
	require.NoError(t, err)
	cart := s.Cart()
	assert.Equal(t, 2, cart.Count)
	assert.Equal(t, "46.5", cart.Subtotal.String())

	cart = s.RemoveFromCart("unknown")
	assert.Equal(t, 2, cart.Count)
	cart = s.RemoveFromCart(added.CartID)
	assert.Equal(t, 1, cart.Count)

	order, err := s.Checkout(context.Background(), &dto.CheckoutRequest{Address: "Av. Sol 1", City: "Lima", Phone: "999"})
	require.NoError(t, err)
	assert.Equal(t, "15.5", order.Total.String())
	assert.Zero(t, s.Cart().Count)

	paid, err := s.Pay(context.Background(), order.ID, &dto.PaymentRequest{Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)

	orders, err := s.Orders(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	raw, err := s.Track(context.Background(), order.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"pending"}`, string(raw))
}
