package console

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/storefront"
	"shopsmart_v1_202610/internal/wizard"
)

// reloadTimeout 提示消失后刷新商品列表的超时
const reloadTimeout = 30 * time.Second

// ==================== Session 控制台会话 ====================

// Session 一个登录用户（或访客）的全部控制台状态
// 所有方法通过 mu 串行化；CurrentUser 只读不可变字段，不加锁
type Session struct {
	ID string

	user        *wizard.User
	noticeDelay time.Duration

	mu         sync.Mutex
	identity   *Identity
	gateway    *Gateway
	submitter  *wizard.Submitter
	state      wizard.State
	products   []wizard.Product
	categories []wizard.Category
	notice     string
	noticeGen  int
	timer      *time.Timer
	cart       *storefront.Cart
	lastSeen   time.Time
	closed     bool
}

func newSession(id string, identity *Identity, gw *Gateway, noticeDelay time.Duration, now time.Time) *Session {
	s := &Session{
		ID:          id,
		noticeDelay: noticeDelay,
		state:       wizard.NewState(),
		cart:        storefront.NewCart(),
		lastSeen:    now,
	}
	if identity != nil {
		u := identity.User
		s.user = &u
	}
	s.setGateway(identity, gw)
	return s
}

func (s *Session) setGateway(identity *Identity, gw *Gateway) {
	s.identity = identity
	s.gateway = gw
	s.submitter = wizard.NewSubmitter(gw.Products, gw.Images, gw.Variants)
}

// CurrentUser 当前用户，访客为 nil
func (s *Session) CurrentUser() *wizard.User {
	return s.user
}

// Role 当前角色，访客为空
func (s *Session) Role() string {
	if s.user == nil {
		return ""
	}
	return s.user.Role
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen 最近一次访问时间
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// ==================== 向导视图 ====================

// WizardView 向导状态及其派生值
type WizardView struct {
	wizard.State
	Completeness         wizard.Completeness `json:"completeness"`
	CanSubmit            bool                `json:"can_submit"`
	DescriptionRemaining int                 `json:"description_remaining"`
	Notice               string              `json:"notice,omitempty"`
}

func (s *Session) viewLocked() WizardView {
	return WizardView{
		State:                s.state,
		Completeness:         s.state.Completeness(),
		CanSubmit:            s.state.CanSubmit(),
		DescriptionRemaining: s.state.Draft.DescriptionRemaining(),
		Notice:               s.notice,
	}
}

// Wizard 当前向导视图
func (s *Session) Wizard() WizardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Dispatch 应用一个向导动作；校验失败时状态不变，错误写入视图
func (s *Session) Dispatch(a wizard.Action) (WizardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := wizard.Reduce(s.state, a)
	if err != nil {
		s.state.Error = err.Error()
		return s.viewLocked(), err
	}
	s.state = next
	return s.viewLocked(), nil
}

// OpenCreate 打开新建向导，丢弃未提交的草稿
func (s *Session) OpenCreate() WizardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = wizard.NewState()
	return s.viewLocked()
}

// OpenEdit 以已有商品打开编辑向导
func (s *Session) OpenEdit(ctx context.Context, productID int64) (WizardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.gateway.Products.GetByID(ctx, productID)
	if err != nil {
		return s.viewLocked(), err
	}
	if p == nil {
		return s.viewLocked(), ErrProductMissing
	}
	s.state = wizard.EditState(p)
	return s.viewLocked(), nil
}

// ==================== 提交 ====================

// ItemFailure 单个图片/变体的失败
type ItemFailure struct {
	ID          string              `json:"id"`
	Label       string              `json:"label"`
	Error       string              `json:"error"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
}

// SubmitReport 提交结果，部分失败时列出失败项
type SubmitReport struct {
	Outcome        wizard.Stage    `json:"outcome"`
	Product        *wizard.Product `json:"product,omitempty"`
	ImagesOK       int             `json:"images_ok"`
	ImagesFailed   []ItemFailure   `json:"images_failed"`
	VariantsOK     int             `json:"variants_ok"`
	VariantsFailed []ItemFailure   `json:"variants_failed"`
}

// Partial 是否部分成功
func (r *SubmitReport) Partial() bool {
	return len(r.ImagesFailed) > 0 || len(r.VariantsFailed) > 0
}

func newSubmitReport(res *wizard.Result) *SubmitReport {
	r := &SubmitReport{ImagesFailed: []ItemFailure{}, VariantsFailed: []ItemFailure{}}
	if res == nil {
		r.Outcome = wizard.StageFailed
		return r
	}
	r.Outcome = res.Outcome
	r.Product = res.Product
	r.ImagesOK = res.Images.Succeeded()
	r.VariantsOK = res.Variants.Succeeded()
	for _, f := range res.Images.Failed() {
		label := f.Item.URL
		if f.Item.File != nil {
			label = f.Item.File.Filename
		}
		r.ImagesFailed = append(r.ImagesFailed, failure(f.Item.ID, label, f.Err))
	}
	for _, f := range res.Variants.Failed() {
		r.VariantsFailed = append(r.VariantsFailed, failure(f.Item.ID, f.Item.SKU, f.Err))
	}
	return r
}

func failure(id, label string, err error) ItemFailure {
	out := ItemFailure{ID: id, Label: label, Error: err.Error()}
	var te *wizard.TransportError
	if errors.As(err, &te) {
		out.FieldErrors = te.FieldErrors
	}
	return out
}

// Submit 提交草稿
// 成功后回查到的商品写入会话商品列表，并显示提示，提示消失时重新加载列表
func (s *Session) Submit(ctx context.Context) (WizardView, *SubmitReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	editing := s.state.Mode == wizard.ModeEdit
	next, res, err := s.submitter.Submit(ctx, s, s.state)
	s.state = next
	report := newSubmitReport(res)
	if err != nil {
		return s.viewLocked(), report, err
	}

	if res.Product != nil {
		s.upsertProductLocked(*res.Product)
	}
	msg := "Product created"
	switch {
	case editing:
		msg = "Product updated"
	case report.Partial():
		msg = "Product created with some errors"
	}
	s.showNoticeLocked(msg)
	return s.viewLocked(), report, nil
}

// upsertProductLocked 已存在则替换，否则放到列表最前
// 列表尚未加载时不写入，下次读取时从数据源完整加载
func (s *Session) upsertProductLocked(p wizard.Product) {
	if s.products == nil {
		return
	}
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return
		}
	}
	s.products = append([]wizard.Product{p}, s.products...)
}

// showNoticeLocked 显示提示，noticeDelay 后自动清除并刷新商品列表
func (s *Session) showNoticeLocked(msg string) {
	s.notice = msg
	s.noticeGen++
	gen := s.noticeGen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.noticeDelay, func() { s.dismissNotice(gen) })
}

func (s *Session) dismissNotice(gen int) {
	s.mu.Lock()
	if s.closed || gen != s.noticeGen {
		s.mu.Unlock()
		return
	}
	s.notice = ""
	products := s.gateway.Products
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	list, err := products.List(ctx)
	if err != nil {
		zap.L().Warn("reload products failed", zap.String("session_id", s.ID), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.products = list
	}
}

// ==================== 商品与分类 ====================

// Products 会话商品列表，首次访问或 reload 时从数据源加载
func (s *Session) Products(ctx context.Context, reload bool) ([]wizard.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.products == nil || reload {
		list, err := s.gateway.Products.List(ctx)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []wizard.Product{}
		}
		s.products = list
	}
	out := make([]wizard.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

// Categories 启用的分类，首次访问时加载
func (s *Session) Categories(ctx context.Context, reload bool) ([]wizard.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categories == nil || reload {
		list, err := s.gateway.Categories.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		s.categories = list
	}
	out := make([]wizard.Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

// ==================== 已持久化商品 ====================

// StoredImages 商品在数据源中的图片
func (s *Session) StoredImages(ctx context.Context, productID int64) ([]wizard.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gateway.Catalog.ListImages(ctx, productID)
}

// StoredVariants 商品在数据源中的变体
func (s *Session) StoredVariants(ctx context.Context, productID int64) ([]wizard.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gateway.Catalog.ListVariants(ctx, productID)
}

// DeleteStoredImage 删除商品的一张图片，并同步会话列表与编辑中的草稿
func (s *Session) DeleteStoredImage(ctx context.Context, productID, imageID int64) (WizardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	images, err := s.gateway.Catalog.ListImages(ctx, productID)
	if err != nil {
		return s.viewLocked(), err
	}
	found := false
	for _, img := range images {
		found = found || img.ID == imageID
	}
	if !found {
		return s.viewLocked(), ErrItemMissing
	}
	if err := s.gateway.Catalog.DeleteImage(ctx, imageID); err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), s.syncStoredLocked(ctx, productID)
}

// DeleteStoredVariant 删除商品的一个变体，并同步会话列表与编辑中的草稿
func (s *Session) DeleteStoredVariant(ctx context.Context, productID, variantID int64) (WizardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	variants, err := s.gateway.Catalog.ListVariants(ctx, productID)
	if err != nil {
		return s.viewLocked(), err
	}
	found := false
	for _, v := range variants {
		found = found || v.ID == variantID
	}
	if !found {
		return s.viewLocked(), ErrItemMissing
	}
	if err := s.gateway.Catalog.DeleteVariant(ctx, variantID); err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), s.syncStoredLocked(ctx, productID)
}

// syncStoredLocked 重新读取图片与变体；编辑同一商品时只替换草稿中的图片与变体
func (s *Session) syncStoredLocked(ctx context.Context, productID int64) error {
	images, err := s.gateway.Catalog.ListImages(ctx, productID)
	if err != nil {
		return err
	}
	variants, err := s.gateway.Catalog.ListVariants(ctx, productID)
	if err != nil {
		return err
	}
	for i := range s.products {
		if s.products[i].ID == productID {
			s.products[i].Images = images
			s.products[i].Variants = variants
		}
	}
	if s.state.Mode == wizard.ModeEdit && s.state.ProductID == productID {
		s.state = s.state.WithStored(images, variants)
	}
	return nil
}

// DeleteProduct 删除商品；正在编辑该商品时向导回到新建状态
func (s *Session) DeleteProduct(ctx context.Context, productID int64) (WizardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gateway.Catalog.DeleteProduct(ctx, productID); err != nil {
		return s.viewLocked(), err
	}
	kept := s.products[:0]
	for _, p := range s.products {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	s.products = kept
	if s.state.Mode == wizard.ModeEdit && s.state.ProductID == productID {
		s.state = wizard.NewState()
	}
	return s.viewLocked(), nil
}

// ==================== 购物车 ====================

// CartView 购物车视图
type CartView struct {
	Items    []storefront.CartItem `json:"items"`
	Count    int                   `json:"count"`
	Subtotal decimal.Decimal       `json:"subtotal"`
}

func (s *Session) cartLocked() CartView {
	return CartView{Items: s.cart.Items(), Count: s.cart.Len(), Subtotal: s.cart.Total()}
}

// Cart 购物车
func (s *Session) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked()
}

// AddToCart 按店面商品快照加购
func (s *Session) AddToCart(ctx context.Context, productID int64, sel storefront.Selection) (storefront.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.gateway.Shop.ShopProducts(ctx)
	if err != nil {
		return storefront.CartItem{}, err
	}
	for _, p := range list {
		if p.ID == productID {
			return s.cart.Add(p, sel)
		}
	}
	return storefront.CartItem{}, ErrProductMissing
}

// RemoveFromCart 移除条目，不存在时不报错
func (s *Session) RemoveFromCart(cartID string) CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Remove(cartID)
	return s.cartLocked()
}

// ClearCart 清空购物车
func (s *Session) ClearCart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	return s.cartLocked()
}

// ==================== 订单 ====================

func (s *Session) requireUser() (wizard.User, error) {
	if s.user == nil || s.user.ID == 0 {
		return wizard.User{}, ErrLoginRequired
	}
	return *s.user, nil
}

// Checkout 以购物车下单，成功后清空购物车
func (s *Session) Checkout(ctx context.Context, req *dto.CheckoutRequest) (*OrderSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if s.cart.Len() == 0 {
		return nil, ErrCartEmpty
	}
	order, err := s.gateway.Orders.Checkout(ctx, user, req, s.cart.Items())
	if err != nil {
		return nil, err
	}
	s.cart.Clear()
	return order, nil
}

func (s *Session) orderDesk() OrderDesk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gateway.Orders
}

// Pay 支付订单
func (s *Session) Pay(ctx context.Context, orderID int64, req *dto.PaymentRequest) (*OrderSummary, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	return s.orderDesk().Pay(ctx, user, orderID, req)
}

// Orders 我的订单
func (s *Session) Orders(ctx context.Context) ([]OrderSummary, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	return s.orderDesk().MyOrders(ctx, user)
}

// Track 订单追踪
func (s *Session) Track(ctx context.Context, orderID int64) (json.RawMessage, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	return s.orderDesk().Track(ctx, user, orderID)
}

// Shop 店面商品
func (s *Session) Shop(ctx context.Context) ([]storefront.Product, error) {
	s.mu.Lock()
	shop := s.gateway.Shop
	s.mu.Unlock()
	return shop.ShopProducts(ctx)
}

// refreshIdentity 上游 token 刷新后重建数据访问入口
func (s *Session) refreshIdentity(identity *Identity, gw *Gateway) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setGateway(identity, gw)
}

func (s *Session) currentIdentity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}
