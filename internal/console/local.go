package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/internal/service"
	"shopsmart_v1_202610/internal/storefront"
	"shopsmart_v1_202610/internal/wizard"
)

// ==================== LocalBackend 本地模式 ====================

// LocalBackend 直接调用本进程的服务层
type LocalBackend struct {
	users   *service.UserService
	catalog *service.CatalogService
	orders  *service.OrderService
}

// NewLocalBackend 创建本地 Backend
func NewLocalBackend(users *service.UserService, catalog *service.CatalogService, orders *service.OrderService) *LocalBackend {
	return &LocalBackend{users: users, catalog: catalog, orders: orders}
}

// Name 模式名
func (b *LocalBackend) Name() string { return "local" }

// Authenticate 用户名密码登录
func (b *LocalBackend) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	u, err := b.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &Identity{User: wizard.User{ID: u.ID, Username: u.Username, Role: u.Role}}, nil
}

// Gateway 本地模式下各身份共用同一组服务
func (b *LocalBackend) Gateway(*Identity) *Gateway {
	return &Gateway{
		Categories: localCategories{b.catalog},
		Products:   localProducts{b.catalog},
		Images:     localImages{b.catalog},
		Variants:   localVariants{b.catalog},
		Catalog:    localCatalog{b.catalog},
		Shop:       b.catalog,
		Orders:     localOrders{b.orders},
	}
}

// localError 服务层错误转为 TransportError，字段错误原样透传
func localError(op string, err error) error {
	if err == nil {
		return nil
	}
	te := &wizard.TransportError{Op: op, Status: http.StatusInternalServerError, Err: err}
	if fe, ok := service.AsFieldErrors(err); ok {
		te.Status = http.StatusBadRequest
		te.FieldErrors = fe
		return te
	}
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		te.Status = http.StatusNotFound
	case errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrOrderNotPayable),
		errors.Is(err, service.ErrStorageDisabled):
		te.Status = http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientStock):
		te.Status = http.StatusConflict
	}
	return te
}

// ==================== 商品 ====================

type localCategories struct{ svc *service.CatalogService }

func (s localCategories) ListActive(ctx context.Context) ([]wizard.Category, error) {
	list, err := s.svc.ListCategories(ctx, true)
	if err != nil {
		return nil, localError("list categories", err)
	}
	out := make([]wizard.Category, 0, len(list))
	for _, c := range list {
		out = append(out, wizard.Category{ID: c.ID, Name: c.Name, ParentID: c.ParentID, Status: wizard.Status(c.Status)})
	}
	return out, nil
}

type localProducts struct{ svc *service.CatalogService }

func (s localProducts) Create(ctx context.Context, f wizard.BasicFields) (*wizard.Product, error) {
	p, err := s.svc.CreateProduct(ctx, productRequest(f))
	if err != nil {
		return nil, localError("create product", err)
	}
	return toWizardProduct(p), nil
}

func (s localProducts) Update(ctx context.Context, id int64, f wizard.BasicFields) (*wizard.Product, error) {
	p, err := s.svc.UpdateProduct(ctx, id, productRequest(f))
	if err != nil {
		return nil, localError("update product", err)
	}
	return toWizardProduct(p), nil
}

func (s localProducts) GetByID(ctx context.Context, id int64) (*wizard.Product, error) {
	p, err := s.svc.GetProduct(ctx, id)
	if errors.Is(err, service.ErrProductNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, localError("get product", err)
	}
	return toWizardProduct(p), nil
}

func (s localProducts) List(ctx context.Context) ([]wizard.Product, error) {
	list, err := s.svc.AllProducts(ctx)
	if err != nil {
		return nil, localError("list products", err)
	}
	out := make([]wizard.Product, 0, len(list))
	for i := range list {
		out = append(out, *toWizardProduct(&list[i]))
	}
	return out, nil
}

func productRequest(f wizard.BasicFields) *dto.ProductRequest {
	return &dto.ProductRequest{
		Code:        f.Code,
		Name:        f.Name,
		CategoryID:  f.CategoryID,
		Description: f.Description,
		Status:      string(f.Status),
	}
}

func toWizardProduct(p *model.Product) *wizard.Product {
	out := &wizard.Product{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		Status:      wizard.Status(p.Status),
		Images:      make([]wizard.Image, 0, len(p.Images)),
		Variants:    make([]wizard.Variant, 0, len(p.Variants)),
	}
	if p.Category != nil {
		out.CategoryName = p.Category.Name
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, wizard.Image{
			ID: img.ID, ProductID: img.ProductID, URL: img.URL, IsPrincipal: img.IsPrincipal,
		})
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, toWizardVariant(&v))
	}
	return out
}

func toWizardVariant(v *model.ProductVariant) wizard.Variant {
	return wizard.Variant{
		ID:        v.ID,
		ProductID: v.ProductID,
		SKU:       v.SKU,
		Size:      wizard.Size(v.Size),
		Color:     v.Color,
		Price:     v.Price,
		Cost:      v.Cost,
		Stock:     v.Stock,
		Barcode:   v.Barcode,
		Status:    wizard.Status(v.Status),
	}
}

type localImages struct{ svc *service.CatalogService }

func (s localImages) Create(ctx context.Context, productID int64, img wizard.DraftImage) (*wizard.Image, error) {
	up := &dto.ImageUpload{ProductID: productID, URL: img.URL, IsPrincipal: img.IsPrincipal}
	if img.File != nil {
		up.Filename = img.File.Filename
		up.ContentType = img.File.ContentType
		up.Data = img.File.Data
	}
	saved, err := s.svc.AddImage(ctx, up)
	if err != nil {
		return nil, localError("create image", err)
	}
	return &wizard.Image{ID: saved.ID, ProductID: saved.ProductID, URL: saved.URL, IsPrincipal: saved.IsPrincipal}, nil
}

type localVariants struct{ svc *service.CatalogService }

func (s localVariants) Create(ctx context.Context, in wizard.VariantInput) (*wizard.Variant, error) {
	v, err := s.svc.CreateVariant(ctx, &dto.VariantRequest{
		ProductID: in.ProductID,
		SKU:       in.SKU,
		Size:      string(in.Size),
		Color:     in.Color,
		Price:     in.Price,
		Cost:      in.Cost,
		Stock:     in.Stock,
		Barcode:   in.Barcode,
		Status:    string(in.Status),
	})
	if err != nil {
		return nil, localError("create variant", err)
	}
	out := toWizardVariant(v)
	return &out, nil
}

// ==================== 编辑模式 ====================

type localCatalog struct{ svc *service.CatalogService }

func (s localCatalog) DeleteProduct(ctx context.Context, id int64) error {
	return localError("delete product", s.svc.DeleteProduct(ctx, id))
}

func (s localCatalog) ListImages(ctx context.Context, productID int64) ([]wizard.Image, error) {
	list, err := s.svc.ListImages(ctx, productID)
	if err != nil {
		return nil, localError("list images", err)
	}
	out := make([]wizard.Image, 0, len(list))
	for _, img := range list {
		out = append(out, wizard.Image{ID: img.ID, ProductID: img.ProductID, URL: img.URL, IsPrincipal: img.IsPrincipal})
	}
	return out, nil
}

func (s localCatalog) DeleteImage(ctx context.Context, id int64) error {
	return localError("delete image", s.svc.DeleteImage(ctx, id))
}

func (s localCatalog) ListVariants(ctx context.Context, productID int64) ([]wizard.Variant, error) {
	list, err := s.svc.ListVariants(ctx, productID)
	if err != nil {
		return nil, localError("list variants", err)
	}
	out := make([]wizard.Variant, 0, len(list))
	for i := range list {
		out = append(out, toWizardVariant(&list[i]))
	}
	return out, nil
}

func (s localCatalog) DeleteVariant(ctx context.Context, id int64) error {
	return localError("delete variant", s.svc.DeleteVariant(ctx, id))
}

// ==================== 订单 ====================

type localOrders struct{ svc *service.OrderService }

func (s localOrders) Checkout(ctx context.Context, user wizard.User, req *dto.CheckoutRequest, items []storefront.CartItem) (*OrderSummary, error) {
	lines := make([]dto.CheckoutLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, dto.CheckoutLine{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Color:     it.SelectedColor,
			Size:      it.SelectedSize,
			Quantity:  it.Quantity,
			UnitPrice: it.Product.Price,
		})
	}
	order, err := s.svc.Checkout(ctx, user.ID, req, lines)
	if err != nil {
		return nil, localError("checkout", err)
	}
	return toSummary(order), nil
}

func (s localOrders) Pay(ctx context.Context, user wizard.User, orderID int64, req *dto.PaymentRequest) (*OrderSummary, error) {
	order, err := s.svc.Pay(ctx, user.ID, orderID, req)
	if err != nil {
		return nil, localError("pay order", err)
	}
	return toSummary(order), nil
}

func (s localOrders) MyOrders(ctx context.Context, user wizard.User) ([]OrderSummary, error) {
	list, _, err := s.svc.MyOrders(ctx, user.ID, &dto.OrderListRequest{Page: 1, PageSize: 100})
	if err != nil {
		return nil, localError("list orders", err)
	}
	out := make([]OrderSummary, 0, len(list))
	for i := range list {
		out = append(out, *toSummary(&list[i]))
	}
	return out, nil
}

func (s localOrders) Track(ctx context.Context, user wizard.User, orderID int64) (json.RawMessage, error) {
	tr, err := s.svc.Track(ctx, user.ID, orderID)
	if err != nil {
		return nil, localError("track order", err)
	}
	return json.Marshal(tr)
}

func toSummary(o *model.Order) *OrderSummary {
	created := o.CreatedAt
	return &OrderSummary{
		ID:        o.ID,
		Number:    o.OrderNo,
		Status:    o.Status,
		Subtotal:  o.Subtotal,
		Shipping:  o.ShippingCost,
		Total:     o.Total,
		CreatedAt: &created,
	}
}
