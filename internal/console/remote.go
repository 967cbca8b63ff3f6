package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/internal/storefront"
	"shopsmart_v1_202610/internal/wizard"
	"shopsmart_v1_202610/pkg/catalogapi"
)

// ==================== RemoteBackend 远程模式 ====================

// RemoteBackend 通过 REST API 访问上游系统
type RemoteBackend struct {
	client   *catalogapi.Client
	shipping decimal.Decimal
}

// NewRemoteBackend 创建远程 Backend，shipping 为下单时提交的运费
func NewRemoteBackend(client *catalogapi.Client, shipping decimal.Decimal) *RemoteBackend {
	return &RemoteBackend{client: client, shipping: shipping}
}

// Name 模式名
func (b *RemoteBackend) Name() string { return "remote" }

// Authenticate 上游登录并拉取用户信息
func (b *RemoteBackend) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	tokens, err := b.client.Login(ctx, username, password)
	if err != nil {
		return nil, remoteError("login", err)
	}
	info, err := b.client.WithToken(tokens.Access).UserInfo(ctx)
	if err != nil {
		return nil, remoteError("user info", err)
	}
	return &Identity{
		User:    wizard.User{ID: info.ID, Username: info.Username, Role: info.Role},
		Token:   tokens.Access,
		Refresh: tokens.Refresh,
	}, nil
}

// RefreshIdentity 用 refresh token 换新的 access token
func (b *RemoteBackend) RefreshIdentity(ctx context.Context, id *Identity) (*Identity, error) {
	if id == nil || id.Refresh == "" {
		return nil, ErrRefreshDisabled
	}
	access, err := b.client.Refresh(ctx, id.Refresh)
	if err != nil {
		return nil, remoteError("refresh token", err)
	}
	out := *id
	out.Token = access
	return &out, nil
}

// Gateway 每个身份使用自己的 token
func (b *RemoteBackend) Gateway(id *Identity) *Gateway {
	c := b.client
	if id != nil && id.Token != "" {
		c = c.WithToken(id.Token)
	}
	return &Gateway{
		Categories: remoteCategories{c},
		Products:   remoteProducts{c},
		Images:     remoteImages{c},
		Variants:   remoteVariants{c},
		Catalog:    remoteCatalog{c},
		Shop:       remoteShop{c},
		Orders:     remoteOrders{c: c, shipping: b.shipping},
	}
}

// remoteError APIError 转为 TransportError，字段名保持上游原样
func remoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	te := &wizard.TransportError{Op: op, Err: err}
	if ae, ok := catalogapi.IsAPIError(err); ok {
		te.Status = ae.Status
		te.FieldErrors = ae.Fields
	} else {
		te.Status = http.StatusBadGateway
	}
	return te
}

func isNotFound(err error) bool {
	ae, ok := catalogapi.IsAPIError(err)
	return ok && ae.Status == http.StatusNotFound
}

// ==================== 状态映射 ====================

func fromEstado(estado string) wizard.Status {
	if estado == catalogapi.EstadoInactivo {
		return wizard.StatusInactive
	}
	return wizard.StatusActive
}

func toEstado(s wizard.Status) string {
	if s == wizard.StatusInactive {
		return catalogapi.EstadoInactivo
	}
	return catalogapi.EstadoActivo
}

var pedidoStatus = map[string]string{
	catalogapi.PedidoBorrador:  model.OrderStatusPending,
	catalogapi.PedidoPagada:    model.OrderStatusPaid,
	catalogapi.PedidoEnviada:   model.OrderStatusShipped,
	catalogapi.PedidoEntregada: model.OrderStatusDelivered,
	catalogapi.PedidoAnulada:   model.OrderStatusCancelled,
}

func fromPedido(p *catalogapi.Pedido) *OrderSummary {
	out := &OrderSummary{ID: p.ID, Number: p.Codigo, Status: p.Estado, Total: p.Total}
	if s, ok := pedidoStatus[p.Estado]; ok {
		out.Status = s
	}
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		out.CreatedAt = &t
	}
	return out
}

// ==================== 商品 ====================

type remoteCategories struct{ c *catalogapi.Client }

func (s remoteCategories) ListActive(ctx context.Context) ([]wizard.Category, error) {
	list, err := s.c.ListCategorias(ctx)
	if err != nil {
		return nil, remoteError("list categories", err)
	}
	out := make([]wizard.Category, 0, len(list))
	for _, c := range list {
		if c.Estado == catalogapi.EstadoInactivo {
			continue
		}
		out = append(out, wizard.Category{ID: c.ID, Name: c.Nombre, ParentID: c.Padre, Status: fromEstado(c.Estado)})
	}
	return out, nil
}

type remoteProducts struct{ c *catalogapi.Client }

func (s remoteProducts) Create(ctx context.Context, f wizard.BasicFields) (*wizard.Product, error) {
	p, err := s.c.CreateProducto(ctx, productoInput(f))
	if err != nil {
		return nil, remoteError("create product", err)
	}
	return fromProducto(p), nil
}

func (s remoteProducts) Update(ctx context.Context, id int64, f wizard.BasicFields) (*wizard.Product, error) {
	p, err := s.c.UpdateProducto(ctx, id, productoInput(f))
	if err != nil {
		return nil, remoteError("update product", err)
	}
	return fromProducto(p), nil
}

func (s remoteProducts) GetByID(ctx context.Context, id int64) (*wizard.Product, error) {
	p, err := s.c.GetProducto(ctx, id)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, remoteError("get product", err)
	}
	return fromProducto(p), nil
}

func (s remoteProducts) List(ctx context.Context) ([]wizard.Product, error) {
	list, err := s.c.ListProductos(ctx, nil)
	if err != nil {
		return nil, remoteError("list products", err)
	}
	out := make([]wizard.Product, 0, len(list))
	for i := range list {
		out = append(out, *fromProducto(&list[i]))
	}
	return out, nil
}

func productoInput(f wizard.BasicFields) catalogapi.ProductoInput {
	in := catalogapi.ProductoInput{
		Nombre:      f.Name,
		Categoria:   f.CategoryID,
		Descripcion: f.Description,
		Estado:      toEstado(f.Status),
	}
	if f.Code != "" {
		code := f.Code
		in.Codigo = &code
	}
	return in
}

func fromProducto(p *catalogapi.Producto) *wizard.Product {
	out := &wizard.Product{
		ID:           p.ID,
		Code:         p.Codigo,
		Name:         p.Nombre,
		CategoryID:   p.Categoria,
		CategoryName: p.CategoriaNombre,
		Description:  p.Descripcion,
		Status:       fromEstado(p.Estado),
		Images:       make([]wizard.Image, 0, len(p.Imagenes)),
		Variants:     make([]wizard.Variant, 0, len(p.Variantes)),
	}
	for _, img := range p.Imagenes {
		out.Images = append(out.Images, wizard.Image{ID: img.ID, ProductID: img.Producto, URL: img.Src(), IsPrincipal: img.Principal})
	}
	for _, v := range p.Variantes {
		out.Variants = append(out.Variants, fromVariante(&v))
	}
	return out
}

func fromVariante(v *catalogapi.Variante) wizard.Variant {
	return wizard.Variant{
		ID:        v.ID,
		ProductID: v.Producto,
		SKU:       v.SKU,
		Size:      wizard.Size(v.Talla),
		Color:     v.Color,
		Price:     v.Precio,
		Cost:      v.Costo,
		Stock:     v.Stock,
		Barcode:   v.Barcode,
		Status:    fromEstado(v.Estado),
	}
}

type remoteImages struct{ c *catalogapi.Client }

func (s remoteImages) Create(ctx context.Context, productID int64, img wizard.DraftImage) (*wizard.Image, error) {
	in := catalogapi.ImagenInput{Producto: productID, URL: img.URL, Principal: img.IsPrincipal}
	if img.File != nil {
		in.Filename = img.File.Filename
		in.ContentType = img.File.ContentType
		in.Data = img.File.Data
	}
	saved, err := s.c.CreateImagen(ctx, in)
	if err != nil {
		return nil, remoteError("create image", err)
	}
	return &wizard.Image{ID: saved.ID, ProductID: saved.Producto, URL: saved.Src(), IsPrincipal: saved.Principal}, nil
}

type remoteVariants struct{ c *catalogapi.Client }

func (s remoteVariants) Create(ctx context.Context, in wizard.VariantInput) (*wizard.Variant, error) {
	v, err := s.c.CreateVariante(ctx, catalogapi.Variante{
		Producto: in.ProductID,
		SKU:      in.SKU,
		Talla:    string(in.Size),
		Color:    in.Color,
		Precio:   in.Price,
		Costo:    in.Cost,
		Stock:    in.Stock,
		Barcode:  in.Barcode,
		Estado:   toEstado(in.Status),
	})
	if err != nil {
		return nil, remoteError("create variant", err)
	}
	out := fromVariante(v)
	return &out, nil
}

// ==================== 编辑模式 ====================

type remoteCatalog struct{ c *catalogapi.Client }

func (s remoteCatalog) DeleteProduct(ctx context.Context, id int64) error {
	return remoteError("delete product", s.c.DeleteProducto(ctx, id))
}

func (s remoteCatalog) ListImages(ctx context.Context, productID int64) ([]wizard.Image, error) {
	list, err := s.c.ListImagenes(ctx, productID)
	if err != nil {
		return nil, remoteError("list images", err)
	}
	out := make([]wizard.Image, 0, len(list))
	for _, img := range list {
		// 远端未按商品过滤时在本地再筛一次
		if img.Producto != productID {
			continue
		}
		out = append(out, wizard.Image{ID: img.ID, ProductID: img.Producto, URL: img.Src(), IsPrincipal: img.Principal})
	}
	return out, nil
}

func (s remoteCatalog) DeleteImage(ctx context.Context, id int64) error {
	return remoteError("delete image", s.c.DeleteImagen(ctx, id))
}

func (s remoteCatalog) ListVariants(ctx context.Context, productID int64) ([]wizard.Variant, error) {
	list, err := s.c.ListVariantes(ctx, productID)
	if err != nil {
		return nil, remoteError("list variants", err)
	}
	out := make([]wizard.Variant, 0, len(list))
	for i := range list {
		if list[i].Producto != productID {
			continue
		}
		out = append(out, fromVariante(&list[i]))
	}
	return out, nil
}

func (s remoteCatalog) DeleteVariant(ctx context.Context, id int64) error {
	return remoteError("delete variant", s.c.DeleteVariante(ctx, id))
}

// ==================== 店面 ====================

type remoteShop struct{ c *catalogapi.Client }

// ShopProducts 启用商品中至少有一个启用变体的才上架
func (s remoteShop) ShopProducts(ctx context.Context) ([]storefront.Product, error) {
	list, err := s.c.ListProductos(ctx, nil)
	if err != nil {
		return nil, remoteError("list products", err)
	}
	out := make([]storefront.Product, 0, len(list))
	for i := range list {
		p := &list[i]
		if p.Estado == catalogapi.EstadoInactivo {
			continue
		}
		if sp, ok := shopProduct(p); ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

func shopProduct(p *catalogapi.Producto) (storefront.Product, bool) {
	sp := storefront.Product{
		ID:          p.ID,
		Name:        p.Nombre,
		Description: p.Descripcion,
		Category:    p.CategoriaNombre,
		Gender:      p.Genero,
		Colors:      []string{},
		Sizes:       []string{},
	}
	seenColor := map[string]bool{}
	seenSize := map[string]bool{}
	found := false
	for _, v := range p.Variantes {
		if v.Estado == catalogapi.EstadoInactivo {
			continue
		}
		if !found || v.Precio.LessThan(sp.Price) {
			sp.Price = v.Precio
		}
		found = true
		sp.Stock += v.Stock
		if !seenColor[v.Color] {
			seenColor[v.Color] = true
			sp.Colors = append(sp.Colors, v.Color)
		}
		seenSize[v.Talla] = true
	}
	if !found {
		return storefront.Product{}, false
	}
	for _, size := range model.Sizes {
		if seenSize[size] {
			sp.Sizes = append(sp.Sizes, size)
		}
	}
	for _, img := range p.Imagenes {
		if img.Principal || sp.ImageURL == "" {
			sp.ImageURL = img.Src()
		}
		if img.Principal {
			break
		}
	}
	return sp, true
}

// ==================== 订单 ====================

type remoteOrders struct {
	c        *catalogapi.Client
	shipping decimal.Decimal
}

func (s remoteOrders) Checkout(ctx context.Context, _ wizard.User, req *dto.CheckoutRequest, items []storefront.CartItem) (*OrderSummary, error) {
	in := catalogapi.PedidoInput{
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.Address,
		City:            req.City,
		Phone:           req.Phone,
		Notes:           req.Notes,
		ShippingCost:    s.shipping,
	}
	subtotal := decimal.Zero
	for _, it := range items {
		in.Items = append(in.Items, catalogapi.PedidoItem{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Quantity:  it.Quantity,
			Color:     it.SelectedColor,
			Size:      it.SelectedSize,
		})
		subtotal = subtotal.Add(it.LineTotal())
	}
	in.Subtotal = subtotal.Round(2)
	in.Total = subtotal.Add(s.shipping).Round(2)

	p, err := s.c.CreatePedido(ctx, in)
	if err != nil {
		return nil, remoteError("checkout", err)
	}
	out := fromPedido(p)
	out.Subtotal = in.Subtotal
	out.Shipping = s.shipping
	if out.Total.IsZero() {
		out.Total = in.Total
	}
	return out, nil
}

func (s remoteOrders) Pay(ctx context.Context, user wizard.User, orderID int64, _ *dto.PaymentRequest) (*OrderSummary, error) {
	res, err := s.c.ProcessPayment(ctx, orderID)
	if err != nil {
		return nil, remoteError("pay order", err)
	}
	if !res.Success {
		return nil, &wizard.TransportError{Op: "pay order", Status: http.StatusPaymentRequired, Err: errors.New(res.Message)}
	}

	// 上游支付接口不返回订单，回查一次
	orders, err := s.MyOrders(ctx, user)
	if err == nil {
		for i := range orders {
			if orders[i].ID == orderID {
				return &orders[i], nil
			}
		}
	}
	return &OrderSummary{ID: orderID, Status: model.OrderStatusPaid}, nil
}

func (s remoteOrders) MyOrders(ctx context.Context, _ wizard.User) ([]OrderSummary, error) {
	list, err := s.c.MyPedidos(ctx)
	if err != nil {
		return nil, remoteError("list orders", err)
	}
	out := make([]OrderSummary, 0, len(list))
	for i := range list {
		out = append(out, *fromPedido(&list[i]))
	}
	return out, nil
}

func (s remoteOrders) Track(ctx context.Context, _ wizard.User, orderID int64) (json.RawMessage, error) {
	raw, err := s.c.TrackPedido(ctx, orderID)
	if err != nil {
		return nil, remoteError("track order", err)
	}
	return raw, nil
}
