package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// 远端状态取值
const (
	EstadoActivo   = "activo"
	EstadoInactivo = "inactivo"
)

// ==================== 资源结构 ====================

// Categoria 分类
type Categoria struct {
	ID          int64  `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion,omitempty"`
	Padre       *int64 `json:"padre,omitempty"`
	Estado      string `json:"estado"`
}

// Imagen 商品图片；上传的文件在 imagen，外链在 url
type Imagen struct {
	ID        int64  `json:"id"`
	Producto  int64  `json:"producto"`
	Imagen    string `json:"imagen,omitempty"`
	URL       string `json:"url,omitempty"`
	Principal bool   `json:"principal"`
}

// Src 图片地址
func (i Imagen) Src() string {
	if i.Imagen != "" {
		return i.Imagen
	}
	return i.URL
}

// Variante 商品变体
type Variante struct {
	ID       int64           `json:"id,omitempty"`
	Producto int64           `json:"producto"`
	SKU      string          `json:"sku"`
	Talla    string          `json:"talla"`
	Color    string          `json:"color"`
	Precio   decimal.Decimal `json:"precio"`
	Costo    decimal.Decimal `json:"costo"`
	Stock    int             `json:"stock"`
	Barcode  string          `json:"barcode"`
	Estado   string          `json:"estado"`
}

// Producto 商品，详情接口带图片与变体
type Producto struct {
	ID              int64      `json:"id"`
	Codigo          string     `json:"codigo"`
	Nombre          string     `json:"nombre"`
	Categoria       int64      `json:"categoria"`
	CategoriaNombre string     `json:"categoria_nombre,omitempty"`
	Descripcion     string     `json:"descripcion"`
	Genero          string     `json:"genero,omitempty"`
	Estado          string     `json:"estado"`
	Imagenes        []Imagen   `json:"imagenes,omitempty"`
	Variantes       []Variante `json:"variantes,omitempty"`
}

// ProductoInput 创建/更新商品；编码为空时传 null 由远端分配
type ProductoInput struct {
	Codigo      *string `json:"codigo"`
	Nombre      string  `json:"nombre"`
	Categoria   int64   `json:"categoria"`
	Descripcion string  `json:"descripcion"`
	Estado      string  `json:"estado"`
}

// ImagenInput 新增图片，Data 与 URL 二选一
type ImagenInput struct {
	Producto    int64
	Filename    string
	ContentType string
	Data        []byte
	URL         string
	Principal   bool
}

// ==================== 分类 ====================

// ListCategorias 分类列表
func (c *Client) ListCategorias(ctx context.Context) ([]Categoria, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/catalog/categorias/", nil, &raw); err != nil {
		return nil, err
	}
	var list []Categoria
	if err := decodeList(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ==================== 商品 ====================

// ListProductos 商品列表
func (c *Client) ListProductos(ctx context.Context, query map[string]string) ([]Producto, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/catalog/productos/", query, &raw); err != nil {
		return nil, err
	}
	var list []Producto
	if err := decodeList(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetProducto 商品详情
func (c *Client) GetProducto(ctx context.Context, id int64) (*Producto, error) {
	var p Producto
	if err := c.get(ctx, fmt.Sprintf("/catalog/productos/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProducto 创建商品
func (c *Client) CreateProducto(ctx context.Context, in ProductoInput) (*Producto, error) {
	var p Producto
	if err := c.send(ctx, http.MethodPost, "/catalog/productos/", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProducto 整体更新商品主体
func (c *Client) UpdateProducto(ctx context.Context, id int64, in ProductoInput) (*Producto, error) {
	var p Producto
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/catalog/productos/%d/", id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProducto 删除商品
func (c *Client) DeleteProducto(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/catalog/productos/%d/", id), nil, nil)
}

// ==================== 图片 ====================

// ListImagenes 图片列表，producto 为 0 时不过滤
func (c *Client) ListImagenes(ctx context.Context, producto int64) ([]Imagen, error) {
	var query map[string]string
	if producto > 0 {
		query = map[string]string{"producto": strconv.FormatInt(producto, 10)}
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/catalog/imagenes/", query, &raw); err != nil {
		return nil, err
	}
	var list []Imagen
	if err := decodeList(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateImagen 新增图片：文件走 multipart，URL 走 JSON
func (c *Client) CreateImagen(ctx context.Context, in ImagenInput) (*Imagen, error) {
	const path = "/catalog/imagenes/"
	var img Imagen

	if len(in.Data) == 0 {
		body := map[string]interface{}{
			"producto":  in.Producto,
			"url":       in.URL,
			"principal": in.Principal,
		}
		if err := c.send(ctx, http.MethodPost, path, body, &img); err != nil {
			return nil, err
		}
		return &img, nil
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(in.Data)
	}
	resp, err := c.request(ctx, c.write).
		SetMultipartFormData(map[string]string{
			"producto":  strconv.FormatInt(in.Producto, 10),
			"principal": strconv.FormatBool(in.Principal),
		}).
		SetMultipartField("imagen", in.Filename, contentType, bytes.NewReader(in.Data)).
		Post(path)
	if err := decode(resp, err, http.MethodPost, path, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// DeleteImagen 删除图片
func (c *Client) DeleteImagen(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/catalog/imagenes/%d/", id), nil, nil)
}

// ==================== 变体 ====================

// ListVariantes 变体列表
func (c *Client) ListVariantes(ctx context.Context, producto int64) ([]Variante, error) {
	var query map[string]string
	if producto > 0 {
		query = map[string]string{"producto": strconv.FormatInt(producto, 10)}
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/catalog/variantes/", query, &raw); err != nil {
		return nil, err
	}
	var list []Variante
	if err := decodeList(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateVariante 创建变体
func (c *Client) CreateVariante(ctx context.Context, in Variante) (*Variante, error) {
	if in.Producto <= 0 {
		return nil, errors.New("variante without producto")
	}
	var v Variante
	if err := c.send(ctx, http.MethodPost, "/catalog/variantes/", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVariante 删除变体
func (c *Client) DeleteVariante(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/catalog/variantes/%d/", id), nil, nil)
}
