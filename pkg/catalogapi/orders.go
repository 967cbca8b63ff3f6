package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// 远端订单状态
const (
	PedidoBorrador  = "BORRADOR"
	PedidoPagada    = "PAGADA"
	PedidoEnviada   = "ENVIADA"
	PedidoEntregada = "ENTREGADA"
	PedidoAnulada   = "ANULADA"
)

// PedidoItem 下单行
type PedidoItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Color     string          `json:"color,omitempty"`
	Size      string          `json:"size,omitempty"`
}

// PedidoInput 下单请求
type PedidoInput struct {
	Items           []PedidoItem    `json:"items"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress string          `json:"shipping_address"`
	City            string          `json:"city"`
	Phone           string          `json:"phone"`
	Notes           string          `json:"notes"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	Total           decimal.Decimal `json:"total"`
}

// Pedido 订单摘要
type Pedido struct {
	ID        int64           `json:"id"`
	Codigo    string          `json:"codigo"`
	Estado    string          `json:"estado"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// PagoResult 支付结果
type PagoResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreatePedido 下单
func (c *Client) CreatePedido(ctx context.Context, in PedidoInput) (*Pedido, error) {
	var out struct {
		Order   Pedido `json:"order"`
		Message string `json:"message"`
	}
	if err := c.send(ctx, http.MethodPost, "/sales/orders/", in, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// ProcessPayment 支付订单
func (c *Client) ProcessPayment(ctx context.Context, id int64) (*PagoResult, error) {
	var out PagoResult
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/sales/orders/%d/process_payment/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyPedidos 当前用户订单
func (c *Client) MyPedidos(ctx context.Context) ([]Pedido, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/sales/orders/my_orders/", nil, &raw); err != nil {
		return nil, err
	}
	var list []Pedido
	if err := decodeList(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// TrackPedido 物流追踪，原样返回远端结构
func (c *Client) TrackPedido(ctx context.Context, id int64) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/sales/orders/%d/track/", id), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
