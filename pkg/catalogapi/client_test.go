package catalogapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/api/", Timeout: 5 * time.Second, RetryCount: 2})
}

func TestClient_CreateProductoSendsSpanishFields(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/catalog/productos/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 42, "codigo": "PRD-00042", "nombre": "Camisa", "categoria": 3, "estado": "activo"}`)
	}).WithToken("tok")

	p, err := c.CreateProducto(context.Background(), ProductoInput{Nombre: "Camisa", Categoria: 3, Estado: EstadoActivo})
	require.NoError(t, err)
	assert.EqualValues(t, 42, p.ID)
	assert.Equal(t, "PRD-00042", p.Codigo)

	assert.Equal(t, "Camisa", got["nombre"])
	assert.EqualValues(t, 3, got["categoria"])
	assert.Equal(t, "activo", got["estado"])
	assert.Nil(t, got["codigo"])
}

func TestClient_FieldErrorsPassThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"nombre": ["Ya existe un producto con este nombre."], "precio": "inválido"}`)
	})

	_, err := c.CreateProducto(context.Background(), ProductoInput{Nombre: "Camisa"})
	ae, ok := IsAPIError(err)
	require.True(t, ok, "err = %v", err)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, []string{"Ya existe un producto con este nombre."}, ae.Fields["nombre"])
	assert.Equal(t, []string{"inválido"}, ae.Fields["precio"])
	assert.Equal(t, "nombre: Ya existe un producto con este nombre.; precio: inválido", ae.Error())
}

func TestClient_DetailError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail": "Token inválido"}`)
	})

	_, err := c.UserInfo(context.Background())
	ae, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Token inválido", ae.Error())
	assert.Empty(t, ae.Fields)
}

func TestClient_ListAcceptsPagedAndPlain(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/catalog/categorias/":
			_, _ = io.WriteString(w, `{"count": 1, "results": [{"id": 1, "nombre": "Camisas", "estado": "activo"}]}`)
		case "/api/catalog/productos/":
			_, _ = io.WriteString(w, `[{"id": 5, "nombre": "Polera"}, {"id": 6, "nombre": "Jean"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	cats, err := c.ListCategorias(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Camisas", cats[0].Nombre)

	products, err := c.ListProductos(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestClient_CreateImagenMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("producto"))
		assert.Equal(t, "true", r.FormValue("principal"))
		f, hdr, err := r.FormFile("imagen")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "frente.jpg", hdr.Filename)
		assert.Equal(t, "jpeg", string(data))
		_, _ = io.WriteString(w, `{"id": 9, "producto": 7, "imagen": "https://cdn.example.com/frente.jpg", "principal": true}`)
	})

	img, err := c.CreateImagen(context.Background(), ImagenInput{
		Producto: 7, Filename: "frente.jpg", ContentType: "image/jpeg", Data: []byte("jpeg"), Principal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/frente.jpg", img.Src())
}

func TestClient_CreateImagenURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://x.test/a.png", body["url"])
		assert.Equal(t, false, body["principal"])
		_, _ = io.WriteString(w, `{"id": 3, "producto": 7, "url": "https://x.test/a.png"}`)
	})

	img, err := c.CreateImagen(context.Background(), ImagenInput{Producto: 7, URL: "https://x.test/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/a.png", img.Src())
}

func TestClient_VarianteDecimals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "19.99", body["precio"])
		assert.Equal(t, "L", body["talla"])
		_, _ = io.WriteString(w, `{"id": 1, "producto": 7, "sku": "CAMISA-AZUL-L", "precio": "19.99", "costo": "8.00"}`)
	})

	v, err := c.CreateVariante(context.Background(), Variante{
		Producto: 7, SKU: "CAMISA-AZUL-L", Talla: "L", Color: "Azul", Precio: decimal.RequireFromString("19.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, "8.00", v.Costo.StringFixed(2))

	_, err = c.CreateVariante(context.Background(), Variante{SKU: "X"})
	assert.Error(t, err)
}

func TestClient_RetriesOnlyReads(t *testing.T) {
	var gets, posts int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if atomic.AddInt32(&gets, 1) < 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = io.WriteString(w, `{"id": 1, "nombre": "Camisa"}`)
			return
		}
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	p, err := c.GetProducto(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Camisa", p.Nombre)
	assert.EqualValues(t, 2, atomic.LoadInt32(&gets))

	_, err = c.CreateProducto(context.Background(), ProductoInput{Nombre: "Camisa"})
	assert.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&posts))
}

func TestClient_LoginAndOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ana@example.com", body["email"])
			_, _ = io.WriteString(w, `{"access": "a1", "refresh": "r1"}`)
		case "/api/sales/orders/":
			_, _ = io.WriteString(w, `{"order": {"id": 11, "codigo": "PED-11", "estado": "BORRADOR", "total": "44.98"}}`)
		case "/api/sales/orders/11/process_payment/":
			_, _ = io.WriteString(w, `{"success": true, "message": "Pago aprobado"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	tokens, err := c.Login(context.Background(), "ana@example.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "a1", tokens.Access)

	authed := c.WithToken(tokens.Access)
	order, err := authed.CreatePedido(context.Background(), PedidoInput{City: "Lima"})
	require.NoError(t, err)
	assert.Equal(t, PedidoBorrador, order.Estado)

	res, err := authed.ProcessPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestClient_ListAndDeleteByProducto(t *testing.T) {
	var deleted []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "9", r.URL.Query().Get("producto"))
			if r.URL.Path == "/api/catalog/imagenes/" {
				_, _ = io.WriteString(w, `[{"id": 3, "producto": 9, "imagen": "https://cdn.test/x.jpg"}]`)
				return
			}
			_, _ = io.WriteString(w, `{"count": 1, "results": [{"id": 4, "producto": 9, "sku": "X-M", "talla": "M", "precio": "10.50", "estado": "activo"}]}`)
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}).WithToken("tok")
	ctx := context.Background()

	imgs, err := c.ListImagenes(ctx, 9)
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, "https://cdn.test/x.jpg", imgs[0].Src())

	vars, err := c.ListVariantes(ctx, 9)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "10.50", vars[0].Precio.StringFixed(2))

	require.NoError(t, c.DeleteImagen(ctx, 3))
	require.NoError(t, c.DeleteVariante(ctx, 4))
	require.NoError(t, c.DeleteProducto(ctx, 9))
	assert.Equal(t, []string{
		"/api/catalog/imagenes/3/",
		"/api/catalog/variantes/4/",
		"/api/catalog/productos/9/",
	}, deleted)
}
