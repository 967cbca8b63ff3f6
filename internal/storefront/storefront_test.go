package storefront

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Name: "Camisa Oxford", Description: "Algodón", Category: "Camisas", Gender: "hombre", Price: decimal.NewFromInt(25)},
		{ID: 2, Name: "Vestido Floral", Description: "Ideal para verano", Category: "Vestidos", Gender: "mujer", Price: decimal.NewFromInt(40)},
		{ID: 3, Name: "Camisa Lino", Description: "Fresca", Category: "Camisas", Gender: "mujer", Price: decimal.NewFromInt(30)},
		{ID: 4, Name: "Polera Básica", Description: "Camiseta de VERANO", Category: "Poleras", Gender: "unisex", Price: decimal.NewFromInt(12)},
	}
}

// ==================== FilterAndGroup ====================

func TestFilterAndGroup_AllReturnsEverything(t *testing.T) {
	products := sampleProducts()

	groups := FilterAndGroup(products, Predicate{Category: All, Gender: All})

	assert.Equal(t, len(products), groups.Count())
	require.Len(t, groups, 3)
	assert.Equal(t, "Camisas", groups[0].Category)
	assert.Equal(t, []int64{1, 3}, ids(groups[0].Products))
	assert.Equal(t, "Vestidos", groups[1].Category)
	assert.Equal(t, "Poleras", groups[2].Category)
}

func TestFilterAndGroup_Predicates(t *testing.T) {
	tests := []struct {
		name string
		p    Predicate
		want []int64
	}{
		{"search name case-insensitive", Predicate{Search: "CAMISA", Category: All, Gender: All}, []int64{1, 3}},
		{"search description", Predicate{Search: "verano", Category: All, Gender: All}, []int64{2, 4}},
		{"category exact", Predicate{Category: "Camisas", Gender: All}, []int64{1, 3}},
		{"gender exact", Predicate{Category: All, Gender: "mujer"}, []int64{2, 3}},
		{"all predicates anded", Predicate{Search: "camisa", Category: "Camisas", Gender: "mujer"}, []int64{3}},
		{"no match", Predicate{Search: "zapato", Category: All, Gender: All}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			for _, g := range FilterAndGroup(sampleProducts(), tt.p) {
				got = append(got, ids(g.Products)...)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"Camisas", "Vestidos", "Poleras"}, Categories(sampleProducts()))
}

func ids(products []Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

// ==================== Cart ====================

func TestCart_AddNeverMerges(t *testing.T) {
	c := NewCart()
	p := Product{ID: 1, Name: "Camisa", Price: decimal.RequireFromString("19.90")}

	a, err := c.Add(p, Selection{})
	require.NoError(t, err)
	b, err := c.Add(p, Selection{Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.NotEqual(t, a.CartID, b.CartID)
	assert.NotEqual(t, "1", a.CartID)
	assert.Equal(t, 1, a.Quantity)
	assert.True(t, c.Total().Equal(decimal.RequireFromString("59.70")))
}

func TestCart_AddRemoveRestoresState(t *testing.T) {
	c := NewCart()
	p := Product{ID: 1, Name: "Camisa", Price: decimal.NewFromInt(10)}
	_, _ = c.Add(p, Selection{})
	before := c.Items()

	item, err := c.Add(p, Selection{})
	require.NoError(t, err)
	assert.True(t, c.Remove(item.CartID))

	assert.Equal(t, before, c.Items())
	assert.False(t, c.Remove("does-not-exist"))
	assert.Equal(t, before, c.Items())
}

func TestCart_SelectionValidation(t *testing.T) {
	c := NewCart()
	p := Product{ID: 1, Price: decimal.NewFromInt(10), Colors: []string{"Rojo"}, Sizes: []string{"S", "M"}}

	_, err := c.Add(p, Selection{Size: "S"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "color", ve.Field)

	_, err = c.Add(p, Selection{Color: "Rojo"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "size", ve.Field)

	_, err = c.Add(p, Selection{Color: "Azul", Size: "S"})
	assert.Error(t, err)

	_, err = c.Add(p, Selection{Color: "Rojo", Size: "M", Quantity: -1})
	assert.Error(t, err)

	assert.Zero(t, c.Len())
}

func TestCart_SnapshotIsIndependent(t *testing.T) {
	c := NewCart()
	p := Product{ID: 1, Price: decimal.NewFromInt(10), Colors: []string{"Rojo"}}
	_, err := c.Add(p, Selection{Color: "Rojo"})
	require.NoError(t, err)

	p.Colors[0] = "Azul"
	p.Price = decimal.NewFromInt(99)

	assert.Equal(t, "Rojo", c.Items()[0].Product.Colors[0])
	assert.True(t, c.Total().Equal(decimal.NewFromInt(10)))
}

func TestCart_EmptyTotalAndClear(t *testing.T) {
	c := NewCart()
	assert.True(t, c.Total().IsZero())

	_, _ = c.Add(Product{ID: 1, Price: decimal.NewFromInt(5)}, Selection{})
	c.Clear()
	assert.Zero(t, c.Len())
	assert.True(t, c.Total().IsZero())
}
