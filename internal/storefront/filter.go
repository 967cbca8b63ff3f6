package storefront

import (
	"strings"

	"github.com/shopspring/decimal"
)

// All 分类/性别筛选的"全部"取值
const All = "all"

// Product 店面展示用商品
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Gender      string          `json:"gender"`
	Price       decimal.Decimal `json:"price"`
	Colors      []string        `json:"colors,omitempty"`
	Sizes       []string        `json:"sizes,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Stock       int             `json:"stock"`
}

func (p Product) clone() Product {
	out := p
	out.Colors = append([]string(nil), p.Colors...)
	out.Sizes = append([]string(nil), p.Sizes...)
	return out
}

// Predicate 筛选条件，各条件之间为 AND
type Predicate struct {
	Search   string `form:"search" json:"search"`
	Category string `form:"category" json:"category"`
	Gender   string `form:"gender" json:"gender"`
}

// Match 单个商品是否命中
func (p Predicate) Match(prod Product) bool {
	if q := strings.ToLower(strings.TrimSpace(p.Search)); q != "" {
		if !strings.Contains(strings.ToLower(prod.Name), q) &&
			!strings.Contains(strings.ToLower(prod.Description), q) {
			return false
		}
	}
	if !matchOrAll(p.Category, prod.Category) {
		return false
	}
	return matchOrAll(p.Gender, prod.Gender)
}

func matchOrAll(want, got string) bool {
	return want == "" || want == All || want == got
}

// Group 同一分类下的商品
type Group struct {
	Category string    `json:"category"`
	Products []Product `json:"products"`
}

// Groups 分组结果
type Groups []Group

// Count 商品总数
func (g Groups) Count() int {
	n := 0
	for _, grp := range g {
		n += len(grp.Products)
	}
	return n
}

// FilterAndGroup 筛选后按分类分组
// 分组按分类首次出现的顺序排列，组内保持输入顺序
func FilterAndGroup(products []Product, p Predicate) Groups {
	groups := Groups{}
	index := make(map[string]int)
	for _, prod := range products {
		if !p.Match(prod) {
			continue
		}
		i, ok := index[prod.Category]
		if !ok {
			i = len(groups)
			index[prod.Category] = i
			groups = append(groups, Group{Category: prod.Category})
		}
		groups[i].Products = append(groups[i].Products, prod)
	}
	return groups
}

// Categories 去重后的分类列表，保持首次出现顺序
func Categories(products []Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, prod := range products {
		if !seen[prod.Category] {
			seen[prod.Category] = true
			out = append(out, prod.Category)
		}
	}
	return out
}
