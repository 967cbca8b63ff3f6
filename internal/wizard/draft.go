package wizard

import (
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ==================== 枚举 ====================

// Status 商品/变体状态
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid 是否为合法状态
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Size 尺码
type Size string

const (
	SizeS  Size = "S"
	SizeM  Size = "M"
	SizeL  Size = "L"
	SizeXL Size = "XL"
)

// AllSizes 尺码的固定顺序，批量生成变体时按此顺序追加
var AllSizes = []Size{SizeS, SizeM, SizeL, SizeXL}

// ParseSize 解析尺码
func ParseSize(s string) (Size, bool) {
	for _, size := range AllSizes {
		if string(size) == s {
			return size, true
		}
	}
	return "", false
}

// Stage 向导阶段
type Stage string

const (
	StageBasicInfo  Stage = "basic_info"
	StageImages     Stage = "images"
	StageVariants   Stage = "variants"
	StageSubmitting Stage = "submitting"
	StageSuccess    Stage = "success"
	StageFailed     Stage = "failed"
)

// Editable 是否为可自由切换的编辑阶段
func (s Stage) Editable() bool {
	return s == StageBasicInfo || s == StageImages || s == StageVariants
}

// Mode 向导模式
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// ==================== 草稿 ====================

// DescriptionSoftLimit 描述字数软上限，仅用于展示剩余字数
const DescriptionSoftLimit = 500

// ImageFile 待上传的图片文件
type ImageFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// DraftImage 草稿图片，File 与 URL 二选一
type DraftImage struct {
	ID          string     `json:"id"`
	File        *ImageFile `json:"file,omitempty"`
	URL         string     `json:"url,omitempty"`
	IsPrincipal bool       `json:"is_principal"`
}

// DraftVariant 草稿变体
type DraftVariant struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Size          Size            `json:"size"`
	Color         string          `json:"color"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	StockQuantity int             `json:"stock_quantity"`
	Barcode       string          `json:"barcode,omitempty"`
	Status        Status          `json:"status"`
}

// Draft 商品草稿，提交前只存在于内存
type Draft struct {
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	CategoryID  int64          `json:"category_id"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	Images      []DraftImage   `json:"images"`
	Variants    []DraftVariant `json:"variants"`
}

// NewDraft 空草稿
func NewDraft() Draft {
	return Draft{
		Status:   StatusActive,
		Images:   []DraftImage{},
		Variants: []DraftVariant{},
	}
}

// DescriptionRemaining 描述剩余可输入字数，超出时为负数
func (d Draft) DescriptionRemaining() int {
	return DescriptionSoftLimit - utf8.RuneCountInString(d.Description)
}

// BasicFields 提交商品主体时使用的字段
func (d Draft) BasicFields() BasicFields {
	return BasicFields{
		Code:        d.Code,
		Name:        d.Name,
		CategoryID:  d.CategoryID,
		Description: d.Description,
		Status:      d.Status,
	}
}

// PrincipalImage 返回主图，没有时返回 nil
func (d Draft) PrincipalImage() *DraftImage {
	for i := range d.Images {
		if d.Images[i].IsPrincipal {
			return &d.Images[i]
		}
	}
	return nil
}

func (d Draft) clone() Draft {
	out := d
	out.Images = make([]DraftImage, len(d.Images))
	copy(out.Images, d.Images)
	out.Variants = make([]DraftVariant, len(d.Variants))
	copy(out.Variants, d.Variants)
	return out
}

// ==================== 变体表单 ====================

// VariantForm 变体录入表单（原始字符串，添加时再做数值转换）
type VariantForm struct {
	Sizes   []Size `json:"sizes"`
	Color   string `json:"color"`
	Price   string `json:"price"`
	Cost    string `json:"cost"`
	Stock   string `json:"stock"`
	Barcode string `json:"barcode"`
	Status  Status `json:"status"`
}

// DefaultVariantForm 表单默认值
func DefaultVariantForm() VariantForm {
	return VariantForm{
		Sizes:  []Size{},
		Stock:  "0",
		Status: StatusActive,
	}
}

// HasSize 是否已勾选尺码
func (f VariantForm) HasSize(size Size) bool {
	for _, s := range f.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

func (f VariantForm) clone() VariantForm {
	out := f
	out.Sizes = make([]Size, len(f.Sizes))
	copy(out.Sizes, f.Sizes)
	return out
}

// ==================== 向导状态 ====================

// State 向导完整状态
type State struct {
	Mode      Mode        `json:"mode"`
	ProductID int64       `json:"product_id,omitempty"`
	Stage     Stage       `json:"stage"`
	Draft     Draft       `json:"draft"`
	Form      VariantForm `json:"variant_form"`
	Error     string      `json:"error,omitempty"`
}

// NewState 新建模式的初始状态
func NewState() State {
	return State{
		Mode:  ModeCreate,
		Stage: StageBasicInfo,
		Draft: NewDraft(),
		Form:  DefaultVariantForm(),
	}
}

// EditState 以已持久化的商品预填草稿
func EditState(p *Product) State {
	st := NewState()
	st.Mode = ModeEdit
	st.ProductID = p.ID
	st.Draft.Code = p.Code
	st.Draft.Name = p.Name
	st.Draft.CategoryID = p.CategoryID
	st.Draft.Description = p.Description
	if p.Status.Valid() {
		st.Draft.Status = p.Status
	}
	return st.WithStored(p.Images, p.Variants)
}

// WithStored 用数据源中的图片与变体替换编辑草稿里的对应部分，基础字段保持不变
func (s State) WithStored(images []Image, variants []Variant) State {
	st := s.clone()
	st.Draft.Images = make([]DraftImage, 0, len(images))
	for _, img := range images {
		st.Draft.Images = append(st.Draft.Images, DraftImage{
			ID:          img.Key(),
			URL:         img.URL,
			IsPrincipal: img.IsPrincipal,
		})
	}
	st.Draft.Variants = make([]DraftVariant, 0, len(variants))
	for _, v := range variants {
		st.Draft.Variants = append(st.Draft.Variants, DraftVariant{
			ID:            v.Key(),
			SKU:           v.SKU,
			Size:          v.Size,
			Color:         v.Color,
			Price:         v.Price,
			Cost:          v.Cost,
			StockQuantity: v.Stock,
			Barcode:       v.Barcode,
			Status:        v.Status,
		})
	}
	return st
}

// Completeness 当前草稿完整度
func (s State) Completeness() Completeness {
	return CompletenessOf(s.Draft)
}

// CanSubmit 是否允许提交
// 新建模式要求处于变体阶段且三项齐全，编辑模式只要求基础信息齐全
func (s State) CanSubmit() bool {
	c := s.Completeness()
	if s.Mode == ModeEdit {
		return s.Stage.Editable() && c.Basic
	}
	return s.Stage == StageVariants && c.CanSubmit()
}

func (s State) clone() State {
	out := s
	out.Draft = s.Draft.clone()
	out.Form = s.Form.clone()
	return out
}
