package wizard

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// newID 草稿内图片/变体的本地 ID
var newID = uuid.NewString

// Action 向导动作
type Action interface {
	apply(s State) (State, error)
}

// Reduce 对状态应用一个动作
// 动作作用在副本上，失败时原状态原样返回
func Reduce(s State, a Action) (State, error) {
	next, err := a.apply(s.clone())
	if err != nil {
		return s, err
	}
	next.Error = ""
	return next, nil
}

// ==================== 基础信息 ====================

// SetBasicInfo 更新基础信息
type SetBasicInfo struct {
	Code        string
	Name        string
	CategoryID  int64
	Description string
	Status      Status
}

func (a SetBasicInfo) apply(s State) (State, error) {
	status := a.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return s, invalid("status", "status must be active or inactive")
	}
	if a.CategoryID < 0 {
		return s, invalid("category_id", "invalid category")
	}
	s.Draft.Code = strings.TrimSpace(a.Code)
	s.Draft.Name = a.Name
	s.Draft.CategoryID = a.CategoryID
	s.Draft.Description = a.Description
	s.Draft.Status = status
	return s, nil
}

// ==================== 阶段切换 ====================

// Next 从基础信息进入图片阶段，需名称与分类齐全
type Next struct{}

func (Next) apply(s State) (State, error) {
	switch s.Stage {
	case StageBasicInfo:
		if !CompletenessOf(s.Draft).Basic {
			return s, invalid("basic_info", "name and category are required")
		}
		s.Stage = StageImages
	case StageImages:
		s.Stage = StageVariants
	default:
		return s, invalid("stage", "no next stage from "+string(s.Stage))
	}
	return s, nil
}

// GoTo 在三个编辑阶段之间自由切换
type GoTo struct {
	Stage Stage
}

func (a GoTo) apply(s State) (State, error) {
	if !a.Stage.Editable() {
		return s, invalid("stage", "unknown stage "+string(a.Stage))
	}
	if !s.Stage.Editable() {
		return s, invalid("stage", "submission in progress")
	}
	s.Stage = a.Stage
	return s, nil
}

// ==================== 图片 ====================

// AddImage 添加图片，File 与 URL 必须且只能提供一个
type AddImage struct {
	File      *ImageFile
	URL       string
	Principal bool
}

func (a AddImage) apply(s State) (State, error) {
	url := strings.TrimSpace(a.URL)
	hasFile := a.File != nil && len(a.File.Data) > 0
	switch {
	case !hasFile && url == "":
		return s, invalid("image", "an image file or URL is required")
	case hasFile && url != "":
		return s, invalid("image", "provide either an image file or a URL, not both")
	}

	img := DraftImage{ID: newID(), URL: url, IsPrincipal: a.Principal}
	if hasFile {
		f := *a.File
		img.File = &f
	}
	if img.IsPrincipal {
		clearPrincipal(s.Draft.Images)
	}
	s.Draft.Images = append(s.Draft.Images, img)
	return s, nil
}

// RemoveImage 删除草稿图片
type RemoveImage struct {
	ID string
}

func (a RemoveImage) apply(s State) (State, error) {
	kept := s.Draft.Images[:0]
	for _, img := range s.Draft.Images {
		if img.ID != a.ID {
			kept = append(kept, img)
		}
	}
	s.Draft.Images = kept
	return s, nil
}

// SetPrincipalImage 设为主图，其余图片同时取消主图
type SetPrincipalImage struct {
	ID string
}

func (a SetPrincipalImage) apply(s State) (State, error) {
	idx := -1
	for i := range s.Draft.Images {
		if s.Draft.Images[i].ID == a.ID {
			idx = i
		}
	}
	if idx < 0 {
		return s, invalid("image", "image not found")
	}
	clearPrincipal(s.Draft.Images)
	s.Draft.Images[idx].IsPrincipal = true
	return s, nil
}

func clearPrincipal(images []DraftImage) {
	for i := range images {
		images[i].IsPrincipal = false
	}
}

// ==================== 变体 ====================

// ToggleSize 勾选/取消尺码
type ToggleSize struct {
	Size Size
}

func (a ToggleSize) apply(s State) (State, error) {
	if _, ok := ParseSize(string(a.Size)); !ok {
		return s, invalid("sizes", "unknown size "+string(a.Size))
	}
	selected := !s.Form.HasSize(a.Size)
	sizes := make([]Size, 0, len(AllSizes))
	for _, size := range AllSizes {
		if size == a.Size {
			if selected {
				sizes = append(sizes, size)
			}
			continue
		}
		if s.Form.HasSize(size) {
			sizes = append(sizes, size)
		}
	}
	s.Form.Sizes = sizes
	return s, nil
}

// SetVariantForm 更新变体表单中除尺码外的字段
type SetVariantForm struct {
	Color   string
	Price   string
	Cost    string
	Stock   string
	Barcode string
	Status  Status
}

func (a SetVariantForm) apply(s State) (State, error) {
	status := a.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return s, invalid("status", "status must be active or inactive")
	}
	s.Form.Color = a.Color
	s.Form.Price = a.Price
	s.Form.Cost = a.Cost
	s.Form.Stock = a.Stock
	s.Form.Barcode = a.Barcode
	s.Form.Status = status
	return s, nil
}

// AddVariants 按已勾选尺码批量生成变体
// 校验顺序：尺码、颜色、价格，遇到第一个错误即返回
type AddVariants struct{}

func (AddVariants) apply(s State) (State, error) {
	f := s.Form
	if len(f.Sizes) == 0 {
		return s, invalid("sizes", "select at least one size")
	}
	color := strings.TrimSpace(f.Color)
	if color == "" {
		return s, invalid("color", "color is required")
	}
	price, err := parseMoney(f.Price)
	if err != nil || !price.IsPositive() {
		return s, invalid("price", "price must be greater than zero")
	}
	cost := decimal.Zero
	if strings.TrimSpace(f.Cost) != "" {
		cost, err = parseMoney(f.Cost)
		if err != nil || cost.IsNegative() {
			return s, invalid("cost", "cost must be zero or greater")
		}
	}
	stock, err := parseStock(f.Stock)
	if err != nil || stock < 0 {
		return s, invalid("stock", "stock must be a whole number, zero or greater")
	}

	for _, size := range f.Sizes {
		s.Draft.Variants = append(s.Draft.Variants, DraftVariant{
			ID:            newID(),
			SKU:           SKU(s.Draft.Name, color, size),
			Size:          size,
			Color:         color,
			Price:         price,
			Cost:          cost,
			StockQuantity: stock,
			Barcode:       strings.TrimSpace(f.Barcode),
			Status:        f.Status,
		})
	}
	s.Form = DefaultVariantForm()
	return s, nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(raw))
}

// parseStock 十进制整数，前导零不视为八进制；空值为 0
func parseStock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// RemoveVariant 删除草稿变体
type RemoveVariant struct {
	ID string
}

func (a RemoveVariant) apply(s State) (State, error) {
	kept := s.Draft.Variants[:0]
	for _, v := range s.Draft.Variants {
		if v.ID != a.ID {
			kept = append(kept, v)
		}
	}
	s.Draft.Variants = kept
	return s, nil
}

// ==================== 提交 ====================

// Reset 丢弃草稿，回到新建模式初始状态
type Reset struct{}

func (Reset) apply(State) (State, error) {
	return NewState(), nil
}

// beginSubmit 进入提交中
type beginSubmit struct{}

func (beginSubmit) apply(s State) (State, error) {
	if !s.CanSubmit() {
		c := s.Completeness()
		switch {
		case !c.Basic:
			return s, invalid("basic_info", "name and category are required")
		case s.Mode == ModeCreate && !c.Images:
			return s, invalid("images", "add at least one image")
		case s.Mode == ModeCreate && !c.Variants:
			return s, invalid("variants", "add at least one variant")
		default:
			return s, invalid("stage", "submit is only available from the variants stage")
		}
	}
	s.Stage = StageSubmitting
	return s, nil
}
