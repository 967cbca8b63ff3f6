package wizard

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ==================== 提交结果 ====================

// Result 一次提交的结果
type Result struct {
	Outcome  Stage                     `json:"outcome"`
	Product  *Product                  `json:"product,omitempty"`
	Images   BatchResult[DraftImage]   `json:"-"`
	Variants BatchResult[DraftVariant] `json:"-"`
}

// Partial 商品已创建，但有图片或变体失败
func (r *Result) Partial() bool {
	return len(r.Images.Failed()) > 0 || len(r.Variants.Failed()) > 0
}

// ==================== Submitter ====================

// Submitter 按固定顺序把草稿落库：商品 -> 图片 -> 变体 -> 回查
type Submitter struct {
	products ProductStore
	images   ImageStore
	variants VariantStore
}

// NewSubmitter 创建提交器
func NewSubmitter(products ProductStore, images ImageStore, variants VariantStore) *Submitter {
	return &Submitter{products: products, images: images, variants: variants}
}

// Submit 提交草稿
// 返回的 State 为提交后的向导状态；商品主体创建失败时草稿保留并带上错误信息
func (s *Submitter) Submit(ctx context.Context, sess Session, st State) (State, *Result, error) {
	submitting, err := Reduce(st, beginSubmit{})
	if err != nil {
		return st, nil, err
	}

	log := zap.L().With(zap.String("mode", string(st.Mode)))
	if sess != nil {
		if u := sess.CurrentUser(); u != nil {
			log = log.With(zap.Int64("user_id", u.ID), zap.String("username", u.Username))
		}
	}

	if submitting.Mode == ModeEdit {
		return s.submitEdit(ctx, log, submitting, st)
	}
	return s.submitCreate(ctx, log, submitting, st)
}

func (s *Submitter) submitCreate(ctx context.Context, log *zap.Logger, submitting, before State) (State, *Result, error) {
	d := submitting.Draft

	// 1. 商品主体
	created, err := s.products.Create(ctx, d.BasicFields())
	if err != nil {
		te := asTransportError("create product", err)
		log.Warn("create product failed", zap.String("name", d.Name), zap.Error(te))
		return failed(before, te), &Result{Outcome: StageFailed}, te
	}
	log = log.With(zap.Int64("product_id", created.ID))

	res := &Result{}

	// 2. 图片，逐张上传，失败不中断
	res.Images = RunBatch(ctx, d.Images, func(ctx context.Context, img DraftImage) error {
		if _, err := s.images.Create(ctx, created.ID, img); err != nil {
			te := asTransportError("create image", err)
			log.Warn("upload image failed", zap.String("image", img.ID), zap.Error(te))
			return te
		}
		return nil
	})

	// 3. 变体，逐个创建，失败不中断
	res.Variants = RunBatch(ctx, d.Variants, func(ctx context.Context, v DraftVariant) error {
		_, err := s.variants.Create(ctx, VariantInput{
			ProductID: created.ID,
			SKU:       v.SKU,
			Size:      v.Size,
			Color:     v.Color,
			Price:     v.Price,
			Cost:      v.Cost,
			Stock:     v.StockQuantity,
			Barcode:   v.Barcode,
			Status:    v.Status,
		})
		if err != nil {
			te := asTransportError("create variant", err)
			log.Warn("create variant failed", zap.String("sku", v.SKU), zap.Error(te))
			return te
		}
		return nil
	})

	// 4. 回查完整商品
	full, err := s.products.GetByID(ctx, created.ID)
	if err != nil || full == nil {
		if err == nil {
			err = errors.New("product not found")
		}
		ie := &InconsistentStateError{ProductID: created.ID, Err: err}
		log.Error("reload product failed", zap.Error(err))
		res.Outcome = StageFailed
		next := NewState()
		next.Error = ie.Error()
		return next, res, ie
	}

	res.Outcome = StageSuccess
	res.Product = full
	log.Info("product submitted",
		zap.Int("images_ok", res.Images.Succeeded()),
		zap.Int("images_failed", len(res.Images.Failed())),
		zap.Int("variants_ok", res.Variants.Succeeded()),
		zap.Int("variants_failed", len(res.Variants.Failed())))
	return NewState(), res, nil
}

func (s *Submitter) submitEdit(ctx context.Context, log *zap.Logger, submitting, before State) (State, *Result, error) {
	id := submitting.ProductID
	if _, err := s.products.Update(ctx, id, submitting.Draft.BasicFields()); err != nil {
		te := asTransportError("update product", err)
		log.Warn("update product failed", zap.Int64("product_id", id), zap.Error(te))
		return failed(before, te), &Result{Outcome: StageFailed}, te
	}

	full, err := s.products.GetByID(ctx, id)
	if err != nil || full == nil {
		if err == nil {
			err = errors.New("product not found")
		}
		ie := &InconsistentStateError{ProductID: id, Err: err}
		log.Error("reload product failed", zap.Int64("product_id", id), zap.Error(err))
		next := NewState()
		next.Error = ie.Error()
		return next, &Result{Outcome: StageFailed}, ie
	}

	log.Info("product updated", zap.Int64("product_id", id))
	return NewState(), &Result{Outcome: StageSuccess, Product: full}, nil
}

// failed 回到提交前的阶段，草稿保留
func failed(before State, err error) State {
	out := before.clone()
	out.Error = err.Error()
	return out
}
