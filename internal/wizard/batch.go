package wizard

import "context"

// ItemResult 单项结果
type ItemResult[T any] struct {
	Item T
	Err  error
}

// OK 是否成功
func (r ItemResult[T]) OK() bool { return r.Err == nil }

// BatchResult 逐项执行的结果，失败项不影响后续项
type BatchResult[T any] struct {
	Items []ItemResult[T]
}

// Succeeded 成功数
func (b BatchResult[T]) Succeeded() int {
	n := 0
	for _, r := range b.Items {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed 失败项
func (b BatchResult[T]) Failed() []ItemResult[T] {
	var out []ItemResult[T]
	for _, r := range b.Items {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// RunBatch 顺序执行，逐项记录结果
func RunBatch[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) error) BatchResult[T] {
	res := BatchResult[T]{Items: make([]ItemResult[T], 0, len(items))}
	for _, item := range items {
		res.Items = append(res.Items, ItemResult[T]{Item: item, Err: fn(ctx, item)})
	}
	return res
}
