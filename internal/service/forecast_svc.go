package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/repository"
)

// ForecastService 基于历史销售的需求预测
type ForecastService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	now         func() time.Time
}

func NewForecastService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository) *ForecastService {
	return &ForecastService{orderRepo: orderRepo, productRepo: productRepo, now: time.Now}
}

// Forecast 以日销量序列做线性回归，外推 HorizonDays 天
// 区间按日标准差的 1.96 倍乘以 sqrt(天数) 估算
func (s *ForecastService) Forecast(ctx context.Context, req *dto.ForecastRequest) (*dto.ForecastResponse, error) {
	history := req.HistoryDays
	if history <= 0 {
		history = 90
	}
	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = 30
	}
	top := req.TopProducts
	if top <= 0 {
		top = 5
	}

	today := truncateDay(s.now())
	since := today.AddDate(0, 0, -(history - 1))
	rows, err := s.orderRepo.SalesSince(ctx, since, req.CategoryID)
	if err != nil {
		return nil, err
	}

	daily := make([]float64, history)
	type agg struct {
		name string
		sold int
	}
	perProduct := map[int64]*agg{}
	total := 0
	for _, r := range rows {
		idx := int(truncateDay(r.CreatedAt.In(since.Location())).Sub(since).Hours() / 24)
		if idx < 0 || idx >= history {
			continue
		}
		daily[idx] += float64(r.Quantity)
		total += r.Quantity
		a, ok := perProduct[r.ProductID]
		if !ok {
			a = &agg{name: r.ProductName}
			perProduct[r.ProductID] = a
		}
		a.sold += r.Quantity
	}

	resp := &dto.ForecastResponse{
		CategoryID:  req.CategoryID,
		HistoryDays: history,
		HorizonDays: horizon,
		TotalUnits:  total,
		Restock:     []dto.ForecastProduct{},
	}

	mean, _ := stats.Mean(daily)
	sd, _ := stats.StandardDeviation(daily)
	slope, intercept := trendLine(daily)

	predicted := 0.0
	for i := 0; i < horizon; i++ {
		predicted += math.Max(0, intercept+slope*float64(history+i))
	}
	margin := 1.96 * sd * math.Sqrt(float64(horizon))

	resp.DailyMean = round2(mean)
	resp.DailyStdDev = round2(sd)
	resp.Trend = round2(slope)
	resp.PredictedUnits = round2(predicted)
	resp.LowerBound = round2(math.Max(0, predicted-margin))
	resp.UpperBound = round2(predicted + margin)

	if total == 0 {
		return resp, nil
	}

	ids := make([]int64, 0, len(perProduct))
	for id := range perProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := perProduct[ids[i]], perProduct[ids[j]]
		if a.sold != b.sold {
			return a.sold > b.sold
		}
		return ids[i] < ids[j]
	})
	if len(ids) > top {
		ids = ids[:top]
	}

	for _, id := range ids {
		a := perProduct[id]
		share := float64(a.sold) / float64(total)
		fp := dto.ForecastProduct{
			ProductID:      id,
			Name:           a.name,
			SoldUnits:      a.sold,
			PredictedUnits: round2(predicted * share),
		}
		if p, err := s.productRepo.GetByID(ctx, id); err != nil {
			return nil, err
		} else if p != nil {
			fp.Name = p.Name
			fp.CurrentStock = p.TotalStock()
		}
		if need := int(math.Ceil(fp.PredictedUnits)) - fp.CurrentStock; need > 0 {
			fp.Shortfall = need
		}
		resp.Restock = append(resp.Restock, fp)
	}
	return resp, nil
}

// trendLine 最小二乘拟合，返回斜率与截距
func trendLine(series []float64) (slope, intercept float64) {
	if len(series) < 2 {
		if len(series) == 1 {
			return 0, series[0]
		}
		return 0, 0
	}
	points := make(stats.Series, len(series))
	for i, y := range series {
		points[i] = stats.Coordinate{X: float64(i), Y: y}
	}
	fitted, err := stats.LinearRegression(points)
	if err != nil || len(fitted) < 2 {
		return 0, 0
	}
	last := len(fitted) - 1
	slope = (fitted[last].Y - fitted[0].Y) / (fitted[last].X - fitted[0].X)
	return slope, fitted[0].Y
}

func round2(v float64) float64 {
	r, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
