package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/mmeshcher/car-rental/internal/model"
)

// StatsRepository описывает источники агрегатов по каналам оформления.
type StatsRepository interface {
	RentalCountsByCar(ctx context.Context, origin model.Origin) ([]model.TopCar, error)
	RecentTransactions(ctx context.Context, origin model.Origin, limit int) ([]model.Transaction, error)
}

var origins = []model.Origin{model.OriginWeb, model.OriginBot}

// Stats строит агрегаты по арендам из всех каналов.
type Stats struct {
	repo StatsRepository
}

// NewStats создаёт сервис агрегатов.
func NewStats(repo StatsRepository) *Stats {
	return &Stats{repo: repo}
}

// TopCars возвращает n автомобилей с наибольшим числом аренд во всех каналах.
func (s *Stats) TopCars(ctx context.Context, n int) ([]model.TopCar, error) {
	lists := make([][]model.TopCar, 0, len(origins))
	for _, o := range origins {
		counts, err := s.repo.RentalCountsByCar(ctx, o)
		if err != nil {
			return nil, fmt.Errorf("rental counts %s: %w", o, err)
		}
		lists = append(lists, counts)
	}
	return MergeTopCars(n, lists...), nil
}

// RecentTransactions возвращает n последних аренд во всех каналах.
func (s *Stats) RecentTransactions(ctx context.Context, n int) ([]model.Transaction, error) {
	lists := make([][]model.Transaction, 0, len(origins))
	for _, o := range origins {
		txs, err := s.repo.RecentTransactions(ctx, o, n)
		if err != nil {
			return nil, fmt.Errorf("recent transactions %s: %w", o, err)
		}
		lists = append(lists, txs)
	}
	return MergeRecent(n, lists...), nil
}

// MergeTopCars суммирует число аренд по автомобилю и возвращает n первых по убыванию.
// При равенстве выше автомобиль с меньшим идентификатором.
func MergeTopCars(n int, lists ...[]model.TopCar) []model.TopCar {
	byCar := make(map[int64]*model.TopCar)
	for _, list := range lists {
		for _, t := range list {
			if acc, ok := byCar[t.CarID]; ok {
				acc.RentalCount += t.RentalCount
				continue
			}
			c := t
			byCar[t.CarID] = &c
		}
	}

	res := make([]model.TopCar, 0, len(byCar))
	for _, t := range byCar {
		res = append(res, *t)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].RentalCount != res[j].RentalCount {
			return res[i].RentalCount > res[j].RentalCount
		}
		return res[i].CarID < res[j].CarID
	})

	if n >= 0 && len(res) > n {
		res = res[:n]
	}
	return res
}

// MergeRecent объединяет ленты аренд и возвращает n последних по дате и времени выдачи.
func MergeRecent(n int, lists ...[]model.Transaction) []model.Transaction {
	var res []model.Transaction
	for _, list := range lists {
		res = append(res, list...)
	}

	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if !a.PickupDate.Equal(b.PickupDate.Time) {
			return a.PickupDate.After(b.PickupDate.Time)
		}
		if a.PickupTime != b.PickupTime {
			return a.PickupTime > b.PickupTime
		}
		return a.RentalID > b.RentalID
	})

	if n >= 0 && len(res) > n {
		res = res[:n]
	}
	return res
}
