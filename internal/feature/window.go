package feature

import "time"

// window is the bounded per-asset history. Appending past capacity evicts the
// oldest point; nothing outside this package reads it.
type window struct {
	capacity     int
	timestamps   []time.Time
	prices       []float64
	volumes      []float64
	priceChanges []float64
}

func newWindow(capacity int) *window {
	return &window{capacity: capacity}
}

func (w *window) append(ts time.Time, price, volume, priceChange float64) {
	w.timestamps = append(w.timestamps, ts)
	w.prices = append(w.prices, price)
	w.volumes = append(w.volumes, volume)
	w.priceChanges = append(w.priceChanges, priceChange)

	if len(w.timestamps) > w.capacity {
		w.timestamps = w.timestamps[1:]
		w.prices = w.prices[1:]
		w.volumes = w.volumes[1:]
		w.priceChanges = w.priceChanges[1:]
	}
}

func (w *window) size() int { return len(w.prices) }
