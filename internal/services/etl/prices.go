package etl

import "github.com/bobmcallan/stockdash/internal/models"

// MovingAverageWindow is the close-price window of PriceBar.MovingAverage20.
const MovingAverageWindow = 20

// ApplyMovingAverage sets MovingAverage20 on bars, which must be oldest
// first. Bars before the first full window are left nil.
func ApplyMovingAverage(bars []models.PriceBar) {
	var sum float64
	for i := range bars {
		sum += bars[i].Close
		if i >= MovingAverageWindow {
			sum -= bars[i-MovingAverageWindow].Close
		}
		if i >= MovingAverageWindow-1 {
			avg := sum / MovingAverageWindow
			bars[i].MovingAverage20 = &avg
		} else {
			bars[i].MovingAverage20 = nil
		}
	}
}
