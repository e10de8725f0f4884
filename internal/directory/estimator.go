package directory

import (
	"fmt"
	"math"
	"sync"

	"github.com/jaswdr/faker"

	"github.com/avvvet/deliverybuddy/internal/phone"
	"github.com/avvvet/deliverybuddy/internal/textnorm"
)

const (
	largeCityExtraMinutes = 10
	largeCityPriceFactor  = 1.2
	maxPhoneAttempts      = 20
)

// Estimator produces the synthetic annotations attached to every candidate.
type Estimator interface {
	Rating(name, foodType string) float64
	DeliveryTime(foodType, city string) string
	PriceRange(foodType, city string) string
	Phone(areaCode string) string
}

// RandomEstimator draws plausible values with faker.
type RandomEstimator struct {
	mu   sync.Mutex
	fake faker.Faker
}

func NewRandomEstimator() *RandomEstimator {
	return &RandomEstimator{fake: faker.New()}
}

// Rating stays within 4.0-4.8. Names matching a known brand for the category rate higher.
func (e *RandomEstimator) Rating(name, foodType string) float64 {
	low := 40
	if brandScore(textnorm.Fold(name), foodType) > 0 {
		low = 44
	}

	e.mu.Lock()
	tenths := e.fake.IntBetween(low, 48)
	e.mu.Unlock()

	return float64(tenths) / 10
}

func (e *RandomEstimator) DeliveryTime(foodType, city string) string {
	window, ok := deliveryMinutes[foodType]
	if !ok {
		window = defaultDeliveryMinutes
	}

	e.mu.Lock()
	jitter := e.fake.IntBetween(0, 5)
	e.mu.Unlock()

	low, high := window.min+jitter, window.max+jitter
	if phone.IsLargeCity(city) {
		low += largeCityExtraMinutes
		high += largeCityExtraMinutes
	}
	return fmt.Sprintf("%d-%d min", low, high)
}

func (e *RandomEstimator) PriceRange(foodType, city string) string {
	return priceRange(foodType, city)
}

// Phone generates a syntactically valid mobile number for areaCode. It is never
// verified against a real subscriber.
func (e *RandomEstimator) Phone(areaCode string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := 0; i < maxPhoneAttempts; i++ {
		candidate := phone.CountryCode + areaCode + "9" + e.fake.Numerify("########")
		if phone.IsValidMobile(candidate, areaCode) {
			return candidate
		}
	}
	return phone.CountryCode + areaCode + "991234567"
}

func priceRange(foodType, city string) string {
	prices, ok := priceReais[foodType]
	if !ok {
		prices = defaultPriceReais
	}
	low, high := float64(prices.min), float64(prices.max)
	if phone.IsLargeCity(city) {
		low *= largeCityPriceFactor
		high *= largeCityPriceFactor
	}
	return fmt.Sprintf("R$ %d-%d", int(math.Round(low)), int(math.Round(high)))
}
