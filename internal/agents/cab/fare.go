package cab

import "fmt"

type Rates struct {
	BaseFare     float64
	PerKilometer float64
	PerMinute    float64
}

func DefaultRates() Rates {
	return Rates{BaseFare: 2.50, PerKilometer: 2, PerMinute: 0.5}
}

func (r Rates) Fare(km, minutes float64) float64 {
	return r.BaseFare + r.PerKilometer*km + r.PerMinute*minutes
}

func fareText(fare float64) string {
	return fmt.Sprintf("The estimated new fare for the updated trip is $%.2f.", fare)
}
