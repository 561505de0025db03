package billing

type tier struct {
	below int
	price int64
}

// Unit prices in minor currency units. The last tier is open-ended.
var tiers = []tier{
	{below: 100, price: 150},
	{below: 400, price: 120},
	{below: 800, price: 90},
}

const floorPrice int64 = 60

// PriceForNextUnit returns the price of the unit produced after counter
// billable units. It never increases as counter grows.
func PriceForNextUnit(counter int) int64 {
	if counter < 0 {
		counter = 0
	}
	for _, t := range tiers {
		if counter < t.below {
			return t.price
		}
	}
	return floorPrice
}

// PreflightCost sums the price of the next n units starting at counter.
func PreflightCost(counter, n int) int64 {
	var total int64
	for i := 0; i < n; i++ {
		total += PriceForNextUnit(counter + i)
	}
	return total
}
