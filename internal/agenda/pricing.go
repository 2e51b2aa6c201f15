package agenda

// TotalAmount computes the display total for one appointment: the sum
// of every service's catalog base price plus the sum of transport leg
// prices. The legacy transportSnapshot total is honored only when no
// legs exist; once legs are present the snapshot is ignored entirely to
// avoid double counting.
func TotalAmount(it *Item) float64 {
	var total float64
	for _, svc := range it.Services {
		total += svc.BasePrice
	}
	if len(it.TransportLegs) > 0 {
		for _, leg := range it.TransportLegs {
			total += leg.Price
		}
	} else if it.TransportSnapshot != nil {
		total += it.TransportSnapshot.TotalAmount
	}
	return total
}
