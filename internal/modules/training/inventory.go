package training

// Inventory tracks the open long positions of one episode as a FIFO queue of
// purchase prices. Multiple sequential BUYs may stack; each SELL closes the
// earliest-open position. Lifecycle is per episode: empty at start, reset at
// the end.
type Inventory struct {
	purchases []float64
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{}
}

// Buy records an open position at the given price.
func (inv *Inventory) Buy(price float64) {
	inv.purchases = append(inv.purchases, price)
}

// Sell closes the earliest-open position and returns its purchase price.
// With no open position it returns (0, false); the trainer treats that SELL
// as a no-op with zero reward.
func (inv *Inventory) Sell() (float64, bool) {
	if len(inv.purchases) == 0 {
		return 0, false
	}
	price := inv.purchases[0]
	inv.purchases = inv.purchases[1:]
	return price, true
}

// Open returns the number of open positions.
func (inv *Inventory) Open() int {
	return len(inv.purchases)
}

// Value returns the total cost basis of the open positions.
func (inv *Inventory) Value() float64 {
	var total float64
	for _, p := range inv.purchases {
		total += p
	}
	return total
}

// Reset clears all open positions.
func (inv *Inventory) Reset() {
	inv.purchases = inv.purchases[:0]
}
