package player

type ItemStack struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// Cargo is a ship hold. A Capacity of zero holds nothing.
type Cargo struct {
	Capacity int         `json:"capacity"`
	Items    []ItemStack `json:"items"`
}

func (c *Cargo) Used() int {
	used := 0
	for _, it := range c.Items {
		used += it.Quantity
	}
	return used
}

func (c *Cargo) Free() int {
	return max(0, c.Capacity-c.Used())
}

// Add stores as much of qty as fits and returns the amount stored.
func (c *Cargo) Add(itemID string, qty int) int {
	n := min(qty, c.Free())
	if n <= 0 {
		return 0
	}
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			c.Items[i].Quantity += n
			return n
		}
	}
	c.Items = append(c.Items, ItemStack{ItemID: itemID, Quantity: n})
	return n
}

// Remove takes up to qty of itemID out of the hold and returns the amount
// removed.
func (c *Cargo) Remove(itemID string, qty int) int {
	for i := range c.Items {
		if c.Items[i].ItemID != itemID {
			continue
		}
		n := min(qty, c.Items[i].Quantity)
		c.Items[i].Quantity -= n
		if c.Items[i].Quantity == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
		return n
	}
	return 0
}

func (c *Cargo) Quantity(itemID string) int {
	for _, it := range c.Items {
		if it.ItemID == itemID {
			return it.Quantity
		}
	}
	return 0
}

func (c Cargo) Clone() Cargo {
	c.Items = append([]ItemStack(nil), c.Items...)
	return c
}
