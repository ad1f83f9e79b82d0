package player

// StationStorage is a player's item locker at one of their colonies.
type StationStorage struct {
	ID      string      `json:"id"`
	HexKey  string      `json:"hexKey"`
	OwnerID string      `json:"ownerId"`
	Items   []ItemStack `json:"items"`
}

func StationStorageID(hexKey, ownerID string) string {
	return hexKey + ":" + ownerID
}

func NewStationStorage(hexKey, ownerID string) StationStorage {
	return StationStorage{
		ID:      StationStorageID(hexKey, ownerID),
		HexKey:  hexKey,
		OwnerID: ownerID,
	}
}

// Deposit moves every stack from cargo into the storage and returns the
// number of units moved.
func (s *StationStorage) Deposit(cargo *Cargo) int {
	moved := 0
	for _, it := range cargo.Items {
		found := false
		for i := range s.Items {
			if s.Items[i].ItemID == it.ItemID {
				s.Items[i].Quantity += it.Quantity
				found = true
				break
			}
		}
		if !found {
			s.Items = append(s.Items, it)
		}
		moved += it.Quantity
	}
	cargo.Items = nil
	return moved
}

func (s StationStorage) Clone() StationStorage {
	s.Items = append([]ItemStack(nil), s.Items...)
	return s
}
