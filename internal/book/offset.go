package book

// QueueOffset summarizes where one own order sits within its price level
// immediately before a new snapshot is applied. It is computed fresh per
// reconciliation cycle and never persisted.
type QueueOffset struct {
	Side      Side
	Price     uint32
	QtyAhead  uint32
	OwnQty    uint32
	QtyBehind uint32
	OrderID   uint64
	CreatedAt uint64
}

// LevelTotal is the aggregate quantity of the whole level, own order included.
func (o QueueOffset) LevelTotal() uint32 {
	return o.QtyAhead + o.OwnQty + o.QtyBehind
}
