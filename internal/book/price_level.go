package book

// priceLevel is a FIFO queue of resting orders at one price: matched from the
// front, appended at the back. A level is registered in its half-book's price
// index only while non-empty.
type priceLevel struct {
	price uint32
	head  *levelNode
	tail  *levelNode
	size  int
}

// levelNode is one resting order linked into its price level. The node keeps a
// back-pointer to the level so cancel by id unlinks in O(1).
type levelNode struct {
	prev  *levelNode
	next  *levelNode
	level *priceLevel
	order Order
}

func (l *priceLevel) pushBack(n *levelNode) {
	n.prev, n.next = l.tail, nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	n.level = l
	l.size++
}

func (l *priceLevel) remove(n *levelNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next, n.level = nil, nil, nil
	l.size--
}

func (l *priceLevel) empty() bool { return l.size == 0 }

func (l *priceLevel) totalQty() uint32 {
	var total uint32
	for n := l.head; n != nil; n = n.next {
		total += n.order.Qty
	}
	return total
}
