// Package marketdata loads recorded exchange data for replay. Snapshots come
// as depth rows grouped by exchange epoch, taker orders as one row each. Both
// formats are plain CSV as exported by the capture pipeline; a JSON-lines
// codec covers snapshot archives.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"tickbook.com/internal/book"
	"tickbook.com/internal/snap"
)

// SnapReader streams depth snapshots from CSV rows of the form
//
//	exch_epoch,side,price,qty
//
// Rows sharing an exch_epoch form one snapshot and must be contiguous.
type SnapReader struct {
	r *csv.Reader

	// pending holds the first row of the next snapshot once the epoch flips.
	pending []string
	line    int
}

func NewSnapReader(r io.Reader) *SnapReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true
	return &SnapReader{r: cr}
}

// Next reads the next full snapshot. Returns io.EOF once the stream is
// exhausted.
func (sr *SnapReader) Next() (snap.Snap, error) {
	var s snap.Snap
	for {
		rec, err := sr.readRecord()
		if err == io.EOF {
			if len(s.Levels) == 0 {
				return snap.Snap{}, io.EOF
			}
			return s, nil
		}
		if err != nil {
			return snap.Snap{}, err
		}

		epoch, lvl, err := parseSnapRow(rec)
		if err != nil {
			return snap.Snap{}, fmt.Errorf("snapshot row %d: %w", sr.line, err)
		}
		if len(s.Levels) == 0 {
			s.ExchEpoch = epoch
		} else if epoch != s.ExchEpoch {
			sr.pending = rec
			sr.line--
			return s, nil
		}
		s.Levels = append(s.Levels, lvl)
	}
}

func (sr *SnapReader) readRecord() ([]string, error) {
	if sr.pending != nil {
		rec := sr.pending
		sr.pending = nil
		sr.line++
		return rec, nil
	}
	rec, err := sr.r.Read()
	if err != nil {
		return nil, err
	}
	sr.line++
	return rec, nil
}

func parseSnapRow(rec []string) (uint64, snap.Level, error) {
	epoch, err := strconv.ParseUint(rec[0], 10, 64)
	if err != nil {
		return 0, snap.Level{}, fmt.Errorf("exch_epoch %q: %w", rec[0], err)
	}
	side, err := parseSide(rec[1])
	if err != nil {
		return 0, snap.Level{}, err
	}
	price, err := parseU32(rec[2], "price")
	if err != nil {
		return 0, snap.Level{}, err
	}
	qty, err := parseU32(rec[3], "qty")
	if err != nil {
		return 0, snap.Level{}, err
	}
	return epoch, snap.Level{Side: side, Price: price, Qty: qty}, nil
}

// OrderReader streams taker orders from CSV rows of the form
//
//	id,side,price,qty
//
// The id doubles as the exchange epoch of the event for replay ordering.
type OrderReader struct {
	r    *csv.Reader
	line int
}

func NewOrderReader(r io.Reader) *OrderReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true
	return &OrderReader{r: cr}
}

// Next reads one order. Returns io.EOF once the stream is exhausted.
func (or *OrderReader) Next() (book.Order, error) {
	rec, err := or.r.Read()
	if err == io.EOF {
		return book.Order{}, io.EOF
	}
	if err != nil {
		return book.Order{}, err
	}
	or.line++

	id, err := strconv.ParseUint(rec[0], 10, 64)
	if err != nil {
		return book.Order{}, fmt.Errorf("order row %d: id %q: %w", or.line, rec[0], err)
	}
	if book.IsSynthetic(id) {
		return book.Order{}, fmt.Errorf("order row %d: id %d: %w", or.line, id, book.ErrSyntheticID)
	}
	side, err := parseSide(rec[1])
	if err != nil {
		return book.Order{}, fmt.Errorf("order row %d: %w", or.line, err)
	}
	price, err := parseU32(rec[2], "price")
	if err != nil {
		return book.Order{}, fmt.Errorf("order row %d: %w", or.line, err)
	}
	qty, err := parseU32(rec[3], "qty")
	if err != nil {
		return book.Order{}, fmt.Errorf("order row %d: %w", or.line, err)
	}
	return book.Order{ID: id, Side: side, Price: price, Qty: qty, CreatedAt: id}, nil
}

func parseSide(s string) (book.Side, error) {
	switch s {
	case "bid", "buy", "B", "0":
		return book.Bid, nil
	case "ask", "sell", "A", "1":
		return book.Ask, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

func parseU32(s, field string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, s, err)
	}
	return uint32(v), nil
}
