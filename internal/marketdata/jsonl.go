package marketdata

import (
	"bufio"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"

	"tickbook.com/internal/book"
	"tickbook.com/internal/snap"
)

// wire types for the JSON-lines snapshot archive format: one snapshot per
// line, sides spelled out so archives stay greppable.
type jsonSnap struct {
	ExchEpoch uint64      `json:"exch_epoch"`
	Levels    []jsonLevel `json:"levels"`
}

type jsonLevel struct {
	Side  string `json:"side"`
	Price uint32 `json:"price"`
	Qty   uint32 `json:"qty"`
}

// JSONSnapReader streams snapshots from a JSON-lines archive.
type JSONSnapReader struct {
	sc   *bufio.Scanner
	line int
}

func NewJSONSnapReader(r io.Reader) *JSONSnapReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &JSONSnapReader{sc: sc}
}

func (jr *JSONSnapReader) Next() (snap.Snap, error) {
	for jr.sc.Scan() {
		jr.line++
		raw := jr.sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var js jsonSnap
		if err := json.Unmarshal(raw, &js); err != nil {
			return snap.Snap{}, fmt.Errorf("snapshot line %d: %w", jr.line, err)
		}
		s := snap.Snap{ExchEpoch: js.ExchEpoch, Levels: make([]snap.Level, 0, len(js.Levels))}
		for _, l := range js.Levels {
			side, err := parseSide(l.Side)
			if err != nil {
				return snap.Snap{}, fmt.Errorf("snapshot line %d: %w", jr.line, err)
			}
			s.Levels = append(s.Levels, snap.Level{Side: side, Price: l.Price, Qty: l.Qty})
		}
		return s, nil
	}
	if err := jr.sc.Err(); err != nil {
		return snap.Snap{}, err
	}
	return snap.Snap{}, io.EOF
}

// JSONSnapWriter writes snapshots as a JSON-lines archive.
type JSONSnapWriter struct {
	w *bufio.Writer
}

func NewJSONSnapWriter(w io.Writer) *JSONSnapWriter {
	return &JSONSnapWriter{w: bufio.NewWriter(w)}
}

func (jw *JSONSnapWriter) Write(s snap.Snap) error {
	js := jsonSnap{ExchEpoch: s.ExchEpoch, Levels: make([]jsonLevel, 0, len(s.Levels))}
	for _, l := range s.Levels {
		js.Levels = append(js.Levels, jsonLevel{Side: sideName(l.Side), Price: l.Price, Qty: l.Qty})
	}
	buf, err := json.Marshal(js)
	if err != nil {
		return err
	}
	if _, err := jw.w.Write(buf); err != nil {
		return err
	}
	return jw.w.WriteByte('\n')
}

func (jw *JSONSnapWriter) Flush() error { return jw.w.Flush() }

func sideName(s book.Side) string {
	if s == book.Bid {
		return "bid"
	}
	return "ask"
}
