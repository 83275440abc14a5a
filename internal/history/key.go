package history

import "time"

// KeyLayout is the timestamp format used for snapshot keys. The fraction is
// fixed-width so that string order matches time order.
const KeyLayout = "2006-01-02T15:04:05.000000"

// keygen hands out strictly increasing timestamp keys.
//
// Keys are local wall-clock readings, which can repeat when the clock is set
// back for daylight saving. last therefore holds the wall clock of the last
// key re-encoded as UTC, and every comparison is made on that reading.
type keygen struct {
	now  func() time.Time
	last time.Time
}

// next returns a key later than every key it has returned before and later
// than whatever was observed via seen.
func (g *keygen) next() string {
	t := wall(g.now()).Truncate(time.Microsecond)
	if !t.After(g.last) {
		t = g.last.Add(time.Microsecond)
	}
	g.last = t
	return t.Format(KeyLayout)
}

// seen advances the generator past an existing key. Keys that don't parse
// (hand-edited files, other layouts) are ignored.
func (g *keygen) seen(key string) {
	t, err := time.Parse("2006-01-02T15:04:05", key)
	if err != nil {
		return
	}
	if t.After(g.last) {
		g.last = t
	}
}

// wall returns t's local wall-clock reading as a UTC time.
func wall(t time.Time) time.Time {
	t = t.In(time.Local)
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
}
