package record

import (
	"github.com/zeebo/xxh3"
)

// Hash returns the xxh3 hash of the canonical encoding of r.
func (r *Record) Hash() uint64 {
	return xxh3.Hash(r.AppendCanonical(nil))
}

// Digest returns an order-sensitive xxh3 digest over recs. Two sequences
// have the same digest when they hold equal records in the same order.
func Digest(recs []*Record) uint64 {
	h := xxh3.New()
	buf := make([]byte, 0, 512)
	for _, r := range recs {
		buf = r.AppendCanonical(buf[:0])
		buf = append(buf, '\n')
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}
