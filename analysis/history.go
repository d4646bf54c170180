package analysis

// ring is a fixed-capacity history that drops its oldest entry on overflow.
type ring struct {
	buf   []float64
	start int
	n     int
}

func newRing(capacity int) ring {
	return ring{buf: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// last returns the newest entry.
func (r *ring) last() (float64, bool) {
	if r.n == 0 {
		return 0, false
	}
	return r.buf[(r.start+r.n-1)%len(r.buf)], true
}

func (r *ring) len() int { return r.n }

func (r *ring) clear() {
	r.start = 0
	r.n = 0
}

// appendTo appends the entries oldest first.
func (r *ring) appendTo(dst []float64) []float64 {
	for i := 0; i < r.n; i++ {
		dst = append(dst, r.buf[(r.start+i)%len(r.buf)])
	}
	return dst
}
