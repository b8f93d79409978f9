package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler keeps num out of every den events. A zero ratio keeps everything.
type sampler struct {
	ratio atomic.Uint64
	seen  atomic.Uint64
}

func newSampler(num, den int) *sampler {
	s := &sampler{}
	s.set(num, den)
	return s
}

func (s *sampler) set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	if num > den {
		num = den
	}
	s.ratio.Store(uint64(num)<<32 | uint64(den))
	s.seen.Store(0)
}

func (s *sampler) allow() bool {
	r := s.ratio.Load()
	num, den := r>>32, r&0xffffffff
	if num == 0 || den == 0 {
		return true
	}
	n := s.seen.Add(1) - 1
	return n%den < num
}

// parseRatio accepts "n/d" or "d" (meaning 1/d). "0" disables sampling.
func parseRatio(ratio string) (num, den int, ok bool) {
	ratio = strings.TrimSpace(ratio)
	if a, b, found := strings.Cut(ratio, "/"); found {
		n, err1 := strconv.Atoi(strings.TrimSpace(a))
		d, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || n < 0 || d < 0 {
			return 0, 0, false
		}
		return n, d, true
	}
	d, err := strconv.Atoi(ratio)
	if err != nil || d < 0 {
		return 0, 0, false
	}
	if d == 0 {
		return 0, 0, true
	}
	return 1, d, true
}
