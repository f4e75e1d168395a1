package api

import "sync"

// runLimiter caps concurrent simulation requests per client IP and overall.
type runLimiter struct {
	mu       sync.Mutex
	active   map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newRunLimiter(maxPerIP, maxTotal int) *runLimiter {
	if maxPerIP < 1 {
		maxPerIP = 1
	}
	if maxTotal < maxPerIP {
		maxTotal = maxPerIP
	}
	return &runLimiter{
		active:   make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire registers a request for ip. It returns false when the IP or the
// global limit has been reached.
func (l *runLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.active[ip] >= l.maxPerIP {
		return false
	}
	l.active[ip]++
	l.total++
	return true
}

func (l *runLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active[ip]--
	l.total--
	if l.active[ip] <= 0 {
		delete(l.active, ip)
	}
}

func (l *runLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[ip]
}
