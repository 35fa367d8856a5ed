package service

import (
	"runtime"
	"time"

	"github.com/okian/varkiosk/pkg/metrics"
)

const systemMetricsInterval = 5 * time.Second

// runSystemMetrics samples runtime statistics until stop is closed.
func (s *Service) runSystemMetrics(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	var lastNumGC uint32
	sample := func() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		metrics.UpdateSystemMemoryUsage(ms.Alloc)
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

		// PauseNs is a ring buffer of the most recent 256 pauses.
		ring := uint32(len(ms.PauseNs))
		first := lastNumGC
		if ms.NumGC > ring && first < ms.NumGC-ring {
			first = ms.NumGC - ring
		}
		for n := first; n < ms.NumGC; n++ {
			pause := ms.PauseNs[n%ring]
			metrics.RecordSystemGCPauseTime(float64(pause) / float64(time.Millisecond))
		}
		lastNumGC = ms.NumGC
	}

	sample()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sample()
		}
	}
}
