package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// value reads the current value of a counter, gauge or histogram sample count.
func value(c prometheus.Collector) float64 {
	ch := make(chan prometheus.Metric, 1)
	go func() {
		c.Collect(ch)
		close(ch)
	}()
	var out float64
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			continue
		}
		switch {
		case pb.Counter != nil:
			out = pb.Counter.GetValue()
		case pb.Gauge != nil:
			out = pb.Gauge.GetValue()
		case pb.Histogram != nil:
			out = float64(pb.Histogram.GetSampleCount())
		}
	}
	return out
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegisterer(registry))

			Convey("Then it should use the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "varkiosk")
				So(manager.subsystem, ShouldEqual, "game")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("kiosk"),
				WithSubsystem("test"),
				WithLatencyBuckets(1, 5, 10),
				WithAccuracyBuckets(50, 90, 100),
				WithRegisterer(registry),
			)
			manager.roundsStarted.Inc()

			Convey("Then metric names should carry the namespace and subsystem", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "kiosk_test_rounds_started_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(manager.latencyBuckets, ShouldResemble, []float64{1, 5, 10})
				So(manager.accuracyBuckets, ShouldResemble, []float64{50, 90, 100})
			})
		})

		Convey("When empty option values are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(),
				WithAccuracyBuckets(),
				WithRegisterer(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "varkiosk")
				So(manager.subsystem, ShouldEqual, "game")
				So(manager.latencyBuckets, ShouldResemble, defaultLatencyBuckets)
				So(manager.accuracyBuckets, ShouldResemble, defaultAccuracyBuckets)
			})
		})

		Convey("When bucket layouts are out of order or out of range", func() {
			manager := NewManager(
				WithLatencyBuckets(10, 5, 1),
				WithAccuracyBuckets(50, 150),
				WithRegisterer(prometheus.NewRegistry()),
			)

			Convey("Then they should be ignored", func() {
				So(manager.latencyBuckets, ShouldResemble, defaultLatencyBuckets)
				So(manager.accuracyBuckets, ShouldResemble, defaultAccuracyBuckets)
			})
		})
	})
}

func TestGameMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording round lifecycle metrics", func() {
			before := value(globalManager.roundsStarted)
			RecordRoundStarted()
			RecordPhaseTransition("IDLE", "PLAYING")
			RecordClickScored()
			RecordClickIgnored()
			RecordAccuracy(87.5)
			RecordNormalizationFailure()

			Convey("Then counters should move", func() {
				So(value(globalManager.roundsStarted), ShouldEqual, before+1)
				So(value(globalManager.phaseTransitions.WithLabelValues("IDLE", "PLAYING")), ShouldBeGreaterThanOrEqualTo, 1)
				So(value(globalManager.clicks.WithLabelValues("scored")), ShouldBeGreaterThanOrEqualTo, 1)
				So(value(globalManager.clicks.WithLabelValues("ignored")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording submissions and sessions", func() {
			RecordScoreSubmitted()
			RecordSubmissionError()
			RecordSessionRejected()
			UpdateActiveSessions(4)

			Convey("Then the active sessions gauge should be set", func() {
				So(value(globalManager.activeSessions), ShouldEqual, 4)
				So(value(globalManager.scoresSubmitted), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording telemetry and media metrics", func() {
			RecordTelemetryFetch("fallback", "timeout")
			RecordTelemetryLatency(12)
			RecordMediaResolution("fallback")

			Convey("Then labelled counters should be incremented", func() {
				So(value(globalManager.telemetryFetches.WithLabelValues("fallback", "timeout")), ShouldBeGreaterThanOrEqualTo, 1)
				So(value(globalManager.mediaResolutions.WithLabelValues("fallback")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}

func TestInfrastructureMetrics(t *testing.T) {
	Convey("Given infrastructure metrics", t, func() {
		Convey("When updating the writer queue", func() {
			UpdateQueueCapacity(10)
			UpdateQueueSize(5, 10)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			RecordWriterLatency(0.4)

			Convey("Then utilization should be size over capacity", func() {
				So(value(globalManager.queueCapacity), ShouldEqual, 10)
				So(value(globalManager.queueSize), ShouldEqual, 5)
				So(value(globalManager.queueUtilization), ShouldEqual, 0.5)
			})
		})

		Convey("When capacity is zero", func() {
			UpdateQueueSize(1, 10)
			UpdateQueueSize(3, 0)

			Convey("Then utilization should be left unchanged", func() {
				So(value(globalManager.queueSize), ShouldEqual, 3)
				So(value(globalManager.queueUtilization), ShouldEqual, 0.1)
			})
		})

		Convey("When recording repository, http and system metrics", func() {
			UpdateRepositoryRecordsTotal(42)
			RecordRepositoryAddLatency(0.2)
			RecordRepositoryQueryLatency(0.3)
			RecordLeaderboardError()
			RecordHTTPRequest("/leaderboard", "GET", "200")
			RecordHTTPRequestDuration("/leaderboard", "GET", "200", 1.5)
			RecordErrorByComponent("telemetry", "timeout")
			RecordErrorByEndpoint("/sessions", "POST", "bad_request")
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.5)

			Convey("Then gauges should reflect the values", func() {
				So(value(globalManager.repositoryRecordsTotal), ShouldEqual, 42)
				So(value(globalManager.systemGoroutineCount), ShouldEqual, 12)
				So(value(globalManager.httpRequests.WithLabelValues("/leaderboard", "GET", "200")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordRoundStarted()

		Convey("Then it should expose kiosk metrics and no default Go collectors", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			joined := strings.Join(names, ",")
			So(joined, ShouldContainSubstring, "varkiosk_game_rounds_started_total")
			So(joined, ShouldNotContainSubstring, "go_goroutines")
		})
	})
}
