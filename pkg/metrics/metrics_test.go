package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the pipeline namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "macrochart")
				So(manager.subsystem, ShouldEqual, "pipeline")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("charts"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.chartRuns.WithLabelValues("x", "ok").Inc()

			Convey("Then metric names and labels reflect the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_charts_chart_runs_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[1].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "macrochart")
				So(manager.subsystem, ShouldEqual, "pipeline")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestPipelineMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When a chart run is recorded", func() {
			before := testutil.ToFloat64(globalManager.chartRuns.WithLabelValues("test-chart", "ok"))
			RecordChartRun("test-chart", "ok")

			Convey("Then the counter and last-run gauge move", func() {
				So(testutil.ToFloat64(globalManager.chartRuns.WithLabelValues("test-chart", "ok")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.chartLastRunUnix.WithLabelValues("test-chart")), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When rows are dropped or undefined values counted", func() {
			before := testutil.ToFloat64(globalManager.rowsDropped.WithLabelValues("test-stage"))
			RecordRowsDropped("test-stage", 3)
			RecordRowsDropped("test-stage", 0)
			RecordRowsDropped("test-stage", -1)

			Convey("Then only positive counts are added", func() {
				So(testutil.ToFloat64(globalManager.rowsDropped.WithLabelValues("test-stage")), ShouldEqual, before+3)
			})

			RecordUndefinedValues("test-chart", 2)
			So(testutil.ToFloat64(globalManager.undefinedValues.WithLabelValues("test-chart")), ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				UpdateChartsRegistered(7)
				RecordStageLatency("load", 12)
				RecordRowsLoaded("csv", 100)
				RecordSourceError("fred")
				RecordArtifact("png")
				UpdateWorkerActiveCount(2)
				RecordWorkerProcessingLatency(30)
				RecordHTTPRequest("charts", "GET", "200")
				RecordHTTPRequestDuration("charts", "GET", "200", 4)
				RecordErrorByComponent("pipeline", "load")
				RecordErrorByType("load", "high")
				RecordErrorByEndpoint("charts", "GET", "not_found")
				RecordErrorLatency("http", "not_found", 1)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)

			So(testutil.ToFloat64(globalManager.chartsRegistered), ShouldEqual, 7)
		})
	})
}

func TestRegistryExposition(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordArtifact("csv")

		Convey("Then gathered families carry the pipeline prefix", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "macrochart_pipeline_"), ShouldBeTrue)
			}
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.rowsLoaded.WithLabelValues("concurrent"))
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordRowsLoaded("concurrent", 1)
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.rowsLoaded.WithLabelValues("concurrent")), ShouldEqual, before+1000)
	})
}
