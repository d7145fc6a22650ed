package telemetry_test

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
)

type capturingStore struct {
	saved [][]telemetry.Sample
	err   error
}

func (s *capturingStore) SaveSamples(samples []telemetry.Sample) error {
	s.saved = append(s.saved, samples)
	return s.err
}

type countingEvaluator struct {
	calls int
}

func (e *countingEvaluator) Evaluate() {
	e.calls++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func nativeSample(op string) telemetry.Sample {
	return telemetry.Sample{
		System:    feature.SystemNative,
		Feature:   feature.Applications,
		Operation: op,
		Duration:  100 * time.Millisecond,
		Success:   true,
		Timestamp: time.Now(),
	}
}

var _ = Describe("Recorder", func() {
	var recorder *telemetry.Recorder

	BeforeEach(func() {
		recorder = telemetry.NewRecorder(telemetry.RecorderOptions{
			SampleRate: 1.0,
		}, discardLogger())
	})

	Describe("Record", func() {
		It("should buffer recorded samples", func() {
			recorder.Record(nativeSample("op-1"))
			recorder.Record(nativeSample("op-2"))

			Expect(recorder.Len()).To(Equal(2))
		})

		It("should assign an id and timestamp when missing", func() {
			recorder.Record(telemetry.Sample{
				System:  feature.SystemNative,
				Feature: feature.Applications,
				Success: true,
			})

			s := recorder.Snapshot()[0]
			Expect(s.ID).NotTo(BeEmpty())
			Expect(s.Timestamp).NotTo(BeZero())
		})

		It("should keep the 1000 most recent of 1001 samples", func() {
			for i := 0; i < 1001; i++ {
				recorder.Record(nativeSample(fmt.Sprintf("op-%d", i)))
			}

			Expect(recorder.Len()).To(Equal(1000))

			buffered := recorder.Snapshot()
			Expect(buffered[0].Operation).To(Equal("op-1"))
			Expect(buffered[999].Operation).To(Equal("op-1000"))
		})

		It("should drop samples rejected by the sampling filter", func() {
			recorder = telemetry.NewRecorder(telemetry.RecorderOptions{
				SampleRate: 0.5,
				RandFloat:  func() float64 { return 0.9 },
			}, discardLogger())

			recorder.Record(nativeSample("op"))
			Expect(recorder.Len()).To(BeZero())
		})

		It("should record everything at rate 1.0", func() {
			recorder = telemetry.NewRecorder(telemetry.RecorderOptions{
				SampleRate: 1.0,
				RandFloat:  func() float64 { return 0.999999 },
			}, discardLogger())

			recorder.Record(nativeSample("op"))
			Expect(recorder.Len()).To(Equal(1))
		})

		It("should persist the most recent samples on every record", func() {
			store := &capturingStore{}
			recorder = telemetry.NewRecorder(telemetry.RecorderOptions{
				SampleRate:  1.0,
				PersistSize: 3,
				Store:       store,
			}, discardLogger())

			for i := 0; i < 5; i++ {
				recorder.Record(nativeSample(fmt.Sprintf("op-%d", i)))
			}

			Expect(store.saved).To(HaveLen(5))

			last := store.saved[len(store.saved)-1]
			Expect(last).To(HaveLen(3))
			Expect(last[0].Operation).To(Equal("op-2"))
			Expect(last[2].Operation).To(Equal("op-4"))
		})

		It("should keep recording when persistence fails", func() {
			store := &capturingStore{err: errors.New("disk full")}
			recorder = telemetry.NewRecorder(telemetry.RecorderOptions{
				SampleRate: 1.0,
				Store:      store,
			}, discardLogger())

			recorder.Record(nativeSample("op-1"))
			recorder.Record(nativeSample("op-2"))

			Expect(recorder.Len()).To(Equal(2))
		})

		It("should trigger the evaluator after every recorded sample", func() {
			evaluator := &countingEvaluator{}
			recorder.SetEvaluator(evaluator)

			recorder.Record(nativeSample("op-1"))
			recorder.Record(nativeSample("op-2"))

			Expect(evaluator.calls).To(Equal(2))
		})

		It("should not trigger the evaluator for filtered samples", func() {
			evaluator := &countingEvaluator{}
			recorder = telemetry.NewRecorder(telemetry.RecorderOptions{
				SampleRate: 0.5,
				RandFloat:  func() float64 { return 0.9 },
			}, discardLogger())
			recorder.SetEvaluator(evaluator)

			recorder.Record(nativeSample("op"))
			Expect(evaluator.calls).To(BeZero())
		})
	})

	Describe("Restore", func() {
		It("should seed the buffer without evaluating", func() {
			evaluator := &countingEvaluator{}
			recorder.SetEvaluator(evaluator)

			recorder.Restore([]telemetry.Sample{nativeSample("a"), nativeSample("b")})

			Expect(recorder.Len()).To(Equal(2))
			Expect(evaluator.calls).To(BeZero())
		})

		It("should respect the buffer cap", func() {
			recorder = telemetry.NewRecorder(telemetry.RecorderOptions{
				SampleRate: 1.0,
				BufferSize: 10,
			}, discardLogger())

			samples := make([]telemetry.Sample, 15)
			for i := range samples {
				samples[i] = nativeSample(fmt.Sprintf("op-%d", i))
			}
			recorder.Restore(samples)

			Expect(recorder.Len()).To(Equal(10))
			Expect(recorder.Snapshot()[0].Operation).To(Equal("op-5"))
		})
	})

	Describe("Prune", func() {
		It("should drop samples older than the retention age", func() {
			old := nativeSample("old")
			old.Timestamp = time.Now().Add(-25 * time.Hour)
			fresh := nativeSample("fresh")

			recorder.Restore([]telemetry.Sample{old, fresh})

			Expect(recorder.Prune(24 * time.Hour)).To(Equal(1))
			Expect(recorder.Len()).To(Equal(1))
			Expect(recorder.Snapshot()[0].Operation).To(Equal("fresh"))
		})

		It("should report zero when nothing is expired", func() {
			recorder.Record(nativeSample("op"))
			Expect(recorder.Prune(24 * time.Hour)).To(BeZero())
		})
	})
})
