package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/migration-gateway/internal/assignment"
	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/gateway"
	"github.com/angeloszaimis/migration-gateway/internal/handler"
	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
	"github.com/angeloszaimis/migration-gateway/internal/upstream"
)

type fixedModes struct {
	mode feature.Mode
}

func (f fixedModes) Mode(feature.Feature) feature.Mode {
	return f.mode
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("FeatureForPath", func() {
	DescribeTable("maps the first path segment",
		func(path string, expected feature.Feature, ok bool) {
			f, matched := handler.FeatureForPath(path)
			Expect(matched).To(Equal(ok))
			if ok {
				Expect(f).To(Equal(expected))
			}
		},
		Entry("auth", "/auth/login", feature.Authentication, true),
		Entry("auth root", "/auth", feature.Authentication, true),
		Entry("applications", "/applications/123", feature.Applications, true),
		Entry("documents", "/documents/cv.pdf", feature.Documents, true),
		Entry("realtime", "/realtime/subscribe", feature.Realtime, true),
		Entry("analytics", "/analytics/events", feature.Analytics, true),
		Entry("unknown", "/payments/1", feature.Feature(""), false),
		Entry("root", "/", feature.Feature(""), false),
	)
})

var _ = Describe("GatewayHandler", func() {
	var (
		legacySrv *httptest.Server
		nativeSrv *httptest.Server
		ups       map[feature.System]*upstream.Upstream
		recorder  *telemetry.Recorder
		collector *telemetry.Collector
		h         *handler.GatewayHandler
	)

	newHandler := func(mode feature.Mode) *handler.GatewayHandler {
		resolver := assignment.NewResolver(fixedModes{mode}, assignment.Policy{})
		gw := gateway.New(resolver, ups)
		return handler.NewGatewayHandler(discardLogger(), gw, collector)
	}

	BeforeEach(func() {
		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)

		legacySrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("legacy"))
		}))
		nativeSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("native"))
		}))

		ups = map[feature.System]*upstream.Upstream{
			feature.SystemLegacy: upstream.New(feature.SystemLegacy, mustParseURL(legacySrv.URL)),
			feature.SystemNative: upstream.New(feature.SystemNative, mustParseURL(nativeSrv.URL)),
		}

		recorder = telemetry.NewRecorder(telemetry.RecorderOptions{SampleRate: 1.0}, discardLogger())
		collector = telemetry.NewCollector(16, recorder, discardLogger())
		collector.Start(ctx)
	})

	AfterEach(func() {
		legacySrv.Close()
		nativeSrv.Close()
	})

	It("should proxy to the assigned upstream and stamp the header", func() {
		h = newHandler(feature.ModeNative)

		req := httptest.NewRequest(http.MethodGet, "/applications/1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get(handler.ServedByHeader)).To(Equal("native"))

		body, _ := io.ReadAll(rec.Body)
		Expect(string(body)).To(Equal("native"))
	})

	It("should record a sample for the proxied request", func() {
		h = newHandler(feature.ModeNative)

		req := httptest.NewRequest(http.MethodGet, "/documents/cv.pdf", nil)
		req.Header.Set(handler.UserIDHeader, "user-7")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Eventually(recorder.Len).Should(Equal(1))

		s := recorder.Snapshot()[0]
		Expect(s.System).To(Equal(feature.SystemNative))
		Expect(s.Feature).To(Equal(feature.Documents))
		Expect(s.Operation).To(Equal("GET /documents/cv.pdf"))
		Expect(s.Success).To(BeTrue())
		Expect(s.UserID).To(Equal("user-7"))
	})

	It("should mark 5xx upstream responses as failures", func() {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer failing.Close()
		ups[feature.SystemNative] = upstream.New(feature.SystemNative, mustParseURL(failing.URL))

		h = newHandler(feature.ModeNative)

		req := httptest.NewRequest(http.MethodGet, "/applications/1", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)

		Eventually(recorder.Len).Should(Equal(1))

		s := recorder.Snapshot()[0]
		Expect(s.Success).To(BeFalse())
		Expect(s.Error).To(ContainSubstring("502"))
	})

	It("should fall back to legacy when native is down", func() {
		ups[feature.SystemNative].SetHealthy(false)
		h = newHandler(feature.ModeNative)

		req := httptest.NewRequest(http.MethodGet, "/applications/1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Header().Get(handler.ServedByHeader)).To(Equal("legacy"))
	})

	It("should return 404 for paths outside the feature map", func() {
		h = newHandler(feature.ModeNative)

		req := httptest.NewRequest(http.MethodGet, "/payments/1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should return 503 when no upstream is healthy", func() {
		for _, up := range ups {
			up.SetHealthy(false)
		}
		h = newHandler(feature.ModeNative)

		req := httptest.NewRequest(http.MethodGet, "/applications/1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should update the upstream EWMA after a response", func() {
		h = newHandler(feature.ModeLegacy)

		req := httptest.NewRequest(http.MethodGet, "/analytics/events", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(ups[feature.SystemLegacy].EWMATime()).To(BeNumerically(">", 0))
	})

	It("should release the upstream connection", func() {
		h = newHandler(feature.ModeLegacy)

		req := httptest.NewRequest(http.MethodGet, "/applications/1", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(ups[feature.SystemLegacy].ActiveConnections()).To(BeZero())
	})
})
