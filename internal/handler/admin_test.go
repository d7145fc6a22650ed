package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/migration-gateway/internal/assignment"
	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/flags"
	"github.com/angeloszaimis/migration-gateway/internal/gateway"
	"github.com/angeloszaimis/migration-gateway/internal/handler"
	"github.com/angeloszaimis/migration-gateway/internal/monitor"
	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
	"github.com/angeloszaimis/migration-gateway/internal/upstream"
)

var _ = Describe("AdminHandler", func() {
	var (
		registry *flags.Registry
		recorder *telemetry.Recorder
		mon      *monitor.RollbackMonitor
		admin    *handler.AdminHandler
	)

	BeforeEach(func() {
		registry = flags.NewRegistry(nil, nil)
		recorder = telemetry.NewRecorder(telemetry.RecorderOptions{SampleRate: 1.0}, discardLogger())
		mon = monitor.New(recorder, registry, nil, monitor.DefaultThresholds(), discardLogger())

		resolver := assignment.NewResolver(registry, assignment.Policy{})
		ups := map[feature.System]*upstream.Upstream{
			feature.SystemLegacy: upstream.New(feature.SystemLegacy, mustParseURL("http://legacy.internal:8080")),
			feature.SystemNative: upstream.New(feature.SystemNative, mustParseURL("http://native.internal:8080")),
		}
		gw := gateway.New(resolver, ups)

		admin = handler.NewAdminHandler(discardLogger(), registry, recorder, mon, gw)
	})

	Describe("Status", func() {
		It("should report monitor state, feature modes and upstreams", func() {
			rec := httptest.NewRecorder()
			admin.Status(rec, httptest.NewRequest(http.MethodGet, "/admin/status", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp struct {
				MonitorState    string            `json:"monitor_state"`
				Features        map[string]string `json:"features"`
				SamplesBuffered int               `json:"samples_buffered"`
				Upstreams       map[string]struct {
					Healthy bool   `json:"healthy"`
					URL     string `json:"url"`
				} `json:"upstreams"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())

			Expect(resp.MonitorState).To(Equal("NORMAL"))
			Expect(resp.Features).To(HaveLen(len(feature.All())))
			Expect(resp.Features["authentication"]).To(Equal("legacy"))
			Expect(resp.SamplesBuffered).To(BeZero())
			Expect(resp.Upstreams).To(HaveKey("legacy"))
			Expect(resp.Upstreams["legacy"].Healthy).To(BeTrue())
		})
	})

	Describe("Compare", func() {
		BeforeEach(func() {
			recorder.Record(telemetry.Sample{
				System: feature.SystemLegacy, Feature: feature.Applications,
				Duration: 200 * time.Millisecond, Success: true,
			})
			recorder.Record(telemetry.Sample{
				System: feature.SystemNative, Feature: feature.Applications,
				Duration: 100 * time.Millisecond, Success: true,
			})
		})

		It("should return windowed statistics", func() {
			rec := httptest.NewRecorder()
			admin.Compare(rec, httptest.NewRequest(http.MethodGet, "/admin/compare?feature=applications&window_minutes=30", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var cmp telemetry.Comparison
			Expect(json.Unmarshal(rec.Body.Bytes(), &cmp)).To(Succeed())
			Expect(cmp.Legacy.TotalRequests).To(Equal(1))
			Expect(cmp.Native.TotalRequests).To(Equal(1))
			Expect(cmp.Improvement.Latency).To(BeNumerically("~", 50.0, 0.01))
		})

		It("should reject an unknown feature", func() {
			rec := httptest.NewRecorder()
			admin.Compare(rec, httptest.NewRequest(http.MethodGet, "/admin/compare?feature=payments", nil))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject an invalid window", func() {
			rec := httptest.NewRecorder()
			admin.Compare(rec, httptest.NewRequest(http.MethodGet, "/admin/compare?window_minutes=-5", nil))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("SetFeatureMode", func() {
		setMode := func(name, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPut, "/admin/features/"+name, strings.NewReader(body))
			req.SetPathValue("name", name)
			rec := httptest.NewRecorder()
			admin.SetFeatureMode(rec, req)
			return rec
		}

		It("should change the mode", func() {
			rec := setMode("documents", `{"mode":"native"}`)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(registry.Mode(feature.Documents)).To(Equal(feature.ModeNative))
		})

		It("should return 404 for an unknown feature", func() {
			rec := setMode("payments", `{"mode":"native"}`)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should return 400 for a malformed body", func() {
			rec := setMode("documents", `{mode:`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject cognito for non-auth features", func() {
			rec := setMode("documents", `{"mode":"cognito"}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(registry.Mode(feature.Documents)).To(Equal(feature.ModeLegacy))
		})

		It("should accept cognito for authentication", func() {
			rec := setMode("authentication", `{"mode":"cognito"}`)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(registry.Mode(feature.Authentication)).To(Equal(feature.ModeCognito))
		})
	})

	Describe("ResetRollback", func() {
		It("should re-arm the monitor", func() {
			for i := 0; i < 20; i++ {
				recorder.Record(telemetry.Sample{
					System: feature.SystemNative, Feature: feature.Applications,
					Duration: 10 * time.Millisecond, Success: false, Error: "boom",
				})
			}
			mon.Evaluate()
			Expect(mon.State()).To(Equal(monitor.StateRolledBack))

			rec := httptest.NewRecorder()
			admin.ResetRollback(rec, httptest.NewRequest(http.MethodPost, "/admin/rollback/reset", nil))

			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(mon.State()).To(Equal(monitor.StateNormal))
		})
	})
})
