package upstream_test

import (
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/upstream"
)

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("Upstream", func() {
	var up *upstream.Upstream

	BeforeEach(func() {
		up = upstream.New(feature.SystemNative, mustParseURL("http://localhost:9082"))
	})

	Describe("New", func() {
		It("should start healthy", func() {
			Expect(up.IsHealthy()).To(BeTrue())
		})

		It("should expose its system and URL", func() {
			Expect(up.System()).To(Equal(feature.SystemNative))
			Expect(up.URL().String()).To(Equal("http://localhost:9082"))
		})

		It("should create a reverse proxy", func() {
			Expect(up.ReverseProxy()).NotTo(BeNil())
		})
	})

	Describe("SetHealthy", func() {
		It("should report a change", func() {
			Expect(up.SetHealthy(false)).To(BeTrue())
			Expect(up.IsHealthy()).To(BeFalse())
		})

		It("should report no change when the status is the same", func() {
			Expect(up.SetHealthy(true)).To(BeFalse())
		})
	})

	Describe("connection tracking", func() {
		It("should count increments and decrements", func() {
			up.IncrementConn()
			up.IncrementConn()
			up.DecrementConn()

			Expect(up.ActiveConnections()).To(Equal(1))
		})

		It("should not go below zero", func() {
			up.DecrementConn()
			Expect(up.ActiveConnections()).To(BeZero())
		})
	})

	Describe("EWMA response time", func() {
		It("should be zero before any response", func() {
			Expect(up.EWMATime()).To(BeZero())
		})

		It("should equal the first recorded duration", func() {
			up.RecordResponse(100 * time.Millisecond)
			Expect(up.EWMATime()).To(Equal(100 * time.Millisecond))
		})

		It("should weight new responses by alpha", func() {
			up.RecordResponse(100 * time.Millisecond)
			up.RecordResponse(200 * time.Millisecond)

			// 0.8*100ms + 0.2*200ms = 120ms
			Expect(up.EWMATime()).To(BeNumerically("~", 120*time.Millisecond, float64(time.Millisecond)))
		})
	})
})
