package scanning

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
		data    *ReceiptData
		err     error
	)

	// Content type image/png skips image decoding, so the bytes
	// themselves do not need to be a real PNG.
	imageData := []byte("png-bytes")

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		scanner, newErr = NewOllama(server.URL(), "llava")
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		data, err = scanner.ScanReceipt(imageData, "image/png")
	})

	When("the model returns valid JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/api/chat"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{
						Role:    "assistant",
						Content: `{"date":"2026-01-09","provider":"Plainsboro Medical","amount":106.38,"category":"Medical"}`,
					},
					Done: true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the extracted fields", func() {
			Expect(data.Provider).To(Equal("Plainsboro Medical"))
			Expect(data.Amount).To(Equal(106.38))
			Expect(data.Date).To(Equal("2026-01-09"))
		})
	})

	When("the server returns a non-200 status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("reports the service as unavailable", func() {
			Expect(errors.Is(err, ErrServiceUnavailable)).To(BeTrue())
			Expect(data).To(BeNil())
		})
	})

	When("the server is unreachable", func() {
		BeforeEach(func() {
			server.Close()
		})

		It("reports the service as unavailable", func() {
			Expect(errors.Is(err, ErrServiceUnavailable)).To(BeTrue())
		})
	})

	When("the model returns prose without JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "I cannot read this receipt."},
				Done:    true,
			}))
		})

		It("reports an unparsable response with the raw text", func() {
			Expect(errors.Is(err, ErrUnparsableResponse)).To(BeTrue())

			var extractionErr *ExtractionError
			Expect(errors.As(err, &extractionErr)).To(BeTrue())
			Expect(extractionErr.Raw).To(ContainSubstring("cannot read"))
		})
	})
})
