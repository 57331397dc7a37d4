package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aidm5e/aidm/pkg/logger"
	"github.com/aidm5e/aidm/pkg/routing"
	"github.com/aidm5e/aidm/pkg/transcript"
)

var _ = Describe("Server", func() {
	var (
		server      *Server
		store       *routing.Store
		transcripts *transcript.InMemoryDriver
	)

	get := func(path string) (*http.Response, []byte) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		return resp, body
	}

	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "routes.json")
		store = routing.NewStore(path, logger.Nop())
		transcripts = transcript.NewInMemoryDriver()
		server = NewServer(Config{ListenAddr: ":0"}, store, transcripts, logger.Nop())

		Expect(store.Save(routing.Document{
			"100": {
				Name:          "Campaign",
				DefaultMemory: routing.DefaultMemoryName,
				MemoryThreads: map[string]string{
					"gameplay":    "conv-1",
					"out-of-game": "conv-2",
				},
				Channels: map[string]*routing.Channel{
					"200": {
						Name:       "tavern",
						MemoryName: "gameplay",
						Threads: map[string]*routing.Thread{
							"300": {Name: "ambush", MemoryName: "out-of-game"},
						},
					},
					"201": {Name: "telldm", MemoryName: "out-of-game", AlwaysOn: true},
				},
			},
		})).To(Succeed())
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, body := get("/ping")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal(`"pong"`))
		})
	})

	Describe("GET /routes/stats", func() {
		It("returns aggregate counts", func() {
			resp, body := get("/routes/stats")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var stats routing.Stats
			Expect(json.Unmarshal(body, &stats)).To(Succeed())
			Expect(stats.Categories).To(Equal(1))
			Expect(stats.Channels).To(Equal(2))
			Expect(stats.Threads).To(Equal(1))
			Expect(stats.MemorySlots).To(Equal(2))
			Expect(stats.AlwaysOn).To(Equal(1))
		})
	})

	Describe("GET /routes/categories", func() {
		It("lists category summaries", func() {
			resp, body := get("/routes/categories")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out struct {
				Count      int               `json:"count"`
				Categories []CategorySummary `json:"categories"`
			}
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(Equal(1))
			Expect(out.Categories[0].ID).To(Equal("100"))
			Expect(out.Categories[0].Name).To(Equal("Campaign"))
			Expect(out.Categories[0].MemorySlots).To(Equal(2))
			Expect(out.Categories[0].Channels).To(Equal(2))
		})

		It("returns an empty list when the document is empty", func() {
			Expect(store.Save(routing.Document{})).To(Succeed())

			resp, body := get("/routes/categories")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out struct {
				Count int `json:"count"`
			}
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(BeZero())
		})
	})

	Describe("GET /routes/categories/:id", func() {
		It("returns the full category detail, channels sorted by id", func() {
			resp, body := get("/routes/categories/100")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var detail CategoryDetail
			Expect(json.Unmarshal(body, &detail)).To(Succeed())
			Expect(detail.Name).To(Equal("Campaign"))
			Expect(detail.MemoryThreads).To(HaveKeyWithValue("gameplay", "conv-1"))
			Expect(detail.Channels).To(HaveLen(2))
			Expect(detail.Channels[0].ID).To(Equal("200"))
			Expect(detail.Channels[0].Threads).To(HaveLen(1))
			Expect(detail.Channels[1].AlwaysOn).To(BeTrue())
		})

		It("returns 404 for an unknown category", func() {
			resp, body := get("/routes/categories/777")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			var errResp ErrorResponse
			Expect(json.Unmarshal(body, &errResp)).To(Succeed())
			Expect(errResp.Error).To(Equal("category not found"))
		})
	})

	Describe("GET /transcripts/stats", func() {
		It("returns the exchange count", func() {
			_, err := transcripts.Record(context.Background(), transcript.Exchange{
				ConversationID: "conv-1",
				MemoryName:     "gameplay",
				CategoryID:     "100",
				ChannelID:      "200",
				UserID:         "u1",
				UserName:       "alice",
				Prompt:         "p",
				Reply:          "r",
			})
			Expect(err).NotTo(HaveOccurred())

			resp, body := get("/transcripts/stats")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out struct {
				Exchanges int `json:"exchanges"`
			}
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Exchanges).To(Equal(1))
		})
	})
})
