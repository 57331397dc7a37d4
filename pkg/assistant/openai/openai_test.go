package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aidm5e/aidm/pkg/assistant"
	"github.com/aidm5e/aidm/pkg/assistant/openai"
)

func newClient(baseURL string, opts ...func(*openai.ClientConfig)) *openai.Client {
	cfg := openai.ClientConfig{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		AssistantID:  "asst_123",
		PollInterval: 5 * time.Millisecond,
		RunTimeout:   time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	client, err := openai.NewClient(cfg)
	Expect(err).NotTo(HaveOccurred())
	return client
}

var _ = Describe("NewClient", func() {
	It("requires an api key", func() {
		_, err := openai.NewClient(openai.ClientConfig{AssistantID: "asst_123"})
		Expect(err).To(HaveOccurred())
	})

	It("requires an assistant id", func() {
		_, err := openai.NewClient(openai.ClientConfig{APIKey: "k"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("CreateConversation", func() {
		It("posts the seed message and returns the thread id", func() {
			var gotAuth, gotBeta string
			var gotBody map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/v1/threads"))
				gotAuth = r.Header.Get("Authorization")
				gotBeta = r.Header.Get("OpenAI-Beta")
				Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())
				json.NewEncoder(w).Encode(map[string]string{"id": "thread_abc"})
			}))
			defer server.Close()

			id, err := newClient(server.URL).CreateConversation(ctx, "Gameplay memory for Campaign")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("thread_abc"))
			Expect(gotAuth).To(Equal("Bearer test-key"))
			Expect(gotBeta).To(Equal("assistants=v2"))

			messages := gotBody["messages"].([]any)
			first := messages[0].(map[string]any)
			Expect(first["role"]).To(Equal("user"))
			Expect(first["content"]).To(Equal("Gameplay memory for Campaign"))
		})

		It("rejects a response without an id", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{})
			}))
			defer server.Close()

			_, err := newClient(server.URL).CreateConversation(ctx, "seed")
			var remote *assistant.RemoteError
			Expect(errors.As(err, &remote)).To(BeTrue())
		})

		It("surfaces non-2xx responses with the body attached", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "bad key"}`))
			}))
			defer server.Close()

			_, err := newClient(server.URL).CreateConversation(ctx, "seed")
			var remote *assistant.RemoteError
			Expect(errors.As(err, &remote)).To(BeTrue())
			Expect(remote.Status).To(Equal(http.StatusUnauthorized))
			Expect(remote.Body).To(ContainSubstring("bad key"))
		})
	})

	Describe("WaitForRun", func() {
		It("polls until the run completes", func() {
			var polls atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/threads/thread_abc/runs/run_1"))
				status := "in_progress"
				if polls.Add(1) >= 3 {
					status = "completed"
				}
				json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": status})
			}))
			defer server.Close()

			Expect(newClient(server.URL).WaitForRun(ctx, "thread_abc", "run_1")).To(Succeed())
			Expect(polls.Load()).To(BeNumerically(">=", 3))
		})

		It("maps a failed run to ErrRunFailed with the remote detail", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"id":     "run_1",
					"status": "failed",
					"last_error": map[string]string{
						"code":    "server_error",
						"message": "model overloaded",
					},
				})
			}))
			defer server.Close()

			err := newClient(server.URL).WaitForRun(ctx, "thread_abc", "run_1")
			Expect(err).To(MatchError(assistant.ErrRunFailed))
			Expect(err.Error()).To(ContainSubstring("model overloaded"))
		})

		It("returns ErrRunTimeout when the run never terminates", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": "queued"})
			}))
			defer server.Close()

			client := newClient(server.URL, func(cfg *openai.ClientConfig) {
				cfg.RunTimeout = 50 * time.Millisecond
			})

			err := client.WaitForRun(ctx, "thread_abc", "run_1")
			Expect(err).To(MatchError(assistant.ErrRunTimeout))
		})

		It("honors caller context cancellation", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": "queued"})
			}))
			defer server.Close()

			cancelCtx, cancel := context.WithCancel(ctx)
			cancel()

			err := newClient(server.URL).WaitForRun(cancelCtx, "thread_abc", "run_1")
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("LatestReply", func() {
		It("returns the newest assistant message, text segments joined", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/threads/thread_abc/messages"))
				json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]any{
						{
							"role": "assistant",
							"content": []map[string]any{
								{"type": "text", "text": map[string]string{"value": "The door "}},
								{"type": "text", "text": map[string]string{"value": "creaks open."}},
							},
						},
						{
							"role": "user",
							"content": []map[string]any{
								{"type": "text", "text": map[string]string{"value": "we open the door"}},
							},
						},
					},
				})
			}))
			defer server.Close()

			reply, err := newClient(server.URL).LatestReply(ctx, "thread_abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("The door creaks open."))
		})

		It("returns empty when no assistant message exists yet", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
			}))
			defer server.Close()

			reply, err := newClient(server.URL).LatestReply(ctx, "thread_abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(BeEmpty())
		})
	})

	Describe("full exchange", func() {
		It("drives post, run, poll and reply against one server", func() {
			var polls atomic.Int32

			mux := http.NewServeMux()
			mux.HandleFunc("POST /v1/threads/thread_abc/messages", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"id": "msg_1"})
			})
			mux.HandleFunc("POST /v1/threads/thread_abc/runs", func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body["assistant_id"]).To(Equal("asst_123"))
				json.NewEncoder(w).Encode(map[string]string{"id": "run_1"})
			})
			mux.HandleFunc("GET /v1/threads/thread_abc/runs/run_1", func(w http.ResponseWriter, r *http.Request) {
				status := "in_progress"
				if polls.Add(1) >= 2 {
					status = "completed"
				}
				json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": status})
			})
			mux.HandleFunc("GET /v1/threads/thread_abc/messages", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]any{
						{
							"role": "assistant",
							"content": []map[string]any{
								{"type": "text", "text": map[string]string{"value": "roll initiative"}},
							},
						},
					},
				})
			})

			server := httptest.NewServer(mux)
			defer server.Close()

			reply, err := assistant.Exchange(ctx, newClient(server.URL), "thread_abc", "we attack")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("roll initiative"))
		})
	})
})
