package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/handler"
	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

type sseEvent struct {
	ID   string
	Name string
	Data string
}

func readSSE(r *bufio.Reader) sseEvent {
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "id: "):
			ev.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			ev.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.Data = strings.TrimPrefix(line, "data: ")
		}
	}
}

var _ = Describe("StreamHandler", func() {
	var (
		chatSvc  *mockChatService
		feed     *realtime.LocalFeed
		replayer *mockReplayer
		server   *httptest.Server
	)

	messageEvent := func(seq uint64, conversationID, id string) model.ChangeEvent {
		ev, err := realtime.NewEvent(model.TableMessages, model.ChangeInsert, model.Message{ID: id, ConversationID: conversationID})
		Expect(err).NotTo(HaveOccurred())
		ev.Sequence = seq
		return ev
	}

	BeforeEach(func() {
		chatSvc = &mockChatService{}
		feed = realtime.NewLocalFeed(16)
		replayer = &mockReplayer{}
		log := logger.Nop()

		server = httptest.NewServer(newTestRouter(handler.Handlers{
			Stream: handler.NewStreamHandler(chatSvc, feed, replayer, log),
		}))
		DeferCleanup(server.Close)
	})

	open := func(query string) (*http.Response, *bufio.Reader) {
		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/conversations/"+convID+"/stream"+query, nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer staff-token")

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			cancel()
			_ = resp.Body.Close()
		})
		return resp, bufio.NewReader(resp.Body)
	}

	It("404s for unknown conversations", func() {
		chatSvc.getFn = func(context.Context, string) (*model.Conversation, error) {
			return nil, service.ErrNotFound
		}

		resp, _ := open("")

		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("streams live changes for the conversation only", func() {
		resp, r := open("")
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(readSSE(r).Name).To(Equal("connected"))

		Expect(feed.Publish(context.Background(), messageEvent(0, "someone-else", "x1"))).To(Succeed())
		Expect(feed.Publish(context.Background(), messageEvent(0, convID, "m1"))).To(Succeed())

		ev := readSSE(r)
		Expect(ev.Name).To(Equal("change"))
		Expect(ev.ID).To(Equal("2"))
		var change model.ChangeEvent
		Expect(json.Unmarshal([]byte(ev.Data), &change)).To(Succeed())
		var msg model.Message
		Expect(change.Decode(&msg)).To(Succeed())
		Expect(msg.ID).To(Equal("m1"))
	})

	It("replays stored events after the given sequence", func() {
		replayer.SetEvents(
			messageEvent(4, convID, "old"),
			messageEvent(5, convID, "m5"),
			messageEvent(6, "someone-else", "x6"),
			messageEvent(7, convID, "m7"),
		)

		_, r := open("?after_sequence=4")
		Expect(readSSE(r).Name).To(Equal("connected"))

		Expect(readSSE(r).ID).To(Equal("5"))
		Expect(readSSE(r).ID).To(Equal("7"))

		done := readSSE(r)
		Expect(done.Name).To(Equal("replay_complete"))
		var complete handler.ReplayCompleteEvent
		Expect(json.Unmarshal([]byte(done.Data), &complete)).To(Succeed())
		Expect(complete).To(Equal(handler.ReplayCompleteEvent{LastSequence: 7, EventCount: 2}))
		Expect(replayer.Calls()).To(Equal([]uint64{4}))
	})

	It("does not repeat live messages the replay already covered", func() {
		replayer.SetEvents(messageEvent(5, convID, "m5"), messageEvent(7, convID, "m7"))

		_, r := open("?after_sequence=4")
		Expect(readSSE(r).Name).To(Equal("connected"))
		Expect(readSSE(r).ID).To(Equal("5"))
		Expect(readSSE(r).ID).To(Equal("7"))
		Expect(readSSE(r).Name).To(Equal("replay_complete"))

		// The local feed numbers these 1 to 8; only the last is past the replay.
		for i := 1; i <= 8; i++ {
			Expect(feed.Publish(context.Background(), messageEvent(0, convID, fmt.Sprintf("d%d", i)))).To(Succeed())
		}

		ev := readSSE(r)
		Expect(ev.ID).To(Equal("8"))
		var change model.ChangeEvent
		Expect(json.Unmarshal([]byte(ev.Data), &change)).To(Succeed())
		var msg model.Message
		Expect(change.Decode(&msg)).To(Succeed())
		Expect(msg.ID).To(Equal("d8"))
	})
})
