package kafka

import (
	"Agora/internal/api/config"
	"Agora/internal/pkg/event"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventProducer_KeyedByActor(t *testing.T) {
	mp := mocks.NewSyncProducer(t, newSaramaConfig(config.KafkaConfig{}))
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "42" {
			return errors.New("unexpected key " + string(key))
		}
		if msg.Topic != "community-events" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		return nil
	})
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewEventProducerWith(mp, "community-events")
	evt := event.New(event.Followed, 42, "alice")
	evt.TargetUserID = 7

	require.NoError(t, p.Publish(context.Background(), evt))
	assert.ErrorIs(t, p.Publish(context.Background(), evt), sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "test" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg)
}

type fakeClaim struct {
	ch chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "community-events" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

type recordingHandler struct {
	mu       sync.Mutex
	failOnce map[string]bool
	got      []string
}

func (h *recordingHandler) HandleEvent(_ context.Context, evt *event.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failOnce[evt.ID] {
		delete(h.failOnce, evt.ID)
		return errors.New("store unavailable")
	}
	h.got = append(h.got, evt.ID)
	return nil
}

func TestNotificationHandler_ConsumeClaim(t *testing.T) {
	a := event.New(event.PostLiked, 1, "a")
	b := event.New(event.Followed, 2, "b")
	handler := &recordingHandler{failOnce: map[string]bool{b.ID: true}}

	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 3)}
	for i, v := range [][]byte{mustJSON(t, a), []byte("not json"), mustJSON(t, b)} {
		claim.ch <- &sarama.ConsumerMessage{Topic: "community-events", Offset: int64(i), Value: v}
	}
	close(claim.ch)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, NewNotificationHandler(handler).ConsumeClaim(session, claim))

	assert.ElementsMatch(t, []string{a.ID, b.ID}, handler.got)
	require.Len(t, session.marked, 1)
	assert.EqualValues(t, 2, session.marked[0].Offset)
}

func TestToEvent_RejectsIncomplete(t *testing.T) {
	_, err := ToEvent(&sarama.ConsumerMessage{Value: []byte(`{"type":"followed"}`)})
	assert.ErrorIs(t, err, errSkip)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
