package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFavoriteToggled(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	p := NewPublisherWithProducer(producer)
	p.now = func() time.Time { return fixed }

	var got FavoriteToggledEvent
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		return json.Unmarshal(val, &got)
	})

	err := p.PublishFavoriteToggled(context.Background(), FavoriteToggledEvent{
		UserKey:    "u1",
		FundCode:   "03311081",
		IsFavorite: true,
		Source:     "durable",
		Outcome:    "success",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, got.EventID)
	assert.Equal(t, EventTypeFavoriteToggled, got.EventType)
	assert.Equal(t, "u1", got.UserKey)
	assert.Equal(t, "03311081", got.FundCode)
	assert.True(t, got.IsFavorite)
	assert.True(t, fixed.Equal(got.Timestamp))
}

func TestPublishFavoriteToggled_SendFails(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := NewPublisherWithProducer(producer).PublishFavoriteToggled(context.Background(), FavoriteToggledEvent{FundCode: "A"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func message(eventType string, value []byte) *sarama.ConsumerMessage {
	msg := &sarama.ConsumerMessage{Topic: TopicFavoriteToggled, Value: value}
	if eventType != "" {
		msg.Headers = []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
			{Key: []byte("event_id"), Value: []byte("evt-1")},
		}
	}
	return msg
}

func TestConsumerHandleMessage(t *testing.T) {
	c := newConsumer([]string{TopicFavoriteToggled})

	var handled []FavoriteToggledEvent
	c.RegisterHandler(EventTypeFavoriteToggled, func(_ context.Context, e FavoriteToggledEvent) error {
		handled = append(handled, e)
		return nil
	})

	body, err := json.Marshal(FavoriteToggledEvent{EventID: "evt-1", FundCode: "A", IsFavorite: true})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.handleMessage(ctx, message(EventTypeFavoriteToggled, body)))
	require.Len(t, handled, 1)
	assert.Equal(t, "A", handled[0].FundCode)

	assert.ErrorIs(t, c.handleMessage(ctx, message("", body)), errNoEventType)
	assert.Error(t, c.handleMessage(ctx, message("fund.unknown", body)))
	assert.Error(t, c.handleMessage(ctx, message(EventTypeFavoriteToggled, []byte("{"))))
	assert.Len(t, handled, 1)
}

func TestConsumerHandleMessage_HandlerError(t *testing.T) {
	c := newConsumer(nil)
	boom := errors.New("boom")
	c.RegisterHandler(EventTypeFavoriteToggled, func(context.Context, FavoriteToggledEvent) error { return boom })

	err := c.handleMessage(context.Background(), message(EventTypeFavoriteToggled, []byte(`{}`)))
	assert.ErrorIs(t, err, boom)
}
