package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"campuscoin/internal/infrastructure/mq"
	"campuscoin/internal/model"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapHTML(t *testing.T) {
	assert.Equal(t, "<strong>Hello &lt;b&gt; &amp; you</strong>", WrapHTML("Hello <b> & you"))
}

func TestKafkaNotifier_Send(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var req MailRequest
		if err := json.Unmarshal(val, &req); err != nil {
			return err
		}
		if req.To != "ana@school.edu" || req.Subject != "Advantage redeemed" {
			return errors.New("unexpected mail request")
		}
		if req.HTML != "<strong>Hello Ana</strong>" {
			return errors.New("body not wrapped")
		}
		return nil
	})

	n := NewKafkaNotifier(mq.NewPublisher(producer), "campuscoin.mail")
	err := n.Send(context.Background(), "ana@school.edu", "Advantage redeemed", "Hello Ana")
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestKafkaNotifier_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	n := NewKafkaNotifier(mq.NewPublisher(producer), "campuscoin.mail")
	err := n.Send(context.Background(), "ana@school.edu", "s", "b")
	assert.True(t, errors.Is(err, model.ErrNotifierFailure))
	require.NoError(t, producer.Close())
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Send(context.Context, string, string, string) error {
	f.calls++
	return errors.New("smtp down")
}

func TestBreakerNotifier_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingNotifier{}
	b := NewBreakerNotifier(inner, 3, time.Minute, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := b.Send(ctx, "x@y", "s", "b")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Send(ctx, "x@y", "s", "b")
	assert.True(t, errors.Is(err, model.ErrNotifierFailure))
	assert.True(t, errors.Is(err, model.ErrNotifierUnavailable))
	assert.Equal(t, 3, inner.calls)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(zerolog.Nop())
	assert.NoError(t, n.Send(context.Background(), "a@b", "s", "b"))
}
