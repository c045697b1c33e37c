// Package notify 负责把兑换通知投递出去。
//
// 投递发生在账本事务提交之后，由 job.OutboxSender 调用；
// 任何投递失败都不会影响已经提交的账本变更。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"

	"campuscoin/internal/infrastructure/mq"
	"campuscoin/internal/model"

	"github.com/rs/zerolog"
)

// Notifier 发送一封邮件通知
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// WrapHTML 转义正文并加粗
func WrapHTML(body string) string {
	return "<strong>" + html.EscapeString(body) + "</strong>"
}

// MailRequest 是写入 Kafka 的邮件请求，由下游邮件服务消费
type MailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// ============================================================================
// KafkaNotifier
// ============================================================================

type KafkaNotifier struct {
	publisher *mq.Publisher
	topic     string
}

func NewKafkaNotifier(publisher *mq.Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, topic: topic}
}

func (n *KafkaNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(MailRequest{To: to, Subject: subject, HTML: WrapHTML(body)})
	if err != nil {
		return fmt.Errorf("%w: 序列化邮件失败: %v", model.ErrNotifierFailure, err)
	}

	// 按收件人分区，同一收件人的通知保持顺序
	if err := n.publisher.Publish(n.topic, to, payload); err != nil {
		return fmt.Errorf("%w: 发送 Kafka 消息失败: %v", model.ErrNotifierFailure, err)
	}
	return nil
}

// ============================================================================
// LogNotifier 本地开发用，只打日志
// ============================================================================

type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "LogNotifier").Logger()}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("html", WrapHTML(body)).
		Msg("邮件通知")
	return nil
}
