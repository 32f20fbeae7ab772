package main

import (
	"context"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
)

// sender 由 *mail.Client 实现
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// acknowledger 由 amqp.Delivery 实现
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type outcome int

const (
	outcomeAck outcome = iota
	// 消息本身有问题，重试没有意义
	outcomeDrop
	// SMTP 暂时不可用，重新入队
	outcomeRequeue
)

type worker struct {
	from        string
	sender      sender
	sendTimeout time.Duration
	logger      *slog.Logger
}

// handle 只重试一次发送失败的消息，避免一直失败的邮件在队列里无限循环
func (wk *worker) handle(ctx context.Context, body []byte, redelivered bool) outcome {
	m, err := buildMessage(wk.from, body)
	if err != nil {
		wk.logger.Error("无法构建邮件", slog.String("error", err.Error()))
		return outcomeDrop
	}

	sendCtx, cancel := context.WithTimeout(ctx, wk.sendTimeout)
	defer cancel()

	if err := wk.sender.DialAndSendWithContext(sendCtx, m); err != nil {
		if redelivered {
			wk.logger.Error("邮件重试后仍然发送失败，丢弃", slog.String("error", err.Error()))
			return outcomeDrop
		}
		wk.logger.Warn("邮件发送失败，重新入队", slog.String("error", err.Error()))
		return outcomeRequeue
	}

	return outcomeAck
}

func settle(d acknowledger, o outcome) error {
	switch o {
	case outcomeAck:
		return d.Ack(false)
	case outcomeRequeue:
		return d.Nack(false, true)
	default:
		return d.Nack(false, false)
	}
}

// run 在 ctx 取消或者通道关闭时返回
func (wk *worker) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				wk.logger.Error("消息通道已关闭")
				return
			}

			wk.logger.Info("收到消息", slog.Uint64("delivery_tag", d.DeliveryTag), slog.Bool("redelivered", d.Redelivered))
			if err := settle(d, wk.handle(ctx, d.Body, d.Redelivered)); err != nil {
				wk.logger.Error("无法确认消息", slog.String("error", err.Error()))
			}
		}
	}
}
