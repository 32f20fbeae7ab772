package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/config"
	"github.com/wneessen/go-mail"
)

const mailQueue = "email_queue"

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := newMailClient(cfg)
	if err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	/**********************************************
	 * 连接 RabbitMQ 并开始消费
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	deliveries, err := consume(ch, cfg.RabbitMQ.Prefetch)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	wk := &worker{
		from:        cfg.Email.SMTP.Username,
		sender:      client,
		sendTimeout: time.Duration(cfg.Email.SMTP.SendTimeout) * time.Second,
		logger:      logger,
	}

	// 用于关闭 goroutine 的上下文
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		wk.run(ctx, deliveries)
	}()

	// 等待 CTRL+C 信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-sigChan

	// 优雅退出
	logger.Info("正在关闭 mail worker...")
	cancel()
	wg.Wait()
	logger.Info("mail worker 已成功关闭")
}

func newMailClient(cfg *config.Config) (*mail.Client, error) {
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		return nil, err
	}

	// 启动时先连一次，尽早发现配置错误
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(ctx); err != nil {
		return nil, err
	}

	return client, nil
}

// consume 声明持久化队列并手动确认消息，每次最多预取 prefetch 条
func consume(ch *amqp.Channel, prefetch int) (<-chan amqp.Delivery, error) {
	q, err := ch.QueueDeclare(mailQueue, true, false, false, false, nil)
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(max(prefetch, 1), 0, false); err != nil {
		return nil, err
	}

	return ch.Consume(q.Name, "", false, false, false, false, nil)
}
