package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

const mailQueue = "email_queue"

// notifyChangedMembers 通知可用度被他人修改的成员。通知失败不影响本次更新
func (h *Handler) notifyChangedMembers(ctx context.Context, principal *domain.Principal, project *domain.Project, changed []domain.AvailabilityRecord) {
	if h.mailChannel == nil {
		return
	}

	changesByUser := make(map[string][]domain.ChangedCell)
	order := make([]string, 0)
	for _, record := range changed {
		if record.Username == principal.Username {
			continue
		}
		if _, ok := changesByUser[record.Username]; !ok {
			order = append(order, record.Username)
		}
		changesByUser[record.Username] = append(changesByUser[record.Username], domain.ChangedCell{
			Date:         record.Date.String(),
			Availability: record.Availability.StringFixed(2),
		})
	}

	for _, username := range order {
		user, err := h.repository.GetUserByUsername(ctx, username)
		if err != nil {
			slog.Warn("无法获取被修改用户的信息", "username", username, "error", err)
			continue
		}
		if user.Email == "" {
			continue
		}

		mail := domain.MailMessage{
			Type: "availability_changed",
			To:   user.Email,
			Data: domain.AvailabilityChangedMailData{
				FullName:    user.FullName,
				ProjectName: project.Name,
				ChangedBy:   principal.Username,
				Changes:     changesByUser[username],
			},
		}
		if err := h.publishMail(ctx, &mail); err != nil {
			slog.Error("无法发送可用度变更通知", "to", user.Email, "error", err)
		}
	}
}

func (h *Handler) publishMail(ctx context.Context, mail *domain.MailMessage) error {
	body, err := json.Marshal(mail)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.mailChannel.PublishWithContext(publishCtx, "", mailQueue, true, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
