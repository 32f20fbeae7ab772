package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

type mailTemplate struct {
	file    string
	subject string
	// 把 MailMessage.Data 重新解码为模板需要的类型
	decode func(raw json.RawMessage) (any, error)
}

var mailTemplates = map[string]mailTemplate{
	"availability_changed": {
		file:    "templates/availability_changed_email.html",
		subject: "ECNC 团队日历 - 可用度变更通知",
		decode: func(raw json.RawMessage) (any, error) {
			var data domain.AvailabilityChangedMailData
			if err := json.Unmarshal(raw, &data); err != nil {
				return nil, err
			}
			return data, nil
		},
	},
}

type queuedMail struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// buildMessage 根据队列中的消息构建邮件，返回的错误都不值得重试
func buildMessage(from string, body []byte) (*mail.Msg, error) {
	var queued queuedMail
	if err := json.Unmarshal(body, &queued); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	mt, ok := mailTemplates[queued.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的邮件类型: %s", queued.Type)
	}

	data, err := mt.decode(queued.Data)
	if err != nil {
		return nil, fmt.Errorf("邮件数据格式错误: %w", err)
	}

	tmpl, err := template.ParseFS(templateFS, mt.file)
	if err != nil {
		return nil, fmt.Errorf("无法解析邮件模板: %w", err)
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := m.To(queued.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	if err := m.SetBodyHTMLTemplate(tmpl, data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	m.Subject(mt.subject)

	return m, nil
}
