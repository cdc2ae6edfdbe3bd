package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	xerrors "ProofBench/internal/errors"
	"ProofBench/pkg/logger"
)

// Channel 表示通知渠道。
type Channel string

// 支持的通知渠道
const (
	ChannelLog     Channel = "log"
	ChannelWebhook Channel = "webhook"
)

// Event 描述一次需要告警的事件。
type Event struct {
	Code       xerrors.Code      `json:"code"`
	Message    string            `json:"message"`
	Severity   xerrors.Severity  `json:"severity"`
	Method     string            `json:"method,omitempty"`
	Path       string            `json:"path,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// FromError 根据统一错误构造告警事件，未识别的错误按 INTERNAL_ERROR 处理。
func FromError(err error, method, path string, at time.Time) Event {
	event := Event{
		Code:       xerrors.CodeOf(err),
		Severity:   xerrors.SeverityOf(err),
		Method:     method,
		Path:       path,
		OccurredAt: at.UTC(),
	}
	if e, ok := xerrors.From(err); ok {
		event.Message = e.Message()
		event.Metadata = e.Metadata()
	}
	if err != nil {
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		event.Metadata["error"] = err.Error()
		if event.Message == "" {
			event.Message = xerrors.AttributesOf(event.Code).Message
		}
	}
	return event
}

// Notifier 负责将事件发送到指定渠道。
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

// Dispatcher 将事件广播给多个通知器。
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// FanoutDispatcher 实现将事件投递到多个通知器的逻辑。
type FanoutDispatcher struct {
	notifiers map[Channel]Notifier
}

// NewFanout 创建一个新的 FanoutDispatcher。
func NewFanout(notifiers ...Notifier) *FanoutDispatcher {
	set := make(map[Channel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		set[n.Channel()] = n
	}
	return &FanoutDispatcher{notifiers: set}
}

// Channels 返回已注册的渠道，按名称排序。
func (d *FanoutDispatcher) Channels() []Channel {
	if d == nil {
		return nil
	}
	channels := make([]Channel, 0, len(d.notifiers))
	for ch := range d.notifiers {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// Notify 将事件广播至所有注册渠道。
func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", notifier.Channel(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogNotifier 将告警写入结构化日志。
type LogNotifier struct {
	Logger *slog.Logger
}

// Channel 返回日志渠道。
func (n *LogNotifier) Channel() Channel { return ChannelLog }

// Notify 记录一条 ERROR 级别日志。
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	l := logger.Named("alerting")
	if n != nil && n.Logger != nil {
		l = n.Logger
	}
	attrs := []any{
		slog.String("code", string(event.Code)),
		slog.String("severity", string(event.Severity)),
		slog.String("message", event.Message),
		slog.String("method", event.Method),
		slog.String("path", event.Path),
		slog.Time("occurred_at", event.OccurredAt),
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String("meta."+k, v))
	}
	l.Error("alert", attrs...)
	return nil
}

// WebhookNotifier 以 JSON POST 的方式推送告警。
type WebhookNotifier struct {
	URLs   []string
	Client *http.Client
}

// Channel 返回 Webhook 渠道。
func (n *WebhookNotifier) Channel() Channel { return ChannelWebhook }

// Notify 向每个地址投递事件，单个地址失败不影响其他地址。
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || len(n.URLs) == 0 {
		logger.L().Warn("WebhookNotifier 未配置地址，跳过发送", slog.String("code", string(event.Code)))
		return nil
	}
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化告警失败: %w", err)
	}
	var errs []error
	for _, url := range n.URLs {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if err := post(ctx, client, url, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
		}
	}
	return errors.Join(errs...)
}

func post(ctx context.Context, client *http.Client, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
