// Package telegram runs one agent against the Telegram Bot API: a long-poll
// update loop, per-chat worker queues, and the transport adapter the
// pipeline delivers through.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreaminglucid/eliza/actions"
	"github.com/dreaminglucid/eliza/agent"
	"github.com/dreaminglucid/eliza/character"
	"github.com/dreaminglucid/eliza/guard"
	"github.com/dreaminglucid/eliza/internal/bus"
	runtimeworker "github.com/dreaminglucid/eliza/internal/channelruntime/worker"
	"github.com/dreaminglucid/eliza/llm"
	"github.com/dreaminglucid/eliza/store"
)

type Options struct {
	BotToken          string
	BaseURL           string
	PollTimeout       time.Duration
	WorkerConcurrency int
	RecentMessages    int

	AgentID   string
	Character character.Character
	Store     *store.Store
	Guard     *guard.Guard
	LLM       llm.Client
	Actions   *actions.Registry
	Describer agent.ImageDescriber
	Logger    *slog.Logger

	HTTPClient *http.Client
}

// apiSender adapts the bot API to the pipeline's Sender contract.
type apiSender struct {
	api *botAPI
}

func (s *apiSender) Send(ctx context.Context, chatID, text, replyToMessageID string) (bus.SentMessage, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return bus.SentMessage{}, fmt.Errorf("parse chat id %q: %w", chatID, err)
	}
	var replyTo int64
	if replyToMessageID != "" {
		replyTo, err = strconv.ParseInt(replyToMessageID, 10, 64)
		if err != nil {
			return bus.SentMessage{}, fmt.Errorf("parse reply-to id %q: %w", replyToMessageID, err)
		}
	}
	sent, err := s.api.sendMessage(ctx, id, text, replyTo)
	if err != nil {
		return bus.SentMessage{}, err
	}
	return bus.SentMessage{
		MessageID: strconv.FormatInt(sent.MessageID, 10),
		Text:      text,
		SentAt:    time.Unix(sent.Date, 0),
	}, nil
}

// Run starts the update loop and blocks until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	token := strings.TrimSpace(opts.BotToken)
	if token == "" {
		return fmt.Errorf("missing telegram.bot_token")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	concurrency := opts.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := newBotAPI(opts.HTTPClient, baseURL, token)

	var me *user
	for {
		var err error
		me, err = api.getMe(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil
		}
		logger.Warn("getMe failed, retrying", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(3 * time.Second):
		}
	}

	pipeline, err := agent.NewPipeline(agent.Config{
		AgentID:         opts.AgentID,
		AgentExternalID: strconv.FormatInt(me.ID, 10),
		AgentUsername:   me.Username,
		Source:          "telegram",
		RecentMessages:  opts.RecentMessages,
	}, opts.Character, agent.Deps{
		Store:     opts.Store,
		Guard:     opts.Guard,
		LLM:       opts.LLM,
		Sender:    &apiSender{api: api},
		Describer: opts.Describer,
		Actions:   opts.Actions,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	pool := runtimeworker.NewPool[string](workersCtx, concurrency, 16,
		func(ctx context.Context, msg bus.InboundMessage) {
			if err := pipeline.HandleMessage(ctx, msg); err != nil {
				logger.Error("pipeline failed", "message_id", msg.MessageID, "error", err)
			}
		})
	enqueue := func(msg bus.InboundMessage) {
		if err := pool.Enqueue(ctx, msg.ChatID, msg); err != nil {
			logger.Warn("enqueue failed", "chat_id", msg.ChatID, "error", err)
		}
	}

	logger.Info("telegram runtime started",
		"bot_username", me.Username,
		"poll_timeout", pollTimeout.String(),
		"worker_concurrency", concurrency,
	)

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, nextOffset, err := api.getUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			if !isPollTimeoutError(err) {
				logger.Warn("getUpdates failed", "error", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(2 * time.Second):
				}
			}
			continue
		}
		offset = nextOffset

		for _, u := range updates {
			msg, ok := normalizeMessage(u.Message)
			if !ok {
				continue
			}
			if fileID := imageFileID(u.Message); fileID != "" {
				if url, ferr := api.fileURL(ctx, fileID); ferr != nil {
					logger.Warn("file resolution failed", "message_id", msg.MessageID, "error", ferr)
				} else {
					msg.ImageURL = url
				}
			}
			enqueue(msg)
		}
	}
}
