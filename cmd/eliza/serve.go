package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dreaminglucid/eliza/actions"
	"github.com/dreaminglucid/eliza/character"
	"github.com/dreaminglucid/eliza/integration"
	telegramruntime "github.com/dreaminglucid/eliza/internal/channelruntime/telegram"
	"github.com/dreaminglucid/eliza/internal/logutil"
	"github.com/dreaminglucid/eliza/internal/pathutil"
	"github.com/dreaminglucid/eliza/providers/openai"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent gateway: restore the snapshot, serve transports, snapshot again on shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	_ = viper.BindPFlag("telegram.bot_token", cmd.Flags().Lookup("telegram-bot-token"))
	cmd.Flags().String("character", "", "Path to the agent character YAML.")
	_ = viper.BindPFlag("agent.character_path", cmd.Flags().Lookup("character"))
	cmd.Flags().String("admin-listen", "", "Admin HTTP listen address.")
	_ = viper.BindPFlag("admin.listen", cmd.Flags().Lookup("admin-listen"))

	return cmd
}

func runServe(parent context.Context) error {
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	client := openai.New(
		viper.GetString("llm.endpoint"),
		viper.GetString("llm.api_key"),
		viper.GetString("llm.model"),
	)
	if timeout := viper.GetDuration("llm.request_timeout"); timeout > 0 {
		client.HTTP = &http.Client{Timeout: timeout}
	}

	runtime, err := integration.New(integration.Config{
		LLM:          client,
		SnapshotPath: pathutil.ExpandHomePath(viper.GetString("snapshot.path")),
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if err := runtime.RestoreFromDisk(); err != nil {
		return err
	}

	agentName := strings.TrimSpace(viper.GetString("agent.name"))
	if agentName == "" {
		agentName = "eliza"
	}
	char, err := loadCharacter(agentName)
	if err != nil {
		return err
	}
	if _, ok := runtime.AgentStatus(agentName); !ok {
		if err := runtime.CreateAgent(agentName, char, map[string]any{
			"character": map[string]any{"name": char.Name, "username": char.Username},
		}); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adminSrv := &http.Server{
		Addr:    viper.GetString("admin.listen"),
		Handler: runtime.Handler(),
	}
	adminErr := make(chan error, 1)
	go func() {
		logger.Info("admin listening", "addr", adminSrv.Addr)
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			adminErr <- err
		}
	}()

	telegramErr := make(chan error, 1)
	if viper.GetBool("telegram.enabled") {
		res, ok := runtime.AgentResources(agentName)
		if !ok {
			return fmt.Errorf("agent %q not registered", agentName)
		}
		registry := actions.NewRegistry()
		if err := registry.Register(actions.NewMuteRoom(agentName, res.Store)); err != nil {
			return err
		}
		go func() {
			telegramErr <- telegramruntime.Run(ctx, telegramruntime.Options{
				BotToken:          viper.GetString("telegram.bot_token"),
				BaseURL:           viper.GetString("telegram.base_url"),
				PollTimeout:       viper.GetDuration("telegram.poll_timeout"),
				WorkerConcurrency: viper.GetInt("telegram.worker_concurrency"),
				RecentMessages:    viper.GetInt("agent.recent_messages"),
				AgentID:           agentName,
				Character:         res.Character,
				Store:             res.Store,
				Guard:             res.Guard,
				LLM:               client,
				Actions:           registry,
				Describer:         client,
				Logger:            logger,
			})
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-adminErr:
		return fmt.Errorf("admin server: %w", err)
	case err := <-telegramErr:
		if err != nil {
			return fmt.Errorf("telegram runtime: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin shutdown failed", "error", err)
	}

	// Snapshot failure must surface as a hard error: restarting without a
	// snapshot would lose all conversational state.
	if err := runtime.SaveToDisk(); err != nil {
		return err
	}
	return nil
}

func loadCharacter(agentName string) (character.Character, error) {
	path := strings.TrimSpace(viper.GetString("agent.character_path"))
	if path == "" {
		return character.Parse([]byte(fmt.Sprintf("name: %s\nusername: %s\n", agentName, agentName)))
	}
	return character.Load(pathutil.ExpandHomePath(path))
}
