package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/client"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/config"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		lg.Fatal("BOT_TOKEN is not set")
	}
	chats, err := parseChatIDs(os.Getenv("ADMIN_CHAT_IDS"))
	if err != nil || len(chats) == 0 {
		lg.Fatal("ADMIN_CHAT_IDS must list at least one chat id", zap.Error(err))
	}
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:" + cfg.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := &moderator{
		api:      client.New(apiURL),
		email:    os.Getenv("BOT_ADMIN_EMAIL"),
		password: os.Getenv("BOT_ADMIN_PASSWORD"),
		allowed:  chats,
		log:      lg.Named("bot"),
	}
	if err := m.login(ctx); err != nil {
		lg.Fatal("login to api", zap.Error(err))
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		lg.Fatal("telegram", zap.Error(err))
	}
	m.bot = bot
	lg.Info("bot started", zap.String("username", bot.Self.UserName), zap.String("api", apiURL))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return
		case update := <-updates:
			m.handle(ctx, update)
		}
	}
}
