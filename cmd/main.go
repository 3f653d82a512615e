package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"github.com/cupitman9/family-budget-bot/internal/analysis"
	"github.com/cupitman9/family-budget-bot/internal/bot"
	"github.com/cupitman9/family-budget-bot/internal/chart"
	"github.com/cupitman9/family-budget-bot/internal/config"
	"github.com/cupitman9/family-budget-bot/internal/conversation"
	"github.com/cupitman9/family-budget-bot/internal/logger"
	"github.com/cupitman9/family-budget-bot/internal/reminder"
	"github.com/cupitman9/family-budget-bot/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("error loading configuration: %v", err)
	}
	appLogger := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, closeLedger := openLedger(ctx, cfg, appLogger)
	defer closeLedger()

	var analyst conversation.Analyst
	if cfg.Gemini.APIKey != "" {
		gemini, err := analysis.NewGemini(ctx, analysis.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		}, appLogger)
		if err != nil {
			appLogger.Fatalf("unable to create gemini client: %v", err)
		}
		analyst = gemini
	} else {
		appLogger.Warn("GEMINI_API_KEY is not set, AI features are disabled")
	}

	machine := conversation.NewMachine(ledger, analyst, chart.NewRenderer(),
		conversation.NewSessions(cfg.SessionTTL),
		conversation.Options{
			Taxonomy:        taxonomyFrom(cfg),
			AllowedUsers:    cfg.AllowedUsers,
			PrimaryOwner:    cfg.PrimaryOwner,
			Location:        cfg.Location(),
			ExternalTimeout: cfg.Gemini.Timeout,
		}, appLogger)

	botAPI, err := telebot.NewBot(telebot.Settings{
		Token:       cfg.BotToken,
		Poller:      &telebot.LongPoller{Timeout: cfg.PollTimeout},
		Synchronous: true,
		Verbose:     cfg.BotDebug,
		OnError: func(err error, c telebot.Context) {
			entry := appLogger.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("userId", c.Sender().ID)
			}
			entry.Error("telegram error")
		},
	})
	if err != nil {
		appLogger.Fatalf("error creating bot instance: %v", err)
	}

	sender := bot.NewSender(botAPI, appLogger)
	mailbox := conversation.NewMailbox(ctx, 16, bot.Dispatch(machine, sender, appLogger))
	bot.RegisterHandlers(ctx, botAPI, machine, mailbox, appLogger)

	marks, closeMarks := openWatermarks(ctx, cfg, appLogger)
	defer closeMarks()

	scheduler := reminder.NewScheduler(ledger, sender, marks, reminder.Options{
		Interval:     cfg.Reminder.Interval,
		Offsets:      cfg.Reminder.Offsets,
		Recipient:    cfg.Reminder.Recipient,
		PrimaryOwner: cfg.PrimaryOwner,
		Location:     cfg.Location(),
	}, appLogger)
	go scheduler.Run(ctx)

	go func() {
		<-ctx.Done()
		appLogger.Info("shutting down")
		botAPI.Stop()
	}()

	appLogger.Info("bot start")
	botAPI.Start()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mailbox.Stop(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("pending updates were dropped")
	}
	appLogger.Info("bot stopped")
}

func openLedger(ctx context.Context, cfg *config.Config, appLogger *logrus.Logger) (storage.Ledger, func()) {
	if cfg.StorageDriver == config.DriverMemory {
		appLogger.Warn("using in-memory storage, data is lost on restart")
		return storage.NewMemory(), func() {}
	}

	dsn := cfg.PostgresDSN()
	if err := storage.Migrate(dsn, appLogger); err != nil {
		appLogger.Fatalf("unable to migrate database: %v", err)
	}
	storageInstance, err := storage.NewStorage(ctx, dsn)
	if err != nil {
		appLogger.Fatalf("unable to connect to database: %v", err)
	}
	return storageInstance, storageInstance.Close
}

func openWatermarks(ctx context.Context, cfg *config.Config, appLogger *logrus.Logger) (reminder.Watermarks, func()) {
	if cfg.Redis.Addr == "" {
		return reminder.NewMemoryWatermarks(), func() {}
	}

	marks, err := reminder.NewRedisWatermarks(ctx, reminder.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.WithError(err).Warn("redis is unavailable, reminder watermarks are kept in memory")
		return reminder.NewMemoryWatermarks(), func() {}
	}
	return marks, func() {
		if err := marks.Close(); err != nil {
			appLogger.WithError(err).Warn("error closing redis")
		}
	}
}

func taxonomyFrom(cfg *config.Config) conversation.Taxonomy {
	tax := conversation.DefaultTaxonomy()
	if len(cfg.IncomeCategories) > 0 {
		tax.Income = categoriesFrom(cfg.IncomeCategories)
	}
	if len(cfg.ExpenseCategories) > 0 {
		tax.Expense = categoriesFrom(cfg.ExpenseCategories)
	}
	return tax
}

func categoriesFrom(in []config.CategoryConfig) []conversation.Category {
	out := make([]conversation.Category, 0, len(in))
	for _, c := range in {
		out = append(out, conversation.Category{Name: c.Name, Subcategories: c.Subcategories})
	}
	return out
}
