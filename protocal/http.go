package protocal

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"qzone-agent/configs"
	httpAdapter "qzone-agent/internal/adapters/input/http"
	"qzone-agent/internal/adapters/output/file"
	"qzone-agent/internal/adapters/output/lmstudio"
	"qzone-agent/internal/adapters/output/planner"
	"qzone-agent/internal/adapters/output/postgres"
	"qzone-agent/internal/adapters/output/qzone"
	"qzone-agent/internal/adapters/output/session"
	"qzone-agent/internal/application"
	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
	"qzone-agent/pkg/database_driver/gorm"
	"qzone-agent/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
)

type config struct {
	ENV string `mapstructure:"env"`
}

// ServeHTTP func - Wires every layer, starts the scheduler loop and serves
// the command API until interrupted.
func ServeHTTP() error {
	app := fiber.New()
	var cfg config
	flag.StringVar(&cfg.ENV, "env", "", "the environment to use")
	flag.Parse()
	configs.InitViper("./configs", cfg.ENV)
	logrus.Info(configs.GetViper().Env)
	if configs.GetViper().App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept,Authorization",
	}))

	conf := configs.GetViper()
	if err := validator.New().ValidateStruct(*conf); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	stateDir := file.DefaultStateDir(conf.Storage.StateDir)
	logrus.Info("State directory: ", stateDir)

	// Output adapters (session chain, platform client, generators, stores)
	cookieCache := file.NewCookieCache(stateDir)
	sessions := session.NewManager(buildSessionSources(conf, stateDir, cookieCache), cookieCache)
	feed := qzone.NewClient(sessions)
	llm, err := lmstudio.NewClient(conf.LLM)
	if err != nil {
		return err
	}

	chatLog, dbConGorm, err := buildChatLog(conf)
	if err != nil {
		return err
	}

	ledgerStore := file.NewLedgerStore(stateDir)
	ledger, err := application.NewLedger(processedCapacity(conf), ledgerStore)
	if err != nil {
		return err
	}
	impressions := file.NewImpressionStore(stateDir)
	diaryStore := file.NewDiaryStore(stateDir)
	scheduleStore := file.NewScheduleStore(stateDir)

	var activities output.ActivityProvider
	if conf.Planner.DBPath != "" {
		activities = planner.NewSQLiteProvider(conf.Planner.DBPath)
	}

	// Application services (use cases)
	interactions, err := application.NewInteractionService(feed, sessions, llm, impressions, ledger, conf.App.Personality, conf.Monitor)
	if err != nil {
		return err
	}
	diary := application.NewDiaryService(chatLog, llm, diaryStore, feed, sessions, conf.App.Personality, conf.Diary)
	commands := application.NewCommandService(feed, sessions, llm, llm, chatLog, diary, conf.App.Personality, conf.Send, conf.Images)
	routine, err := application.NewRoutineService(interactions, commands, diary, activities, llm, scheduleStore, conf.App.Personality, conf.Routine, conf.Schedule)
	if err != nil {
		return err
	}

	// Input adapter (HTTP handler)
	hdl := httpAdapter.New(commands)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go routine.Run(ctx)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		for range c {
			log.Println("Gracefull shut down ...")
			cancel()
			if dbConGorm != nil {
				gorm.DisconnectPostgres(dbConGorm.Postgres)
			}
			err := app.Shutdown()
			if err != nil {
				log.Println("Error when shutdown server: ", err)
			}
		}
	}()

	app.Get("/health", hdl.HealthCheck)

	magnolia := app.Group("/v1/api")
	{
		magnolia.Post("/post", hdl.SendPost)
		magnolia.Post("/post/custom", hdl.SendCustomPost)
		magnolia.Post("/diary", hdl.GenerateDiary)
		magnolia.Get("/diary", hdl.ListDiaries)
		magnolia.Get("/diary/:date", hdl.ViewDiary)
	}

	err = app.Listen(":" + conf.App.Port)
	if err != nil {
		return err
	}
	return nil
}

// buildSessionSources assembles the cookie acquisition chain in the
// configured order. An empty list gets the full default chain.
func buildSessionSources(conf *configs.Config, stateDir string, cache output.CookieCache) []output.SessionSource {
	methods := conf.Qzone.CookieMethods
	if len(methods) == 0 {
		methods = []string{"napcat", "clientkey", "qrcode", "local"}
	}

	var sources []output.SessionSource
	for _, method := range methods {
		switch method {
		case "napcat":
			sources = append(sources, session.NewNapcatSource(conf.Napcat.BaseURL, conf.Napcat.Token))
		case "clientkey":
			sources = append(sources, session.NewClientKeySource(conf.Napcat.BaseURL, conf.Napcat.Token, conf.Qzone.Uin))
		case "qrcode":
			sources = append(sources, session.NewQRCodeSource(stateDir, time.Duration(conf.Qzone.QRWaitSeconds)*time.Second))
		case "local":
			sources = append(sources, session.NewLocalSource(cache))
		default:
			logrus.Warnf("Unknown cookie method %q, skipping", method)
		}
	}
	return sources
}

// buildChatLog connects the chat history store; with postgres disabled the
// diary and custom-post features see an empty history instead of failing.
func buildChatLog(conf *configs.Config) (output.ChatLogStore, *gorm.DB, error) {
	if !conf.Postgres.Enabled {
		logrus.Info("Postgres disabled, chat history features run empty")
		return emptyChatLog{}, nil, nil
	}

	dbConGorm, err := gorm.ConnectToPostgreSQL(
		conf.Postgres.Host,
		conf.Postgres.Port,
		conf.Postgres.Username,
		conf.Postgres.Password,
		conf.Postgres.DbName,
		conf.Postgres.SSLMode,
	)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewChatLogStore(dbConGorm.Postgres), dbConGorm, nil
}

func processedCapacity(conf *configs.Config) int {
	if conf.Monitor.ProcessedCapacity > 0 {
		return conf.Monitor.ProcessedCapacity
	}
	return 100
}

// emptyChatLog stands in when no chat history backend is configured.
type emptyChatLog struct{}

var _ output.ChatLogStore = emptyChatLog{}

func (emptyChatLog) MessagesBetween(context.Context, time.Time, time.Time, output.ChatFilter) ([]domain.ChatMessage, error) {
	return nil, nil
}

func (emptyChatLog) LatestPrivate(context.Context, string, bool) (*domain.ChatMessage, error) {
	return nil, nil
}
