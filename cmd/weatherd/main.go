package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/openweather-panel/internal/app"
	"github.com/smukkama/openweather-panel/internal/cache"
	"github.com/smukkama/openweather-panel/internal/connection"
	"github.com/smukkama/openweather-panel/internal/database"
	"github.com/smukkama/openweather-panel/internal/location"
	"github.com/smukkama/openweather-panel/internal/notification"
	"github.com/smukkama/openweather-panel/internal/owm"
	"github.com/smukkama/openweather-panel/internal/pipeline"
	"github.com/smukkama/openweather-panel/internal/queue"
	"github.com/smukkama/openweather-panel/internal/render"
	"github.com/smukkama/openweather-panel/internal/server"
	"github.com/smukkama/openweather-panel/internal/timer"
	"github.com/smukkama/openweather-panel/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Starting weatherd...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open location store: %v", err)
	}
	defer closeStore()

	if migrated, err := location.Migrate(ctx, cfg.Locations.Legacy, cfg.Locations.Active, store); err != nil {
		log.Printf("Legacy location import: %v", err)
	} else if migrated {
		log.Println("Imported legacy WEATHER_LOCATIONS")
	}

	var snapshots pipeline.SnapshotCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable, running without snapshot cache: %v", err)
		} else {
			snapshots = cache.NewSnapshotStore(redisClient, cfg.Redis.TTL)
			log.Println("Connected to Redis")
		}
	}

	provider := newProvider(cfg)

	scheduler := timer.NewScheduler(4)
	scheduler.Start()
	defer scheduler.Stop()

	displays := []pipeline.Display{logDisplay{}}
	notifiers := []pipeline.Notifier{notification.LogNotifier{}}

	var feed *server.FeedServer
	connManager := connection.NewManager(cfg.Feed.MaxConnections)
	if cfg.Feed.Enabled {
		feed = server.NewFeedServer(&cfg.Feed, connManager, scheduler, nil)
		displays = append(displays, feed)
		notifiers = append(notifiers, feed)
	}

	var (
		publisher *queue.PanelPublisher
		producer  *queue.Producer
		consumer  *queue.Consumer
	)
	if cfg.Kafka.Enabled {
		if err := queue.EnsureTopics(cfg.Kafka.Brokers, 1, 1, cfg.Kafka.TopicPanel, cfg.Kafka.TopicCommands); err != nil {
			log.Printf("Note: Topic creation failed: %v", err)
		}
		producer = queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPanel)
		publisher = queue.NewPanelPublisher(producer, 10, time.Second)
		publisher.Start(ctx)
		displays = append(displays, publisher)
		notifiers = append(notifiers, publisher)
		consumer = queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCommands, cfg.Kafka.GroupID)
	}

	prober, err := pipeline.NewNetProber(cfg.OWM.BaseURL)
	if err != nil {
		log.Fatalf("Invalid OWM_BASE_URL: %v", err)
	}

	settings, err := app.SettingsFromConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	weather := pipeline.New(pipeline.Config{
		Provider:  provider,
		Display:   pipeline.MultiDisplay(displays...),
		Notifier:  notification.NewDeduplicator(notification.Multi(notifiers...), 10*time.Second),
		Scheduler: scheduler,
		Prober:    prober,
		Cache:     snapshots,
		Settings:  settings,
	})
	svc := app.NewService(store, weather)

	if err := svc.Reload(ctx); err != nil {
		log.Printf("Failed to apply active location: %v", err)
	}

	if feed != nil {
		feed.SetHandler(svc)
		if err := feed.Start(); err != nil {
			log.Fatalf("Failed to start feed server: %v", err)
		}
	}

	if consumer != nil {
		go func() {
			if err := queue.NewCommandConsumer(consumer, svc).Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Command consumer stopped: %v", err)
			}
		}()
	}

	weather.Start(ctx)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lag := int64(-1)
				if consumer != nil {
					lag = consumer.Lag()
				}
				log.Print(statsLine(weather.Connected(), connManager.Stats(), scheduler.Stats(), lag))
			}
		}
	}()

	log.Printf("weatherd is running (pipeline %s)", weather.ID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			log.Println("Network change reported")
			svc.NetworkChanged()

		case syscall.SIGHUP:
			log.Println("Reloading configuration and locations")
			cfg = reload(ctx, cfg, svc, weather)

		default:
			log.Println("Shutting down gracefully...")
			weather.Stop()
			cancel()
			if feed != nil {
				feed.Stop()
			}
			if publisher != nil {
				publisher.Stop()
				producer.Close()
			}
			if consumer != nil {
				consumer.Close()
			}
			log.Println("weatherd stopped")
			return
		}
	}
}

// statsLine summarizes daemon state for the periodic log. A negative
// commandLag means the command consumer is disabled.
func statsLine(connected bool, conns connection.ManagerStats, timers timer.Stats, commandLag int64) string {
	clients := make([]string, 0, len(conns.ByClient))
	for client, n := range conns.ByClient {
		clients = append(clients, fmt.Sprintf("%s=%d", client, n))
	}
	sort.Strings(clients)

	line := fmt.Sprintf("Stats: connected=%v subscribers=%d/%d clients=[%s] pending_timers=%d fired_timers=%d",
		connected, conns.TotalConnections, conns.MaxConnections, strings.Join(clients, " "),
		timers.Pending, timers.Fired)
	if commandLag >= 0 {
		line += fmt.Sprintf(" command_lag=%d", commandLag)
	}
	return line
}

func newProvider(cfg *config.Config) *owm.Client {
	return owm.NewClient(
		owm.APIKey(cfg.OWM.APIKey, cfg.OWM.UseDefaultKey),
		owm.WithBaseURL(cfg.OWM.BaseURL),
		owm.WithUserAgent(owm.UserAgent(cfg.App.ID, cfg.App.Version)),
		owm.WithRateLimit(cfg.OWM.RateLimit, cfg.OWM.RateBurst),
	)
}

// providerChanged reports whether the OWM client must be rebuilt.
// ProviderTranslations is a pipeline setting and does not count.
func providerChanged(old, cur config.OWMConfig) bool {
	old.ProviderTranslations, cur.ProviderTranslations = false, false
	return old != cur
}

// reload re-reads the configuration and returns the one now in effect
func reload(ctx context.Context, cfg *config.Config, svc *app.Service, weather *pipeline.Pipeline) *config.Config {
	next, err := config.Reload()
	if err != nil {
		log.Printf("Keeping current configuration: %v", err)
	} else if settings, err := app.SettingsFromConfig(next); err != nil {
		log.Printf("Keeping current settings: %v", err)
		next = nil
	} else {
		if providerChanged(cfg.OWM, next.OWM) {
			if err := weather.SetProvider(ctx, newProvider(next)); err != nil {
				log.Printf("Failed to refresh with new provider: %v", err)
			}
		}
		if err := svc.ApplySettings(ctx, settings); err != nil {
			log.Printf("Failed to apply settings: %v", err)
		}
	}

	if err := svc.Reload(ctx); err != nil {
		log.Printf("Failed to reload locations: %v", err)
	}

	if next == nil {
		return cfg
	}
	return next
}

func openStore(ctx context.Context, cfg *config.Config) (location.Store, func(), error) {
	switch cfg.Locations.Store {
	case config.StorePostgres:
		db, err := database.Connect(cfg.Database.ConnectionString())
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Println("Using PostgreSQL location store")
		return database.NewLocationStore(db), func() { db.Close() }, nil

	case config.StoreMemory:
		log.Println("Using in-memory location store, edits are lost on exit")
		return location.NewMemoryStore(location.List{}), func() {}, nil

	default:
		log.Printf("Using location file %s", cfg.Locations.File)
		return location.NewFileStore(cfg.Locations.File), func() {}, nil
	}
}

// logDisplay writes the panel line to the process log
type logDisplay struct{}

func (logDisplay) ShowRefreshing() {
	log.Println("Panel: refreshing...")
}

func (logDisplay) ShowCurrent(panel render.PanelView, current render.CurrentView) {
	log.Printf("Panel: %s [%s] %s", panel.Text, panel.Icon, current.Location)
}

func (logDisplay) ShowToday(items []render.ItemView) {
	log.Printf("Today: %s", summarize(len(items), "slot"))
}

func (logDisplay) ShowForecast(days []render.DayView) {
	log.Printf("Forecast: %s", summarize(len(days), "day"))
}

func (logDisplay) HideForecast() {
	log.Println("Forecast hidden")
}

func summarize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
