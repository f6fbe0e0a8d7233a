package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/marketsnap/internal/config"
	"github.com/hetulpatel/marketsnap/internal/exchange"
	"github.com/hetulpatel/marketsnap/internal/fetcher"
	"github.com/hetulpatel/marketsnap/internal/kafka"
	"github.com/hetulpatel/marketsnap/internal/logging"
	"github.com/hetulpatel/marketsnap/internal/markets"
	"github.com/hetulpatel/marketsnap/internal/pacing"
	"github.com/hetulpatel/marketsnap/internal/present"
	"github.com/hetulpatel/marketsnap/internal/queue"
	"github.com/hetulpatel/marketsnap/internal/racecard"
	"github.com/hetulpatel/marketsnap/internal/snapshot"
	"github.com/hetulpatel/marketsnap/internal/storage/sqlite"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	listEventTypes := flag.Bool("list-event-types", false, "List event types (sports) with open markets and exit")
	listEvents := flag.Bool("list-events", false, "List events matching the market filter and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("[snapshot] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	client := exchange.NewClient(exchange.Config{
		BaseURL: cfg.Exchange.BaseURL,
		Session: exchange.Session{AppKey: cfg.Exchange.AppKey, Token: cfg.Exchange.SessionToken},
		Timeout: cfg.Exchange.Timeout,
	})

	if *listEventTypes {
		printEventTypes(ctx, client, cfg.Filter)
		return
	}
	if *listEvents {
		printEvents(ctx, client, cfg.Filter)
		return
	}

	pacer, closePacer := buildPacer(ctx, cfg)
	defer closePacer()

	f, err := fetcher.New(client, fetcher.Config{
		Tiers:       cfg.Fetch.Tiers,
		MaxInFlight: cfg.Fetch.MaxInFlight,
		Pacer:       pacer,
	})
	if err != nil {
		logging.Fatalf("[snapshot] fetcher: %v", err)
	}

	enrichment, closeEnrichment := buildEnrichment(ctx, cfg)
	defer closeEnrichment()

	presenter, closePresenter := buildPresenter(ctx, cfg)
	defer closePresenter()

	engine, err := snapshot.New(snapshot.Config{
		Directory:          client,
		Fetcher:            f,
		Enrichment:         enrichment,
		EnrichmentInFlight: cfg.Fetch.MaxInFlight,
		Presenter:          presenter,
	})
	if err != nil {
		logging.Fatalf("[snapshot] engine: %v", err)
	}

	logging.Infof("[snapshot] starting run tiers=%v max_in_flight=%d pacing=%s", f.Tiers(), cfg.Fetch.MaxInFlight, cfg.Fetch.Pacing)
	res, err := engine.Run(ctx, cfg.Filter)
	if err != nil {
		logging.Fatalf("[snapshot] run failed: %v", err)
	}
	for id, ferr := range res.Failures {
		logging.Warnf("[snapshot] market=%s fetch failed: %v", id, ferr)
	}
	logging.Infof("[snapshot] run %s finished in %s markets=%d cancelled=%t",
		res.RunID, res.Duration.Round(time.Millisecond), len(res.Snapshots), res.Cancelled)
}

func printEventTypes(ctx context.Context, client *exchange.Client, filter markets.MarketFilter) {
	types, err := client.ListEventTypes(ctx, filter)
	if err != nil {
		logging.Fatalf("[snapshot] list event types: %v", err)
	}
	for _, et := range types {
		fmt.Printf("%-8s %-30s %d markets\n", et.ID, et.Name, et.MarketCount)
	}
}

func printEvents(ctx context.Context, client *exchange.Client, filter markets.MarketFilter) {
	events, err := client.ListEvents(ctx, filter)
	if err != nil {
		logging.Fatalf("[snapshot] list events: %v", err)
	}
	for _, ev := range events {
		opens := "-"
		if !ev.OpenDate.IsZero() {
			opens = ev.OpenDate.UTC().Format("2006-01-02 15:04 MST")
		}
		country := ev.CountryCode
		if country == "" {
			country = "-"
		}
		fmt.Printf("%-10s %-40s %-3s %s\n", ev.ID, ev.Name, country, opens)
	}
}

func buildPacer(ctx context.Context, cfg config.Config) (pacing.Pacer, func()) {
	local := pacing.NewInterval(cfg.Fetch.Pacing)
	if cfg.Redis.Addr == "" {
		return local, func() {}
	}

	shared, err := pacing.NewRedisShared(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PacingKey, cfg.Fetch.Pacing)
	if err != nil {
		logging.Errorf("[snapshot] redis pacer disabled: %v", err)
		return local, func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := shared.Ping(pingCtx); err != nil {
		logging.Errorf("[snapshot] redis pacer unreachable at %s, pacing locally: %v", cfg.Redis.Addr, err)
		shared.Close()
		return local, func() {}
	}
	logging.Infof("[snapshot] sharing pacing through redis %s", cfg.Redis.Addr)
	return pacing.Chain{local, shared}, func() { shared.Close() }
}

func buildEnrichment(ctx context.Context, cfg config.Config) (markets.EnrichmentSource, func()) {
	noop := func() {}
	api := func() markets.EnrichmentSource {
		return racecard.NewClient(racecard.Config{
			BaseURL: cfg.RaceCards.BaseURL,
			AppKey:  cfg.Exchange.AppKey,
			Timeout: cfg.Exchange.Timeout,
		})
	}
	openStore := func() *sqlite.Store {
		store, err := sqlite.Open(cfg.RaceCards.SQLitePath)
		if err != nil {
			logging.Errorf("[snapshot] race-card store disabled: %v", err)
			return nil
		}
		if err := store.CreateTables(ctx); err != nil {
			logging.Errorf("[snapshot] race-card store disabled: %v", err)
			store.Close()
			return nil
		}
		return store
	}

	switch cfg.RaceCards.Source {
	case "api":
		return api(), noop
	case "sqlite":
		if store := openStore(); store != nil {
			return store, func() { store.Close() }
		}
	case "chain":
		if store := openStore(); store != nil {
			return racecard.Chain{store, api()}, func() { store.Close() }
		}
		return api(), noop
	}
	return nil, noop
}

func buildPresenter(ctx context.Context, cfg config.Config) (markets.Presenter, func()) {
	var presenters present.Multi
	closeFn := func() {}

	if cfg.Present.Table {
		presenters = append(presenters, present.NewTable(os.Stdout, cfg.Present.OverroundThreshold))
	}
	if cfg.Kafka.Topic != "" {
		brokers := kafka.Brokers(cfg.Kafka.Brokers)
		waitCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := kafka.WaitForBroker(waitCtx, brokers)
		if err == nil {
			err = kafka.EnsureTopic(waitCtx, brokers, cfg.Kafka.Topic)
		}
		cancel()
		if err != nil {
			logging.Errorf("[snapshot] kafka publishing disabled: %v", err)
		} else {
			writer := kafka.NewWriter(brokers, cfg.Kafka.Topic)
			presenters = append(presenters, queue.NewPublisher(writer))
			closeFn = func() { writer.Close() }
			logging.Infof("[snapshot] publishing to %s on %v", cfg.Kafka.Topic, brokers)
		}
	}
	return presenters, closeFn
}
