package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/marketsnap/internal/logging"
	"github.com/hetulpatel/marketsnap/internal/markets"
	"github.com/hetulpatel/marketsnap/internal/racecard"
	"github.com/hetulpatel/marketsnap/internal/storage/sqlite"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	file := flag.String("file", "", "JSON file holding an array of race cards")
	marketIDs := flag.String("markets", "", "Comma-separated market ids to fetch from the race-card API")
	flag.Parse()

	if *file == "" && *marketIDs == "" {
		logging.Fatalf("[racecard-import] provide -file or -markets")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var cards []markets.EnrichmentRecord
	if *file != "" {
		loaded, err := loadFile(*file)
		if err != nil {
			logging.Fatalf("[racecard-import] %v", err)
		}
		cards = append(cards, loaded...)
	}
	if *marketIDs != "" {
		cards = append(cards, fetchCards(ctx, strings.Split(*marketIDs, ","))...)
	}

	store, err := sqlite.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		logging.Fatalf("[racecard-import] open sqlite: %v", err)
	}
	defer store.Close()

	if err := store.CreateTables(ctx); err != nil {
		logging.Fatalf("[racecard-import] create tables: %v", err)
	}
	if err := store.UpsertRaceCards(ctx, cards); err != nil {
		logging.Fatalf("[racecard-import] upsert: %v", err)
	}
	total, err := store.CountRaceCards(ctx)
	if err != nil {
		logging.Fatalf("[racecard-import] count: %v", err)
	}
	logging.Infof("[racecard-import] stored %d race cards (%d total) at %s", len(cards), total, store.Path())
}

func loadFile(path string) ([]markets.EnrichmentRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cards []markets.EnrichmentRecord
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func fetchCards(ctx context.Context, ids []string) []markets.EnrichmentRecord {
	client := racecard.NewClient(racecard.Config{
		BaseURL: os.Getenv("RACECARD_BASE_URL"),
		AppKey:  os.Getenv("EXCHANGE_APP_KEY"),
	})
	var out []markets.EnrichmentRecord
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		rec, err := client.Lookup(ctx, id)
		if err != nil {
			logging.Errorf("[racecard-import] market=%s: %v", id, err)
			continue
		}
		if rec == nil {
			logging.Warnf("[racecard-import] market=%s has no race card", id)
			continue
		}
		out = append(out, *rec)
	}
	return out
}
