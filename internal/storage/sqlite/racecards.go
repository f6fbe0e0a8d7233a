package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

// Name identifies the store as an enrichment source.
func (s *Store) Name() string {
	return "racecard-sqlite"
}

// UpsertRaceCards inserts or replaces race cards. A card's runner rows are
// rewritten in full so runners removed from a card do not linger.
func (s *Store) UpsertRaceCards(ctx context.Context, cards []markets.EnrichmentRecord) error {
	if len(cards) == 0 {
		return nil
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cardStmt, err := tx.PrepareContext(ctx, upsertCardSQL)
	if err != nil {
		return err
	}
	defer cardStmt.Close()
	clearStmt, err := tx.PrepareContext(ctx, `DELETE FROM race_card_runners WHERE market_id = ?`)
	if err != nil {
		return err
	}
	defer clearStmt.Close()
	runnerStmt, err := tx.PrepareContext(ctx, insertRunnerSQL)
	if err != nil {
		return err
	}
	defer runnerStmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, card := range cards {
		if card.MarketID == "" {
			return fmt.Errorf("race card without market id")
		}
		if _, err := cardStmt.ExecContext(ctx,
			card.MarketID, card.Course, card.Distance, card.Going, card.RaceType,
			fieldsJSON(card.Fields), now,
		); err != nil {
			return fmt.Errorf("upsert race card %s: %w", card.MarketID, err)
		}
		if _, err := clearStmt.ExecContext(ctx, card.MarketID); err != nil {
			return err
		}
		for id, r := range card.Runners {
			if r.SelectionID == "" {
				r.SelectionID = id
			}
			if _, err := runnerStmt.ExecContext(ctx,
				card.MarketID, r.SelectionID, r.Jockey, r.Trainer, r.Form, fieldsJSON(r.Fields),
			); err != nil {
				return fmt.Errorf("insert runner %s/%s: %w", card.MarketID, r.SelectionID, err)
			}
		}
	}
	return tx.Commit()
}

// Lookup returns the stored race card, or nil when the market has none.
func (s *Store) Lookup(ctx context.Context, marketID string) (*markets.EnrichmentRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialized")
	}

	rec := markets.EnrichmentRecord{MarketID: marketID}
	var course, distance, going, kind, rawFields sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT course, distance, going, race_type, fields_json FROM race_cards WHERE market_id = ?`, marketID,
	).Scan(&course, &distance, &going, &kind, &rawFields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query race card %s: %w", marketID, err)
	}
	rec.Course = course.String
	rec.Distance = distance.String
	rec.Going = going.String
	rec.RaceType = kind.String
	rec.Fields = parseFields(rawFields)

	rows, err := s.db.QueryContext(ctx,
		`SELECT selection_id, jockey, trainer, form, fields_json FROM race_card_runners WHERE market_id = ?`, marketID)
	if err != nil {
		return nil, fmt.Errorf("query race card runners %s: %w", marketID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                    string
			jockey, trainer, form sql.NullString
			raw                   sql.NullString
		)
		if err := rows.Scan(&id, &jockey, &trainer, &form, &raw); err != nil {
			return nil, err
		}
		if rec.Runners == nil {
			rec.Runners = make(map[string]markets.RunnerEnrichment)
		}
		rec.Runners[id] = markets.RunnerEnrichment{
			SelectionID: id,
			Jockey:      jockey.String,
			Trainer:     trainer.String,
			Form:        form.String,
			Fields:      parseFields(raw),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountRaceCards returns how many cards are stored.
func (s *Store) CountRaceCards(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM race_cards`).Scan(&n)
	return n, err
}

const upsertCardSQL = `
INSERT INTO race_cards (market_id, course, distance, going, race_type, fields_json, updated_at)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT(market_id) DO UPDATE SET
	course=excluded.course,
	distance=excluded.distance,
	going=excluded.going,
	race_type=excluded.race_type,
	fields_json=excluded.fields_json,
	updated_at=excluded.updated_at;
`

const insertRunnerSQL = `
INSERT INTO race_card_runners (market_id, selection_id, jockey, trainer, form, fields_json)
VALUES (?,?,?,?,?,?);
`

func fieldsJSON(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}

func parseFields(raw sql.NullString) map[string]string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}
