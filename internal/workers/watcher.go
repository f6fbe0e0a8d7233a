package workers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hetulpatel/marketsnap/internal/analytics"
	"github.com/hetulpatel/marketsnap/internal/logging"
	"github.com/hetulpatel/marketsnap/internal/markets"
)

// Alert describes why a snapshot is worth a look.
type Alert struct {
	MarketID string
	RunID    string
	Reasons  []string
}

func (a Alert) String() string {
	return fmt.Sprintf("market=%s run=%s %s", a.MarketID, a.RunID, strings.Join(a.Reasons, "; "))
}

// Watcher flags snapshots whose back book sits under Threshold or whose
// runners show a back-over-lay margin.
type Watcher struct {
	threshold float64

	mu     sync.Mutex
	seen   int
	alerts int
}

func NewWatcher(threshold float64) *Watcher {
	return &Watcher{threshold: threshold}
}

// Evaluate returns the alert for snap, if any.
func (w *Watcher) Evaluate(snap *markets.MarketSnapshot) (Alert, bool) {
	alert := Alert{MarketID: snap.Descriptor.MarketID, RunID: snap.RunID}
	if w.threshold > 0 && analytics.BelowThreshold(snap.Analytics.BackOverround, w.threshold) {
		alert.Reasons = append(alert.Reasons,
			fmt.Sprintf("back overround %.2f%% under %.2f%%", snap.Analytics.BackOverround, w.threshold))
	}
	for _, r := range snap.Runners {
		a := r.Analytics
		if a == nil || a.ArbitrageMargin == nil || a.BestBack == nil || a.BestLay == nil {
			continue
		}
		alert.Reasons = append(alert.Reasons,
			fmt.Sprintf("%s back %.2f over lay %.2f", r.Descriptor.Name, *a.BestBack, *a.BestLay))
	}
	return alert, len(alert.Reasons) > 0
}

// Handle is a Handler that logs alerts.
func (w *Watcher) Handle(_ context.Context, snap *markets.MarketSnapshot) error {
	alert, ok := w.Evaluate(snap)

	w.mu.Lock()
	w.seen++
	if ok {
		w.alerts++
	}
	w.mu.Unlock()

	if snap.Book.Tier == markets.TierNone {
		logging.Debugf("[watch] market=%s has no book data this run", snap.Descriptor.MarketID)
	}
	if ok {
		logging.Infof("[watch] %s", alert)
	}
	return nil
}

// Stats returns how many snapshots were handled and how many alerted.
func (w *Watcher) Stats() (seen, alerts int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seen, w.alerts
}
