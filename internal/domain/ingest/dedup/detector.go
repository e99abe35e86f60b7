// Package dedup finds duplicate transactions in a batch, typically produced
// by uploading overlapping statements. Matching is rule based: dates within a
// window, amounts within a tolerance and fuzzy-similar merchants.
package dedup

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
)

// amountEpsilon absorbs float noise when comparing against the tolerance.
const amountEpsilon = 1e-9

// Config controls duplicate matching.
type Config struct {
	TimeWindowDays  int     `json:"time_window_days"`
	AmountTolerance float64 `json:"amount_tolerance"`
	FuzzyThreshold  int     `json:"fuzzy_threshold"`
	MergeDuplicates bool    `json:"merge_duplicates"`
	// LookBack bounds how many earlier transactions each one is compared
	// with. Zero compares with all of them.
	LookBack int `json:"look_back"`
}

// DefaultConfig returns the standard matching rules.
func DefaultConfig() Config {
	return Config{
		TimeWindowDays:  1,
		AmountTolerance: 0.01,
		FuzzyThreshold:  85,
		MergeDuplicates: true,
		LookBack:        100,
	}
}

// Validate rejects settings that cannot match anything sensibly.
func (c Config) Validate() error {
	var errs []error
	if c.TimeWindowDays < 0 {
		errs = append(errs, fmt.Errorf("time window must not be negative, got %d", c.TimeWindowDays))
	}
	if c.AmountTolerance < 0 {
		errs = append(errs, fmt.Errorf("amount tolerance must not be negative, got %v", c.AmountTolerance))
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		errs = append(errs, fmt.Errorf("fuzzy threshold must be within 0..100, got %d", c.FuzzyThreshold))
	}
	if c.LookBack < 0 {
		errs = append(errs, fmt.Errorf("look-back must not be negative, got %d", c.LookBack))
	}
	return errors.Join(errs...)
}

// Stats summarises one Detect pass. Total and Unique describe the output;
// Flagged and Merged count only the duplicates resolved by that pass.
type Stats struct {
	Total         int     `json:"total"`
	Flagged       int     `json:"flagged"`
	Merged        int     `json:"merged"`
	Unique        int     `json:"unique"`
	DuplicateRate float64 `json:"duplicate_rate"`
	Config        Config  `json:"config"`
}

// Detector finds duplicates within a batch. It holds no state between calls.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// NewDetector creates a detector. The config is not validated here; callers
// loading it from the environment validate it first.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, logger: logger}
}

// Config returns the detector's settings.
func (d *Detector) Config() Config { return d.cfg }

// Detect sorts txns chronologically and resolves duplicates against earlier
// transactions inside the look-back window. The first matching candidate in
// chronological order becomes the anchor. In merge mode duplicates are
// dropped and the anchor's DuplicateCount grows; in flag mode they are kept
// with IsDuplicate and DuplicateOf set. txns is not modified.
//
// Stats describe this pass only. Counters carried in from an earlier run
// are not counted again, so re-running over Detect output reports no
// duplicates.
func (d *Detector) Detect(txns []model.Transaction) ([]model.Transaction, Stats) {
	sorted := slices.Clone(txns)
	slices.SortStableFunc(sorted, func(a, b model.Transaction) int {
		return strings.Compare(a.Date, b.Date)
	})

	views := make([]candidate, len(sorted))
	for i := range sorted {
		views[i] = newCandidate(sorted[i])
	}

	dropped := make([]bool, len(sorted))
	stats := Stats{Config: d.cfg}

	for i := range sorted {
		if sorted[i].IsDuplicate {
			continue
		}
		start := 0
		if d.cfg.LookBack > 0 {
			start = max(0, i-d.cfg.LookBack)
		}

		for j := start; j < i; j++ {
			if dropped[j] || sorted[j].IsDuplicate {
				continue
			}
			if !d.matches(views[i], views[j]) {
				continue
			}

			sorted[j].DuplicateCount++
			if d.cfg.MergeDuplicates {
				dropped[i] = true
				stats.Merged++
			} else {
				anchor := sorted[j].ID
				sorted[i].IsDuplicate = true
				sorted[i].DuplicateOf = &anchor
				stats.Flagged++
			}
			break
		}
	}

	out := sorted
	if stats.Merged > 0 {
		out = make([]model.Transaction, 0, len(sorted)-stats.Merged)
		for i, t := range sorted {
			if !dropped[i] {
				out = append(out, t)
			}
		}
	}

	stats.Total = len(out)
	for _, t := range out {
		if !t.IsDuplicate {
			stats.Unique++
		}
	}
	if len(txns) > 0 {
		rate := float64(stats.Flagged+stats.Merged) / float64(len(txns))
		stats.DuplicateRate = math.Round(rate*10000) / 10000
	}

	d.logger.Info("deduplication finished",
		"input", len(txns),
		"output", len(out),
		"merged", stats.Merged,
		"flagged", stats.Flagged,
		"merge", d.cfg.MergeDuplicates,
	)
	return out, stats
}

// candidate is the comparable view of a transaction.
type candidate struct {
	date    time.Time
	dated   bool
	amount  float64
	subject string
}

func newCandidate(t model.Transaction) candidate {
	c := candidate{amount: t.Amount, subject: compareField(t)}
	if parsed, err := time.Parse(model.DateLayout, t.Date); err == nil {
		c.date, c.dated = parsed, true
	}
	return c
}

// compareField returns the best available name for fuzzy comparison.
func compareField(t model.Transaction) string {
	for _, f := range []string{t.MerchantCanonical, t.MerchantRaw, t.CleanDescription, t.DescriptionRaw} {
		if s := strings.TrimSpace(f); s != "" {
			return s
		}
	}
	return ""
}

func (d *Detector) matches(t, c candidate) bool {
	if !t.dated || !c.dated {
		return false
	}
	days := math.Abs(t.date.Sub(c.date).Hours()) / 24
	if days > float64(d.cfg.TimeWindowDays) {
		return false
	}
	if math.Abs(t.amount-c.amount) > d.cfg.AmountTolerance+amountEpsilon {
		return false
	}
	if t.subject == "" || c.subject == "" {
		return false
	}
	return Similarity(t.subject, c.subject) >= d.cfg.FuzzyThreshold
}
