package kmercount

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tamirms/kmercount/internal/spill"
	"github.com/tamirms/kmercount/internal/table"
)

// aggregateStore accumulates finished counter tables and spills itself to
// disk when it holds more than threshold distinct keys.
//
// Invariant: resident.Sum() + sum(spilled[i].Total) == total.
//
// Only the reconciliation goroutine mutates a store during a run.
type aggregateStore struct {
	resident  *table.Table
	spilled   []spill.Info
	total     uint64
	threshold int
	namer     spill.Namer
	logger    *slog.Logger
}

func newAggregateStore(hint table.Config, threshold int, namer spill.Namer, logger *slog.Logger) *aggregateStore {
	return &aggregateStore{
		resident:  table.New(hint),
		threshold: threshold,
		namer:     namer,
		logger:    logger,
	}
}

// mergeIn adds every count of a finished counter's table.
func (s *aggregateStore) mergeIn(local *table.Table) {
	local.MergeInto(s.resident)
	s.total += local.Sum()
}

// maybeSpill writes the resident table to a new spill file and clears it if
// it holds more than threshold distinct keys.
func (s *aggregateStore) maybeSpill() (bool, error) {
	if s.resident.Len() <= s.threshold {
		return false, nil
	}
	if err := s.spillNow(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *aggregateStore) spillNow() error {
	path := s.namer.Next()
	info, err := spill.Write(path, s.resident.All(), s.resident.Len())
	if err != nil {
		return fmt.Errorf("spill aggregate: %w", err)
	}
	s.spilled = append(s.spilled, info)
	s.logger.Debug("spilled aggregate",
		"path", info.Path,
		"records", info.Records,
		"kmers", info.Total,
		"spills", len(s.spilled))
	s.resident.Reset()
	return nil
}

// spilledTotal sums the counts held in spill files.
func (s *aggregateStore) spilledTotal() uint64 {
	var sum uint64
	for _, info := range s.spilled {
		sum += info.Total
	}
	return sum
}

// removeSpilled deletes every spill file and forgets them.
func (s *aggregateStore) removeSpilled() error {
	var errs []error
	for _, info := range s.spilled {
		errs = append(errs, spill.Remove(info))
	}
	s.spilled = nil
	return errors.Join(errs...)
}

// clear drops the resident table and spill handles after resolution.
func (s *aggregateStore) clear() error {
	s.resident.Reset()
	return s.removeSpilled()
}
