package repair

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/freyrlabs/mimir/pkg/blockfile"
	"github.com/freyrlabs/mimir/pkg/config"
	"github.com/freyrlabs/mimir/pkg/metrics"
)

// Service is the facade the CLI (and any other host program) drives: it
// resolves database names to filesystem paths via config, opens and
// closes file handles around each operation, and records metrics when a
// recorder is configured.
type Service struct {
	Config  *config.Config
	Metrics *metrics.Recorder
}

// NewService builds a Service over the given configuration. rec may be
// nil, in which case no metrics are recorded.
func NewService(cfg *config.Config, rec *metrics.Recorder) *Service {
	return &Service{Config: cfg, Metrics: rec}
}

// Repair resolves dbName, opens its file, and runs Header Repair.
func (s *Service) Repair(dbName string) (*RepairResult, error) {
	path := s.Config.ResolveDBPath(dbName)
	f, err := blockfile.Open(path, blockfile.SyncEveryWrite)
	if err != nil {
		return nil, fmt.Errorf("repair: %w", err)
	}
	defer f.Close()

	result, err := Repair(f)
	if err != nil {
		s.recordOutcome("error")
		return nil, err
	}
	s.recordOutcome(string(result.Status))
	return result, nil
}

// MakeLostAndFound resolves dbName to its source path and the
// corresponding lost+found/<dbName> target path, then runs the driver.
func (s *Service) MakeLostAndFound(dbName string) (*LostAndFoundResult, error) {
	sourcePath := s.Config.ResolveDBPath(dbName)
	targetPath := s.Config.ResolveDBPath(config.LostAndFoundName(dbName))
	if err := os.MkdirAll(filepath.Dir(targetPath), 0750); err != nil {
		return nil, fmt.Errorf("repair: create lost+found directory: %w", err)
	}

	result, err := MakeLostAndFound(sourcePath, targetPath)
	if err != nil {
		s.recordOutcome("error")
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.CandidatesFound.Add(float64(len(result.CandidateRoots)))
	}
	s.recordOutcome("lost_and_found")
	return result, nil
}

// FindNodesQuickly resolves dbName, scans it for candidate by-id leaf
// offsets, and returns them.
func (s *Service) FindNodesQuickly(dbName string) ([]int64, error) {
	path := s.Config.ResolveDBPath(dbName)
	f, err := blockfile.Open(path, blockfile.SyncEveryWrite)
	if err != nil {
		return nil, fmt.Errorf("repair: %w", err)
	}
	defer f.Close()

	if s.Metrics != nil {
		s.Metrics.BytesScanned.Add(float64(f.Size()))
	}
	offsets, err := FindKVNodeOffsets(f)
	if err != nil {
		s.recordOutcome("error")
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.CandidatesFound.Add(float64(len(offsets)))
	}
	s.recordOutcome("find_nodes")
	return offsets, nil
}

func (s *Service) recordOutcome(outcome string) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.Outcomes.WithLabelValues(outcome).Inc()
}
