// Package monitor periodically writes engine health to a status file and
// drives writer performance sampling while a run is active.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tunnelwatch/engine/internal/handlers"
	"github.com/tunnelwatch/engine/internal/logging"
	"github.com/tunnelwatch/engine/internal/sim"
	"github.com/tunnelwatch/engine/internal/worker"
	"github.com/tunnelwatch/engine/pkg/core"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	// DB is only used for TimescaleDB hypertable setup; nil skips it.
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	RunContext    *handlers.RunContext
	WorkerManager *worker.Manager
	Engine        *sim.Engine

	// StatusDir receives status.json. Empty disables the file.
	StatusDir string

	// Interval between status samples. Zero means one second.
	Interval time.Duration
}

// Status is the point-in-time health summary written to the status file.
type Status struct {
	Time             time.Time           `json:"time"`
	Run              core.Run            `json:"run"`
	Tick             uint64              `json:"tick"`
	Elapsed          float64             `json:"elapsed"`
	VehicleCount     int                 `json:"vehicleCount"`
	IncidentDetected bool                `json:"incidentDetected"`
	Running          bool                `json:"running"`
	Performance      core.RunPerformance `json:"performance"`
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus collects the current health summary. Sampling also
// records the performance row through the worker, so calling this is what
// produces the periodic performance stream.
func (s *Service) GetProgramStatus() (output []string, status Status) {
	run, _ := s.deps.RunContext.Current()
	snap := s.deps.Engine.Snapshot()

	status = Status{
		Time:             time.Now(),
		Run:              run,
		Tick:             snap.Tick,
		Elapsed:          snap.Elapsed,
		VehicleCount:     snap.VehicleCount,
		IncidentDetected: snap.IncidentDetected,
		Running:          snap.Running,
	}
	if perf, ok := s.deps.WorkerManager.SamplePerformance(); ok {
		status.Performance = perf
	}

	statusStr, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statusStr))

	return output, status
}

// ValidateHypertables converts the given tables to TimescaleDB hypertables
// with compression. The map value lists the segment-by columns per table.
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	logger := s.deps.LogManager.Logger()

	for table := range tables {
		hypertable := any(nil)
		s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&hypertable)
		if hypertable != nil {
			logger.Info("Hypertable already configured", "table", table)
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		if err := s.deps.DB.Exec(queryCreateHypertable).Error; err != nil {
			logger.Error("Failed to create hypertable", "table", table, "error", err)
			return err
		}
		logger.Info("Created hypertable", "table", table)

		queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
		if err := s.deps.DB.Exec(queryCompressHypertable, strings.Join(tables[table], ",")).Error; err != nil {
			logger.Error("Failed to enable compression", "table", table, "error", err)
			return err
		}

		queryCompressAfterHypertable := fmt.Sprintf(`
				SELECT add_compression_policy(
					'%s',
					compress_after => interval '14 day');
			`, table)
		if err := s.deps.DB.Exec(queryCompressAfterHypertable).Error; err != nil {
			logger.Error("Failed to set compress_after", "table", table, "error", err)
			return err
		}
		logger.Info("Enabled hypertable compression", "table", table)
	}
	return nil
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.json"))
			if err != nil {
				logger.Error("Error creating status file", "error", err)
			} else {
				defer statusFile.Close()
			}
		}

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(s.deps.Interval)

				if _, active := s.deps.RunContext.Current(); !active {
					continue
				}

				statusStr, _ := s.GetProgramStatus()

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
