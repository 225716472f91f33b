package logger

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ubxdash/ubxdash/internal/gnss"
)

// Logger records timestamped fixes to CSV files with automatic rotation.
type Logger struct {
	mu       sync.Mutex
	dir      string
	interval time.Duration
	enabled  bool

	file   *os.File
	writer *csv.Writer
	lastTs time.Time
	rows   int
}

// Config holds logger configuration.
type Config struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Path       string `yaml:"path" json:"path"`
	IntervalMs int    `yaml:"interval_ms" json:"intervalMs"`
}

const (
	maxRowsPerFile = 100_000 // Rotate after 100k rows (~27 hrs at 1 Hz)
)

var csvHeader = []string{
	"timestamp", "valid", "itow_ms", "lat", "lon",
	"height_m", "height_msl_m", "hacc_m", "vacc_m",
	"speed_kph", "heading_deg",
	"sats_tracked", "sats_used",
	"gps", "glonass", "galileo", "beidou", "sbas", "qzss",
}

// New creates a new Logger.
func New(cfg Config) *Logger {
	if cfg.Path == "" {
		cfg.Path = "/var/log/ubxdash"
	}
	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	if interval < 100*time.Millisecond {
		interval = time.Second // Default 1 Hz
	}
	return &Logger{
		dir:      cfg.Path,
		interval: interval,
		enabled:  cfg.Enabled,
	}
}

// SetEnabled allows toggling logging at runtime.
func (l *Logger) SetEnabled(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = on
	if !on && l.file != nil {
		l.closeFile()
	}
}

// IsEnabled returns whether logging is active.
func (l *Logger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Record writes a fix + satellite snapshot if the minimum interval has elapsed.
func (l *Logger) Record(fix *gnss.Fix, sats []gnss.Satellite) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || fix == nil {
		return
	}

	now := time.Now()
	if now.Sub(l.lastTs) < l.interval {
		return
	}
	l.lastTs = now

	// Open/rotate file if needed
	if l.writer == nil || l.rows >= maxRowsPerFile {
		if err := l.rotateFile(now); err != nil {
			log.Printf("[logger] rotate failed: %v", err)
			return
		}
	}

	row := buildRow(now, fix, sats)
	if err := l.writer.Write(row); err != nil {
		log.Printf("[logger] write failed: %v", err)
		return
	}
	l.writer.Flush()
	l.rows++
}

// Close flushes and closes the current log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeFile()
}

func (l *Logger) rotateFile(now time.Time) error {
	l.closeFile()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.dir, err)
	}

	filename := fmt.Sprintf("track_%s.csv", now.Format("2006-01-02_150405"))
	path := filepath.Join(l.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	l.file = f
	l.writer = csv.NewWriter(f)
	l.rows = 0

	if err := l.writer.Write(csvHeader); err != nil {
		return err
	}
	l.writer.Flush()

	log.Printf("[logger] opened %s", path)
	return nil
}

func (l *Logger) closeFile() {
	if l.writer != nil {
		l.writer.Flush()
		l.writer = nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func buildRow(ts time.Time, fix *gnss.Fix, sats []gnss.Satellite) []string {
	counts := map[string]int{}
	used := 0
	for _, s := range sats {
		counts[s.Constellation]++
		if s.Used {
			used++
		}
	}

	return []string{
		ts.Format(time.RFC3339Nano),
		boolStr(fix.Valid),
		fmt.Sprintf("%d", fix.ITOW),
		fmt.Sprintf("%.7f", fix.Latitude),
		fmt.Sprintf("%.7f", fix.Longitude),
		fmt.Sprintf("%.3f", fix.Height),
		fmt.Sprintf("%.3f", fix.HeightMSL),
		fmt.Sprintf("%.3f", fix.HAcc),
		fmt.Sprintf("%.3f", fix.VAcc),
		fmt.Sprintf("%.1f", fix.Speed),
		fmt.Sprintf("%.1f", fix.Heading),
		fmt.Sprintf("%d", len(sats)),
		fmt.Sprintf("%d", used),
		fmt.Sprintf("%d", counts["GPS"]),
		fmt.Sprintf("%d", counts["GLONASS"]),
		fmt.Sprintf("%d", counts["Galileo"]),
		fmt.Sprintf("%d", counts["BeiDou"]),
		fmt.Sprintf("%d", counts["SBAS"]),
		fmt.Sprintf("%d", counts["QZSS"]),
	}
}

func boolStr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
