package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TahsilatRaporu/internal/config"
)

// LoggerService redirects the standard logger to a size-rotated file under a
// configurable folder and prunes logs older than the retention window.
type LoggerService struct {
	cfg           config.LoggingConfig
	file          *os.File
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
	currentLog    string
	maxFileBytes  int64
	retentionDays int
}

func NewLoggerService(cfg config.LoggingConfig) *LoggerService {
	folder := cfg.FolderPath
	if folder == "" {
		folder = "./logs"
	}
	cfg.FolderPath = folder
	return &LoggerService{
		cfg:           cfg,
		stopCh:        make(chan struct{}),
		maxFileBytes:  int64(cfg.MaxFileMB) * 1024 * 1024,
		retentionDays: cfg.RetentionDays,
	}
}

func (l *LoggerService) Name() string {
	return "Logger"
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.cfg.FolderPath, 0755); err != nil {
		return err
	}
	logFile := l.nextLogFileName()
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentLog = logFile
	log.SetOutput(file)
	log.Println("[LoggerService] Started, writing to", logFile)

	l.wg.Add(1)
	go l.backgroundWorker()

	return nil
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		log.Println("[LoggerService] Stopping")
		log.SetOutput(os.Stderr)
		return l.file.Close()
	}
	return nil
}

func (l *LoggerService) nextLogFileName() string {
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(l.cfg.FolderPath, fmt.Sprintf("tahsilat_%s.log", timestamp))
}

func (l *LoggerService) rotateIfNeeded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() >= l.maxFileBytes {
		l.file.Close()
		newLog := l.nextLogFileName()
		file, err := os.OpenFile(newLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		l.file = file
		l.currentLog = newLog
		log.SetOutput(file)
		log.Println("[LoggerService] Rotated log file to", newLog)
	}
	return nil
}

func (l *LoggerService) backgroundWorker() {
	defer l.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	retentionTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer retentionTicker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.rotateIfNeeded()
		case <-retentionTicker.C:
			l.cleanOldLogs()
		}
	}
}

func (l *LoggerService) cleanOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.cfg.FolderPath)
	if err != nil {
		return
	}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		fullPath := filepath.Join(l.cfg.FolderPath, f.Name())
		if fullPath == l.currentLog {
			continue
		}
		info, err := os.Stat(fullPath)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		os.Remove(fullPath)
	}
}

// DataQuality records a non-fatal data issue found during import, such as an
// unparseable amount or an unrecognized date. These land in the rotated log
// file alongside everything else once the service has redirected output.
func DataQuality(format string, args ...interface{}) {
	log.Printf("[DATA-QUALITY] "+format, args...)
}
