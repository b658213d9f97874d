package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	logLevelNames = map[LogLevel]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
	}

	currentLevel = INFO
	sink         = &fileSink{}
	mu           sync.RWMutex
)

type fileSink struct {
	file         *os.File
	filePath     string
	maxSizeBytes int64
	maxAgeDays   int
	fileMu       sync.Mutex
}

type LogEntry struct {
	Level     string                 `json:"level"`
	Timestamp string                 `json:"timestamp"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

func EnableFileLogging(filePath string, maxSizeMB, maxAgeDays int) error {
	mu.Lock()
	defer mu.Unlock()

	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 3
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if sink.file != nil {
		sink.file.Close()
	}

	sink.file = file
	sink.filePath = filePath
	sink.maxSizeBytes = int64(maxSizeMB) * 1024 * 1024
	sink.maxAgeDays = maxAgeDays
	if err := sink.cleanupOldLogFiles(); err != nil {
		log.Println("Failed to clean up old log files:", err)
	}
	return nil
}

func DisableFileLogging() {
	mu.Lock()
	defer mu.Unlock()

	if sink.file != nil {
		sink.file.Close()
		sink.file = nil
		sink.filePath = ""
		sink.maxSizeBytes = 0
		sink.maxAgeDays = 0
	}
}

func logMessage(level LogLevel, component string, message string, fields map[string]interface{}) {
	if level < GetLevel() {
		return
	}

	entry := LogEntry{
		Level:     logLevelNames[level],
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Component: component,
		Message:   message,
		Fields:    fields,
	}

	if sink.file != nil {
		if jsonData, err := json.Marshal(entry); err == nil {
			if err := sink.writeLine(append(jsonData, '\n')); err != nil {
				log.Println("Failed to write file log:", err)
			}
		}
	}

	var fieldStr string
	if len(fields) > 0 {
		fieldStr = " " + formatFields(fields)
	}

	log.Printf("[%s] [%s]%s %s%s",
		entry.Timestamp,
		logLevelNames[level],
		formatComponent(component),
		message,
		fieldStr,
	)
}

func (s *fileSink) writeLine(line []byte) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if s.file == nil {
		return nil
	}

	if s.maxSizeBytes > 0 {
		if err := s.rotateIfNeeded(int64(len(line))); err != nil {
			return err
		}
	}

	_, err := s.file.Write(line)
	return err
}

func (s *fileSink) rotateIfNeeded(nextWrite int64) error {
	info, err := s.file.Stat()
	if err != nil {
		return err
	}

	if info.Size()+nextWrite <= s.maxSizeBytes {
		return nil
	}

	if err := s.file.Close(); err != nil {
		return err
	}

	backupPath := fmt.Sprintf("%s.%s", s.filePath, time.Now().UTC().Format("20060102-150405"))
	if err := os.Rename(s.filePath, backupPath); err != nil {
		return err
	}

	file, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	s.file = file

	return s.cleanupOldLogFiles()
}

func (s *fileSink) cleanupOldLogFiles() error {
	if s.maxAgeDays <= 0 || s.filePath == "" {
		return nil
	}

	dir := filepath.Dir(s.filePath)
	base := filepath.Base(s.filePath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -s.maxAgeDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Only delete rotated files like paychat.log.20260826-120000
		name := entry.Name()
		if !strings.HasPrefix(name, base+".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}

	return nil
}

func formatComponent(component string) string {
	if component == "" {
		return ""
	}
	return fmt.Sprintf(" %s:", component)
}

func formatFields(fields map[string]interface{}) string {
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

func Debug(message string) {
	logMessage(DEBUG, "", message, nil)
}

func DebugC(component string, message string) {
	logMessage(DEBUG, component, message, nil)
}

func DebugCF(component string, message string, fields map[string]interface{}) {
	logMessage(DEBUG, component, message, fields)
}

func Info(message string) {
	logMessage(INFO, "", message, nil)
}

func InfoC(component string, message string) {
	logMessage(INFO, component, message, nil)
}

func InfoCF(component string, message string, fields map[string]interface{}) {
	logMessage(INFO, component, message, fields)
}

func Warn(message string) {
	logMessage(WARN, "", message, nil)
}

func WarnC(component string, message string) {
	logMessage(WARN, component, message, nil)
}

func WarnCF(component string, message string, fields map[string]interface{}) {
	logMessage(WARN, component, message, fields)
}

func Error(message string) {
	logMessage(ERROR, "", message, nil)
}

func ErrorC(component string, message string) {
	logMessage(ERROR, component, message, nil)
}

func ErrorCF(component string, message string, fields map[string]interface{}) {
	logMessage(ERROR, component, message, fields)
}
