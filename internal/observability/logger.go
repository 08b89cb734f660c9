package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeGoal        EventType = "goal"
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeGuard       EventType = "guard"
	EventTypeWeb         EventType = "web"
	EventTypeSkill       EventType = "skill"
	EventTypeHeartbeat   EventType = "heartbeat"
	EventTypeWarning     EventType = "warning"
	EventTypeError       EventType = "error"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	User      string    `json:"user,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger emits structured JSONL events to stdout and mirrors everything
// to a size-rotated file so past runs stay inspectable.
type Logger struct {
	logPath string
	maxSize int64
}

func NewLogger() *Logger {
	return &Logger{
		logPath: filepath.Join("logs", "ghosthand.jsonl"),
		maxSize: 10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))
	l.writeToFile(data)
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.logPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.logPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.logPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogGoal(user, goal string) {
	l.Log(Event{
		Type: EventTypeGoal,
		User: user,
		Goal: goal,
		Data: map[string]string{"status": "received"},
	})
}

func (l *Logger) LogPlan(user, goal string, plan any) {
	l.Log(Event{
		Type: EventTypePlan,
		User: user,
		Goal: goal,
		Data: plan,
	})
}

func (l *Logger) LogStep(user string, index int, capability, action string, detail any) {
	l.Log(Event{
		Type: EventTypeStep,
		User: user,
		Data: map[string]any{
			"index":      index,
			"capability": capability,
			"action":     action,
			"detail":     detail,
		},
	})
}

func (l *Logger) LogPolicy(user, capability, action, effect, reason string) {
	l.Log(Event{
		Type: EventTypePolicyCheck,
		User: user,
		Data: map[string]string{
			"capability": capability,
			"action":     action,
			"effect":     effect,
			"reason":     reason,
		},
	})
}

func (l *Logger) LogGuard(user, detail string) {
	l.Log(Event{
		Type: EventTypeGuard,
		User: user,
		Data: map[string]string{"detail": detail},
	})
}

func (l *Logger) LogWeb(action, detail string) {
	l.Log(Event{
		Type: EventTypeWeb,
		Data: map[string]string{"action": action, "detail": detail},
	})
}

func (l *Logger) LogSkill(name, detail string) {
	l.Log(Event{
		Type: EventTypeSkill,
		Data: map[string]string{"skill": name, "detail": detail},
	})
}

func (l *Logger) Warn(format string, args ...any) {
	l.Log(Event{
		Type: EventTypeWarning,
		Data: map[string]string{"message": fmt.Sprintf(format, args...)},
	})
}

func (l *Logger) Error(format string, args ...any) {
	l.Log(Event{
		Type: EventTypeError,
		Data: map[string]string{"message": fmt.Sprintf(format, args...)},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}
