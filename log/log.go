package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	diagName  = "diagnostics_log.txt"
	eventName = "ptt_log.txt"
)

var (
	diagLog   zerolog.Logger
	diagFile  *lumberjack.Logger
	eventFile *os.File
	logMu     sync.Mutex
	logReady  atomic.Bool
	pid       int
	dir       string
)

// Metrics describes one completed transcription for the diagnostics log.
type Metrics struct {
	SessionID   string
	Provider    string
	Format      string
	AudioS      float64
	EncodedKB   float64
	EncodeMs    float64
	DNSMs       float64
	TLSMs       float64
	TTFBMs      float64
	TotalMs     float64
	ConnReused  bool
	TLSProtocol string
	RateLimit   string
}

func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if env := os.Getenv("PTT_LOG_PATH"); env != "" {
		return absolute(env)
	}
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}
	pid = os.Getpid()

	var err error
	eventFile, err = os.OpenFile(filepath.Join(dir, eventName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	diagFile = &lumberjack.Logger{
		Filename:   filepath.Join(dir, diagName),
		MaxSize:    5, // MB
		MaxBackups: 3,
		MaxAge:     30,
	}
	// lumberjack opens lazily; touch the file so a broken dir fails here.
	if _, err := diagFile.Write(nil); err != nil {
		eventFile.Close()
		eventFile = nil
		return err
	}

	diagLog = zerolog.New(zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}).With().Timestamp().Int("pid", pid).Logger()

	logReady.Store(true)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady.Store(false)
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if eventFile != nil {
		eventFile.Close()
		eventFile = nil
	}
}

func Info(msg string) {
	if logReady.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady.Load() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Event appends one lifecycle line (press, release, transcript, error, ...)
// to ptt_log.txt: "time\t[pid]\tkind\tdetail". Tabs and newlines in detail
// are flattened so every event stays on one line.
func Event(kind, detail string) {
	if !logReady.Load() {
		return
	}
	detail = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(detail)
	logMu.Lock()
	defer logMu.Unlock()
	if eventFile == nil {
		return
	}
	fmt.Fprintf(eventFile, "%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05.000"), pid, kind, detail)
}

func Transcription(m Metrics) {
	if !logReady.Load() {
		return
	}
	conn := "new"
	if m.ConnReused {
		conn = "reused"
	}
	ev := diagLog.Info().
		Str("session", m.SessionID).
		Str("provider", m.Provider).
		Str("format", m.Format).
		Str("conn", conn)
	if m.TLSProtocol != "" {
		ev = ev.Str("tls_proto", m.TLSProtocol)
	}
	if m.RateLimit != "" {
		ev = ev.Str("rate_limit", m.RateLimit)
	}
	ev.Float64("audio_s", m.AudioS).
		Float64("encoded_kb", m.EncodedKB).
		Float64("encode_ms", m.EncodeMs).
		Float64("dns_ms", m.DNSMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Msg("transcription")
}
