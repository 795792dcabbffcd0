package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "mylog")
	got, err := ResolveDir(abs)
	if err != nil {
		t.Fatal(err)
	}
	if got != abs {
		t.Errorf("got %q, want %q", got, abs)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "logs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "ptt-env-log")
	t.Setenv("PTT_LOG_PATH", want)
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("PTT_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "ptt") {
		t.Errorf("default dir %q does not mention ptt", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Info("started")
	for _, name := range []string{diagName, eventName} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestEventLine(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Event("transcript", "hello\tworld\nagain")

	data, err := os.ReadFile(filepath.Join(tmp, eventName))
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSuffix(string(data), "\n")
	if strings.Contains(line, "\n") {
		t.Fatalf("event spans lines: %q", line)
	}
	fields := strings.Split(line, "\t")
	if len(fields) != 4 {
		t.Fatalf("want 4 tab-separated fields, got %q", line)
	}
	if fields[2] != "transcript" || fields[3] != "hello world again" {
		t.Errorf("fields = %q", fields)
	}
}

func TestLogBeforeInitIsNoop(t *testing.T) {
	Close()
	Info("dropped")
	Event("press", "dropped")
	Transcription(Metrics{Provider: "fake"})
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close()
}
