package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"ptt/audio"
	"ptt/beep"
	"ptt/config"
	"ptt/doctor"
	"ptt/encoder"
	"ptt/hotkey"
	"ptt/log"
	"ptt/observe"
	"ptt/session"
	"ptt/shutdown"
	"ptt/transcriber"
	"ptt/tray"
	"ptt/typer"
	"ptt/window"
)

var version = "dev"

type cliFlags struct {
	configPath string
	logPath    string
	setup      bool
	doctor     bool
	version    bool
	test       string

	provider, endpoint, model, lang string
	format, hotkey, device, metrics string
	tui, tray, beep, paste          bool

	set map[string]bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs.StringVar(&f.configPath, "config", config.DefaultPath(), "YAML config file")
	fs.StringVar(&f.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.BoolVar(&f.setup, "setup", false, "Select microphone device interactively")
	fs.BoolVar(&f.doctor, "doctor", false, "Run system diagnostics and exit (optional WAV argument)")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	fs.StringVar(&f.test, "test", "", "Headless mode: replay `wav` as the microphone, driven by stdin")

	fs.StringVar(&f.provider, "provider", "", "Transcription provider: whisper, openai, groq, deepgram or fake")
	fs.StringVar(&f.endpoint, "endpoint", "", "Transcription endpoint URL")
	fs.StringVar(&f.model, "model", "", "Transcription model")
	fs.StringVar(&f.lang, "lang", "", "Language code (e.g. en). Empty = auto-detect")
	fs.StringVar(&f.format, "format", "", "Upload container: wav or flac")
	fs.StringVar(&f.hotkey, "hotkey", "", "Push-to-talk key, e.g. ctrl+shift+space")
	fs.StringVar(&f.device, "device", "", "Use the microphone whose name contains this")
	fs.StringVar(&f.metrics, "metrics", "", "Serve /metrics and pprof on this address (e.g. localhost:9464)")
	fs.BoolVar(&f.tui, "tui", true, "Run with terminal UI")
	fs.BoolVar(&f.tray, "tray", true, "Show tray icon")
	fs.BoolVar(&f.beep, "beep", true, "Play start/stop cues")
	fs.BoolVar(&f.paste, "paste", true, "Paste characters the keyboard backend cannot type")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// apply overrides cfg with flags given explicitly on the command line.
func (f *cliFlags) apply(cfg *config.Config) {
	strs := map[string]struct{ dst, src *string }{
		"provider": {&cfg.Provider, &f.provider},
		"endpoint": {&cfg.Endpoint, &f.endpoint},
		"model":    {&cfg.Model, &f.model},
		"lang":     {&cfg.Language, &f.lang},
		"format":   {&cfg.Format, &f.format},
		"hotkey":   {&cfg.Hotkey, &f.hotkey},
		"device":   {&cfg.Device, &f.device},
		"metrics":  {&cfg.MetricsAddr, &f.metrics},
	}
	for name, p := range strs {
		if f.set[name] {
			*p.dst = *p.src
		}
	}
	bools := map[string]struct{ dst, src *bool }{
		"tui":   {&cfg.TUI, &f.tui},
		"tray":  {&cfg.Tray, &f.tray},
		"beep":  {&cfg.Beep, &f.beep},
		"paste": {&cfg.Paste, &f.paste},
	}
	for name, p := range bools {
		if f.set[name] {
			*p.dst = *p.src
		}
	}
	if f.set["provider"] {
		cfg.LoadSecret()
	}
}

func fatalf(format string, args ...any) {
	log.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	log.Close()
	os.Exit(1)
}

func run() {
	f, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if f.version {
		fmt.Printf("ptt %s\n", version)
		return
	}

	logPath, err := log.ResolveDir(f.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfg, warnings, err := config.Load(f.configPath)
	if err != nil {
		fatalf("%v", err)
	}
	f.apply(&cfg)
	seen := map[string]bool{}
	for _, w := range append(warnings, cfg.Validate()...) {
		if seen[w] {
			continue
		}
		seen[w] = true
		log.Warn("config: " + w)
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	log.Infof("ptt %s starting: provider=%s format=%s hotkey=%s", version, cfg.Provider, cfg.Format, cfg.Hotkey)

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if f.doctor {
		spec, _ := hotkey.ParseSpec(cfg.Hotkey)
		opts := doctor.Options{Hotkey: spec, Device: cfg.Device, Transcriber: cfg.Transcriber()}
		if args := flag.Args(); len(args) > 0 {
			opts.Sample = args[0]
		}
		code := doctor.Run(ctx, os.Stdout, doctor.Checks(opts))
		log.Close()
		os.Exit(code)
	}

	tr, err := transcriber.New(cfg.Transcriber())
	if err != nil {
		fatalf("%v", err)
	}

	if f.test != "" {
		if err := runTestMode(ctx, cfg, tr, f.test, os.Stdin, os.Stdout); err != nil {
			fatalf("%v", err)
		}
		return
	}

	var metrics *observe.Metrics
	if cfg.MetricsAddr != "" {
		shutdownMetrics, err := observe.InitProvider()
		if err != nil {
			fatalf("metrics: %v", err)
		}
		defer shutdownMetrics(context.Background())
		if metrics, err = observe.NewMetrics(otel.GetMeterProvider()); err != nil {
			fatalf("metrics: %v", err)
		}
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	actx, err := audio.NewContext()
	if err != nil {
		fatalf("initializing audio: %v", err)
	}
	defer actx.Close()

	var device *audio.DeviceInfo
	if f.setup {
		if device, err = audio.SelectDevice(actx); err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Println("Falling back to default device")
		}
	} else if device, err = audio.FindDevice(actx, cfg.Device); err != nil {
		fatalf("%v", err)
	}
	capture, err := actx.NewCapture(device, audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels})
	if err != nil {
		fatalf("initializing capture device: %v", err)
	}
	defer capture.Close()

	spec, err := hotkey.ParseSpec(cfg.Hotkey)
	if err != nil {
		fatalf("%v", err)
	}
	hk, err := hotkey.New(spec)
	if err != nil {
		fatalf("hotkey: %v", err)
	}
	if err := hk.Register(); err != nil {
		fatalf("registering hotkey %s: %v", spec, err)
	}
	defer hk.Unregister()

	resolver, err := window.New()
	if err != nil {
		fatalf("window focus: %v", err)
	}

	var kb typer.Typer
	if k, err := typer.New(cfg.Paste); err != nil {
		log.Errorf("keystroke output unavailable: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: keystroke output unavailable: %v (run -doctor)\n", err)
		kb = unavailableTyper{err}
	} else {
		kb = k
	}

	a := newApp(cfg, components{Resolver: resolver, Typer: kb, Transcriber: tr, Metrics: metrics})
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Beep {
		go beep.Init()
		a.queue.AddSink(beep.NewCues())
		a.onReport(func(r session.Report) {
			if r.Outcome == "stt_error" || r.Outcome == "inject_error" {
				beep.PlayError()
			}
		})
	} else {
		beep.Disable()
	}

	if cfg.Tray {
		t := tray.New()
		a.queue.AddSink(t)
		t.Start()
		defer t.Stop()
		go func() {
			select {
			case <-t.Done():
				log.Info("exit requested from tray")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if cfg.TUI {
		p := newTUIProgram(spec.String(), a.level.Load)
		a.queue.AddSink(tuiSink{p})
		a.onReport(func(r session.Report) { p.Send(reportMsg(r)) })
		go func() {
			if _, err := p.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			cancel()
		}()
		defer p.Quit()
		p.Send(modeLineMsg{Text: modeLine(cfg, tr)})
		p.Send(deviceLineMsg{Text: "mic: " + capture.DeviceName()})
	} else {
		fmt.Printf("ptt %s ready: hold %s to dictate (%s)\n", version, spec, modeLine(cfg, tr))
	}

	if err := a.run(ctx, hk, capture); err != nil {
		fatalf("%v", err)
	}
	log.Info("shutdown complete")
}

func modeLine(cfg config.Config, tr transcriber.Transcriber) string {
	label := tr.Name()
	if cfg.Language != "" {
		label += " (" + cfg.Language + ")"
	}
	return fmt.Sprintf("[%s | %s]", strings.ToUpper(cfg.Format), label)
}

func serveMetrics(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: observe.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()
	log.Infof("metrics listening on http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %v", err)
	}
}

// unavailableTyper reports why keystrokes cannot be sent.
type unavailableTyper struct{ err error }

func (u unavailableTyper) Type(context.Context, string, time.Duration) error { return u.err }
