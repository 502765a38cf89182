// ABOUTME: Entry point for the mixcheck CLI
// ABOUTME: Analyzes resources, runs the review TUI or watches a review server
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/internal/discovery"
	"github.com/mixroom/mixcheck/internal/dropfolder"
	"github.com/mixroom/mixcheck/internal/logging"
	"github.com/mixroom/mixcheck/internal/player"
	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/internal/ui"
	"github.com/mixroom/mixcheck/internal/version"
	"github.com/mixroom/mixcheck/pkg/analysis"
	"github.com/mixroom/mixcheck/pkg/audio/decode"
	"github.com/mixroom/mixcheck/pkg/audio/fetch"
	"github.com/mixroom/mixcheck/pkg/protocol"
)

var (
	channel     = flag.Int("channel", 0, "Channel to analyze")
	allChannels = flag.Bool("all-channels", false, "Analyze every channel instead of one")
	clip        = flag.Float64("clip", analysis.DefaultClipThreshold, "Clip threshold on normalized amplitude")
	timeout     = flag.Duration("timeout", 0, "Per-resource analysis timeout (0 for none)")
	reviewMode  = flag.Bool("review", false, "Review the given resources in a TUI")
	project     = flag.String("project", "local", "Project ID for files opened with -review")
	watch       = flag.Bool("watch", false, "Stream events from a review server")
	serverAddr  = flag.String("server", os.Getenv("MIXCHECK_SERVER"), "Review server host:port for -watch (default: mDNS discovery)")
	name        = flag.String("name", "", "Watcher name (default: hostname-mixcheck-watch)")
	logFile     = flag.String("log-file", "mixcheck.log", "Log file path")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	verbose     = flag.Bool("verbose", false, "Also log to stderr (ignored with -review)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  mixcheck [-channel N | -all-channels] [-clip 0.99] URL...\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  mixcheck -review URL|DIR...\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  mixcheck -watch [-server host:port]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := logging.New(logging.Options{
		Level:   *logLevel,
		File:    *logFile,
		Console: *verbose && !*reviewMode,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error setting up logging: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var code int
	switch {
	case *watch:
		code = runWatch(ctx, logger)
	case flag.NArg() == 0:
		flag.Usage()
		code = 2
	case *reviewMode:
		code = runReview(ctx, logger, flag.Args())
	default:
		code = runAnalyze(ctx, logger, flag.Args())
	}

	_ = logger.Sync()
	stop()
	os.Exit(code)
}

func newDecoder(logger *zap.SugaredLogger) *decode.ResourceDecoder {
	fetcher := fetch.New(fetch.Config{
		UserAgent: version.UserAgent(),
		Logger:    logger,
	})
	return decode.NewResourceDecoder(fetcher, logger)
}

func newAnalyzer(decoder analysis.Decoder, logger *zap.SugaredLogger) *analysis.Analyzer {
	selection := analysis.Channel(*channel)
	if *allChannels {
		selection = analysis.AllChannels()
	}
	return analysis.New(analysis.Config{
		Decoder: decoder,
		Options: analysis.Options{Channels: selection, ClipThreshold: *clip},
		Logger:  logger,
	})
}

// analyzeOutput is one line of analyze mode output
type analyzeOutput struct {
	Resource string           `json:"resource"`
	Report   *analysis.Report `json:"report,omitempty"`
	Flags    []review.Flag    `json:"flags,omitempty"`
	Verdict  review.Severity  `json:"verdict,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// runAnalyze prints a report per resource. It fails when any resource
// cannot be analyzed or fails the policy.
func runAnalyze(ctx context.Context, logger *zap.SugaredLogger, resources []string) int {
	if *channel < 0 {
		fmt.Fprintf(os.Stderr, "invalid -channel %d\n", *channel)
		return 2
	}

	analyzer := newAnalyzer(newDecoder(logger), logger)
	policy := review.DefaultPolicy()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	code := 0
	for _, resource := range resources {
		out := analyzeOutput{Resource: resource}

		report, err := inspect(ctx, analyzer, resource)
		switch {
		case err != nil:
			logger.Warnw("analysis failed", "resource", resource, "error", err)
			out.Error = err.Error()
			code = 1
		default:
			out.Report = &report
			out.Flags = policy.Evaluate(report.Metrics)
			out.Verdict = review.Worst(out.Flags)
			if out.Verdict == review.SeverityFail {
				code = 1
			}
		}

		if err := enc.Encode(out); err != nil {
			logger.Errorw("failed to write report", "error", err)
			return 1
		}
		if errors.Is(err, analysis.ErrCancelled) && ctx.Err() != nil {
			break
		}
	}
	return code
}

func inspect(ctx context.Context, analyzer *analysis.Analyzer, resource string) (analysis.Report, error) {
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	return analyzer.Inspect(ctx, resource)
}

// runReview opens the resources in an in-process review session.
// Directories are scanned and watched for new uploads.
func runReview(ctx context.Context, logger *zap.SugaredLogger, resources []string) int {
	decoder := newDecoder(logger)
	service, err := review.NewService(review.Config{
		Analyzer:   newAnalyzer(decoder, logger),
		Cache:      review.NewCache(),
		Logger:     logger,
		AllowLocal: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	refresh := make(chan struct{}, 1)

	for _, resource := range resources {
		if info, statErr := os.Stat(resource); statErr == nil && info.IsDir() {
			err = openDropFolder(watchCtx, service, resource, refresh, logger)
		} else {
			err = register(ctx, service, resource)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", resource, err)
			return 1
		}
	}

	output := player.NewOutput(logger)
	defer output.Close()

	if err := ui.Run(ui.Config{
		Workflow:  service,
		Previewer: player.NewPreviewer(decoder, output, logger),
		ProjectID: *project,
		Refresh:   refresh,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func register(ctx context.Context, service *review.Service, resource string) error {
	_, err := service.Register(ctx, review.FileSpec{
		ProjectID: *project,
		Name:      displayName(resource),
		URL:       resource,
	})
	return err
}

// openDropFolder registers the audio files in dir and keeps registering
// new ones until ctx ends
func openDropFolder(ctx context.Context, service *review.Service, dir string, refresh chan<- struct{}, logger *zap.SugaredLogger) error {
	watcher, err := dropfolder.New(dir, logger)
	if err != nil {
		return err
	}

	files, err := dropfolder.Scan(dir)
	if err != nil {
		watcher.Close()
		return err
	}
	registry := newDropRegistry(service)
	for _, file := range files {
		if _, err := registry.add(ctx, file); err != nil {
			watcher.Close()
			return err
		}
	}

	go func() {
		defer watcher.Close()
		watcher.Run(ctx, func(path string) {
			replaced, err := registry.add(ctx, path)
			if err != nil {
				logger.Warnw("failed to register dropped file", "path", path, "error", err)
				return
			}
			if replaced {
				logger.Debugw("drop folder file rewritten", "path", path)
			}
			select {
			case refresh <- struct{}{}:
			default:
			}
		})
	}()
	return nil
}

// dropRegistry remembers which file each drop folder path was registered
// as. A path seen again is a new upload of that file.
type dropRegistry struct {
	service *review.Service
	mu      sync.Mutex
	files   map[string]string
}

func newDropRegistry(service *review.Service) *dropRegistry {
	return &dropRegistry{service: service, files: make(map[string]string)}
}

// add registers path, or replaces the upload of the file already
// registered for it
func (d *dropRegistry) add(ctx context.Context, path string) (replaced bool, err error) {
	path = filepath.Clean(path)

	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.files[path]; ok {
		_, err := d.service.ReplaceURL(ctx, id, path)
		return true, err
	}
	file, err := d.service.Register(ctx, review.FileSpec{
		ProjectID: *project,
		Name:      displayName(path),
		URL:       path,
	})
	if err != nil {
		return false, err
	}
	d.files[path] = file.ID
	return false, nil
}

// displayName is the last path element of a URL or file path
func displayName(resource string) string {
	if u, err := url.Parse(resource); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(resource)
}

// runWatch prints server events until interrupted
func runWatch(ctx context.Context, logger *zap.SugaredLogger) int {
	addr := *serverAddr
	if addr == "" {
		fmt.Fprintln(os.Stderr, "Discovering review server...")
		discoverCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		server, err := discovery.Discover(discoverCtx, logger)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		addr = server.Addr()
	}

	watcherName := *name
	if watcherName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		watcherName = fmt.Sprintf("%s-mixcheck-watch", hostname)
	}

	client := protocol.NewClient(protocol.Config{
		ServerAddr: addr,
		Name:       watcherName,
		DeviceInfo: &protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
		Logger: logger,
	})

	fmt.Fprintf(os.Stderr, "Watching %s\n", addr)
	err := client.Watch(ctx, func(msg protocol.Message) {
		fmt.Printf("%s %s\n", time.Now().Format("15:04:05"), watchLine(msg))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// watchLine renders a received event on one line
func watchLine(msg protocol.Message) string {
	switch msg.Type {
	case protocol.TypeFileRegistered, protocol.TypeFileReplaced:
		var event protocol.FileEvent
		if err := msg.DecodePayload(&event); err == nil {
			return fmt.Sprintf("%s %s (%s)", msg.Type, event.Name, event.URL)
		}
	case protocol.TypeAnalysisStarted, protocol.TypeAnalysisSucceeded,
		protocol.TypeAnalysisFailed, protocol.TypeAnalysisCancelled:
		var event protocol.AnalysisEvent
		if err := msg.DecodePayload(&event); err != nil {
			break
		}
		switch {
		case event.Error != "":
			return fmt.Sprintf("%s %s: %s", msg.Type, event.Name, event.Error)
		case event.Metrics != nil:
			flags := make([]review.Flag, len(event.Flags))
			for i, f := range event.Flags {
				flags[i] = review.Flag{Metric: f.Metric, Severity: review.Severity(f.Severity), Message: f.Message}
			}
			verdict := review.Worst(flags)
			return fmt.Sprintf("%s %s: %s, peak %.2f, %d clips", msg.Type, event.Name, verdict,
				event.Metrics.PeakLevel, event.Metrics.ClippingPoints)
		default:
			return fmt.Sprintf("%s %s", msg.Type, event.Name)
		}
	case protocol.TypeReviewSubmitted:
		var event protocol.ReviewEvent
		if err := msg.DecodePayload(&event); err == nil {
			return fmt.Sprintf("%s %s: %s (%s)", msg.Type, event.FileID, event.Status, event.Feedback)
		}
	}
	return msg.Type
}
