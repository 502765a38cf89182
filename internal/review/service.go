// ABOUTME: Review workflow service
// ABOUTME: Registers files, runs on-demand analysis and records decisions
package review

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/pkg/analysis"
	"github.com/mixroom/mixcheck/pkg/protocol"
)

// Analyzer produces a report for a resource
type Analyzer interface {
	Inspect(ctx context.Context, resource string) (analysis.Report, error)
}

// Notifier receives workflow events
type Notifier interface {
	Notify(msg protocol.Message)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(msg protocol.Message)

func (f NotifierFunc) Notify(msg protocol.Message) {
	f(msg)
}

// Config holds service configuration
type Config struct {
	Analyzer Analyzer
	Store    Store  // nil uses a MemoryStore
	Cache    *Cache // nil disables caching
	Policy   *Policy
	Notifier Notifier
	Logger   *zap.SugaredLogger

	// AllowLocal accepts file paths and file:// URLs besides http(s).
	// Only in-process sessions should set it.
	AllowLocal bool
}

// Result is the outcome of Service.Analyze
type Result struct {
	File   File            `json:"file"`
	Report analysis.Report `json:"report"`
	Flags  []Flag          `json:"flags"`
	Cached bool            `json:"cached"`
}

// Service runs the review workflow. Analysis happens only when asked for.
type Service struct {
	analyzer Analyzer
	store    Store
	cache    *Cache
	policy   Policy
	notifier Notifier
	logger   *zap.SugaredLogger

	allowLocal bool

	// mu serializes read-check-write sequences on stored files
	mu sync.Mutex
}

// NewService creates a review service
func NewService(config Config) (*Service, error) {
	if config.Analyzer == nil {
		return nil, errors.New("review service needs an analyzer")
	}
	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}
	policy := DefaultPolicy()
	if config.Policy != nil {
		policy = *config.Policy
	}
	notifier := config.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(protocol.Message) {})
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Service{
		analyzer:   config.Analyzer,
		store:      store,
		cache:      config.Cache,
		policy:     policy,
		notifier:   notifier,
		logger:     logger,
		allowLocal: config.AllowLocal,
	}, nil
}

// Policy returns the thresholds the service evaluates against
func (s *Service) Policy() Policy {
	return s.policy
}

// Register adds a file to review
func (s *Service) Register(ctx context.Context, spec FileSpec) (File, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	spec.URL = strings.TrimSpace(spec.URL)
	if spec.Name == "" || spec.URL == "" {
		return File{}, ErrInvalidFile
	}
	if err := s.validateURL(spec.URL); err != nil {
		return File{}, err
	}
	if spec.ContentType != "" && !Allowed(spec.ContentType) {
		return File{}, fmt.Errorf("%w: %s", ErrUnsupportedType, spec.ContentType)
	}

	now := time.Now()
	file := File{
		ID:        uuid.New().String(),
		ProjectID: spec.ProjectID,
		Name:      spec.Name,
		URL:       spec.URL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutFile(ctx, file); err != nil {
		return File{}, fmt.Errorf("failed to store file: %w", err)
	}

	s.logger.Infow("file registered", "file_id", file.ID, "name", file.Name, "project", file.ProjectID)
	s.notifier.Notify(protocol.Message{Type: protocol.TypeFileRegistered, Payload: fileEvent(file)})
	return file, nil
}

// ReplaceURL points a file at a new upload. Its previous report and any
// cached analysis are dropped.
func (s *Service) ReplaceURL(ctx context.Context, id, rawURL string) (File, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return File{}, ErrInvalidFile
	}
	if err := s.validateURL(rawURL); err != nil {
		return File{}, err
	}

	s.mu.Lock()
	file, err := s.store.File(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return File{}, err
	}

	file.URL = rawURL
	file.Report = nil
	file.AnalyzedAt = nil
	file.UpdatedAt = time.Now()
	if err := s.store.PutFile(ctx, file); err != nil {
		s.mu.Unlock()
		return File{}, fmt.Errorf("failed to store file: %w", err)
	}

	if s.cache != nil {
		removed := s.cache.Invalidate(id)
		s.logger.Debugw("cache invalidated", "file_id", id, "entries", removed)
	}
	s.mu.Unlock()

	s.logger.Infow("file replaced", "file_id", id, "url", rawURL)
	s.notifier.Notify(protocol.Message{Type: protocol.TypeFileReplaced, Payload: fileEvent(file)})
	return file, nil
}

// File returns one file
func (s *Service) File(ctx context.Context, id string) (File, error) {
	return s.store.File(ctx, id)
}

// Files lists files, optionally for a single project
func (s *Service) Files(ctx context.Context, projectID string) ([]File, error) {
	return s.store.Files(ctx, projectID)
}

// Reviews lists the decisions recorded for a file
func (s *Service) Reviews(ctx context.Context, id string) ([]Review, error) {
	return s.store.Reviews(ctx, id)
}

// Analyze runs the analyzer on a file. A cached report for the file's
// current URL is reused unless force is set.
func (s *Service) Analyze(ctx context.Context, id string, force bool) (Result, error) {
	file, err := s.store.File(ctx, id)
	if err != nil {
		return Result{}, err
	}

	if !force && s.cache != nil {
		if report, ok := s.cache.Get(file.ID, file.URL); ok {
			s.logger.Debugw("analysis cache hit", "file_id", id)
			return s.complete(ctx, file, report, true)
		}
	}

	event := analysisEvent(file)
	s.notifier.Notify(protocol.Message{Type: protocol.TypeAnalysisStarted, Payload: event})

	report, err := s.analyzer.Inspect(ctx, file.URL)
	if err != nil {
		event.Error = err.Error()
		if errors.Is(err, analysis.ErrCancelled) {
			s.logger.Debugw("analysis cancelled", "file_id", id)
			s.notifier.Notify(protocol.Message{Type: protocol.TypeAnalysisCancelled, Payload: event})
		} else {
			s.logger.Warnw("analysis failed", "file_id", id, "url", file.URL, "error", err)
			s.notifier.Notify(protocol.Message{Type: protocol.TypeAnalysisFailed, Payload: event})
		}
		return Result{}, err
	}

	return s.complete(ctx, file, report, false)
}

// complete stores report on the file unless the file was pointed at a new
// upload, even one at the same URL, after analyzed was read. The check and the write happen under
// s.mu so a concurrent ReplaceURL is never overwritten.
func (s *Service) complete(ctx context.Context, analyzed File, report analysis.Report, cached bool) (Result, error) {
	s.mu.Lock()
	file, err := s.store.File(ctx, analyzed.ID)
	if err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	if file.URL != analyzed.URL || !file.UpdatedAt.Equal(analyzed.UpdatedAt) {
		s.mu.Unlock()
		event := analysisEvent(analyzed)
		event.Error = ErrFileReplaced.Error()
		s.notifier.Notify(protocol.Message{Type: protocol.TypeAnalysisFailed, Payload: event})
		return Result{}, fmt.Errorf("file %s: %w", analyzed.ID, ErrFileReplaced)
	}

	now := time.Now()
	file.Report = &report
	file.AnalyzedAt = &now
	if err := s.store.PutFile(ctx, file); err != nil {
		s.mu.Unlock()
		return Result{}, fmt.Errorf("failed to store report: %w", err)
	}
	if s.cache != nil && !cached {
		s.cache.Put(file.ID, file.URL, report)
	}
	s.mu.Unlock()

	flags := s.policy.Evaluate(report.Metrics)
	s.logger.Infow("analysis complete",
		"file_id", file.ID,
		"verdict", Worst(flags),
		"cached", cached,
	)

	event := analysisEvent(file)
	event.Metrics = &report.Metrics
	event.Flags = protocolFlags(flags)
	event.Cached = cached
	s.notifier.Notify(protocol.Message{Type: protocol.TypeAnalysisSucceeded, Payload: event})

	return Result{File: file, Report: report, Flags: flags, Cached: cached}, nil
}

// Submit records a reviewer decision. Feedback is mandatory for both
// outcomes. The file's latest metrics, if any, are stored with it.
func (s *Service) Submit(ctx context.Context, id string, status Status, feedback string) (Review, error) {
	if !status.Valid() {
		return Review{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return Review{}, ErrFeedbackRequired
	}

	file, err := s.store.File(ctx, id)
	if err != nil {
		return Review{}, err
	}

	review := Review{
		ID:         uuid.New().String(),
		FileID:     file.ID,
		Status:     status,
		Feedback:   feedback,
		ReviewedAt: time.Now(),
	}
	if file.Report != nil {
		metrics := file.Report.Metrics
		review.Metrics = &metrics
		review.Flags = s.policy.Evaluate(metrics)
	}

	if err := s.store.AddReview(ctx, review); err != nil {
		return Review{}, fmt.Errorf("failed to store review: %w", err)
	}

	s.logger.Infow("review submitted", "file_id", id, "review_id", review.ID, "status", status)
	s.notifier.Notify(protocol.Message{Type: protocol.TypeReviewSubmitted, Payload: protocol.ReviewEvent{
		ReviewID:   review.ID,
		FileID:     review.FileID,
		Status:     string(review.Status),
		Feedback:   review.Feedback,
		Metrics:    review.Metrics,
		ReviewedAt: review.ReviewedAt,
	}})
	return review, nil
}

func (s *Service) validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host in %q", ErrInvalidFile, raw)
		}
	case "file", "":
		if !s.allowLocal {
			return fmt.Errorf("%w: only http and https URLs are accepted", ErrInvalidFile)
		}
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidFile, u.Scheme)
	}
	return nil
}

func fileEvent(file File) protocol.FileEvent {
	return protocol.FileEvent{
		FileID:    file.ID,
		ProjectID: file.ProjectID,
		Name:      file.Name,
		URL:       file.URL,
	}
}

func analysisEvent(file File) protocol.AnalysisEvent {
	return protocol.AnalysisEvent{
		FileID: file.ID,
		Name:   file.Name,
		URL:    file.URL,
	}
}

func protocolFlags(flags []Flag) []protocol.Flag {
	out := make([]protocol.Flag, len(flags))
	for i, f := range flags {
		out[i] = protocol.Flag{Metric: f.Metric, Severity: string(f.Severity), Message: f.Message}
	}
	return out
}
