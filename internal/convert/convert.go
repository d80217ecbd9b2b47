// Package convert runs a conversion request through the remote model and
// the fallback rewriter, and records the result in the session.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/verte-zerg/easytalk/internal/fallback"
	"github.com/verte-zerg/easytalk/internal/model"
)

// FallbackWarning is shown when the remote path failed and the rule-based
// rewriter produced the result.
const FallbackWarning = "백업 변환기로 변환되었습니다."

var (
	// ErrEmptyInput is returned for blank input; the session is untouched.
	ErrEmptyInput = errors.New("text to convert is empty")
	// ErrConversionFailed means both the remote path and the fallback failed.
	ErrConversionFailed = errors.New("conversion failed")
)

// Rewriter produces a conversion result for a request.
type Rewriter interface {
	Rewrite(ctx context.Context, req model.ConversionRequest) (model.ConversionResult, error)
}

// Repository persists session snapshots.
type Repository interface {
	AppendHistory(ctx context.Context, entry model.HistoryEntry) error
	ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
	LoadStats(ctx context.Context) (model.UsageStats, error)
	SaveStats(ctx context.Context, stats model.UsageStats) error
	ResetStats(ctx context.Context) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// Outcome describes how a conversion ended.
type Outcome struct {
	State    model.ConversionState
	Original string
	Result   model.ConversionResult
	Entry    model.HistoryEntry
	// Warning is set when the remote call failed and the fallback was used.
	Warning string
	// RemoteErr is the remote failure behind Warning, if any.
	RemoteErr error
}

// Options configures an Orchestrator.
type Options struct {
	Logger       *logrus.Logger
	HistoryLimit int
	// OnBusy is called with true when a request starts and false when it
	// ends, on every path.
	OnBusy func(bool)
	Now    func() time.Time
	NewID  func() string
}

// Orchestrator coordinates a single conversion.
type Orchestrator struct {
	remote       Rewriter
	repo         Repository
	logger       *logrus.Logger
	historyLimit int
	onBusy       func(bool)
	now          func() time.Time
	newID        func() string
	fallback     func(string, model.SpeechStyle) model.ConversionResult
}

// New creates an Orchestrator. repo may be nil, in which case nothing is
// persisted.
func New(remote Rewriter, repo Repository, opts Options) *Orchestrator {
	o := &Orchestrator{
		remote:       remote,
		repo:         repo,
		logger:       opts.Logger,
		historyLimit: opts.HistoryLimit,
		onBusy:       opts.OnBusy,
		now:          opts.Now,
		newID:        opts.NewID,
		fallback:     fallback.Rewrite,
	}
	if o.logger == nil {
		o.logger = logrus.New()
		o.logger.SetOutput(io.Discard)
	}
	if o.historyLimit <= 0 {
		o.historyLimit = model.HistoryLimit
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o
}

// Convert rewrites text in the session's speech style. Blank input returns
// ErrEmptyInput without touching the session. A failing remote call falls
// back to the rule-based rewriter and is reported through Outcome.Warning,
// not as an error.
func (o *Orchestrator) Convert(ctx context.Context, sess *model.Session, text string) (Outcome, error) {
	input := strings.TrimSpace(norm.NFC.String(text))
	if input == "" {
		return Outcome{State: sess.State}, ErrEmptyInput
	}

	o.setBusy(true)
	defer o.setBusy(false)
	sess.State = model.StateRequesting
	defer func() { sess.State = model.StateIdle }()

	styleToUse := sess.Style
	if !styleToUse.Valid() {
		styleToUse = model.DefaultStyle
	}
	req := model.ConversionRequest{OriginalText: input, Style: styleToUse}
	log := o.logger.WithFields(logrus.Fields{"user": sess.User, "style": styleToUse})

	out := Outcome{Original: input}
	result, remoteErr := o.callRemote(ctx, req)
	switch {
	case remoteErr != nil:
		log.WithError(remoteErr).Warn("remote rewrite failed, using fallback")
		fb, err := o.safeFallback(input, styleToUse)
		if err != nil {
			log.WithError(err).Error("fallback rewrite failed")
			out.State = model.StateFailed
			return out, fmt.Errorf("%w: %v", ErrConversionFailed, remoteErr)
		}
		result = fb
		out.State = model.StateFallback
		out.Warning = FallbackWarning
		out.RemoteErr = remoteErr
	case result.Source == model.SourceFallback:
		out.State = model.StateFallback
	default:
		out.State = model.StateSuccess
	}
	out.Result = result
	out.Entry = o.record(ctx, sess, input, result)

	log.WithFields(logrus.Fields{
		"state":        out.State,
		"source":       result.Source,
		"replacements": len(result.Replacements),
	}).Info("conversion finished")
	return out, nil
}

func (o *Orchestrator) callRemote(ctx context.Context, req model.ConversionRequest) (model.ConversionResult, error) {
	if o.remote == nil {
		return model.ConversionResult{}, errors.New("no remote rewriter configured")
	}
	return o.remote.Rewrite(ctx, req)
}

func (o *Orchestrator) safeFallback(text string, st model.SpeechStyle) (res model.ConversionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback panicked: %v", r)
		}
	}()
	return o.fallback(text, st), nil
}

func (o *Orchestrator) record(ctx context.Context, sess *model.Session, original string, result model.ConversionResult) model.HistoryEntry {
	entry := model.HistoryEntry{
		ID:        o.newID(),
		Original:  original,
		Converted: result.ConvertedText,
		Timestamp: o.now(),
		User:      sess.User,
		Style:     result.Style,
		Source:    result.Source,
	}
	sess.Current = &model.CurrentResult{Original: original, Result: result}
	sess.History = model.PrependHistory(sess.History, entry, o.historyLimit)
	sess.Stats.Record(len(result.Replacements))

	if o.repo == nil {
		return entry
	}
	if err := o.repo.AppendHistory(ctx, entry); err != nil {
		o.logger.WithError(err).Warn("failed to persist history entry")
	}
	if err := o.repo.SaveStats(ctx, sess.Stats); err != nil {
		o.logger.WithError(err).Warn("failed to persist usage stats")
	}
	return entry
}

func (o *Orchestrator) setBusy(busy bool) {
	if o.onBusy != nil {
		o.onBusy(busy)
	}
}
