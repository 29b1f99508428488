package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"helioframe/internal/logging"
	"helioframe/internal/raster"
	"helioframe/internal/services"
	"helioframe/internal/source"
)

// Mode selects how per-channel capture times are reconciled into one
// canonical batch timestamp.
type Mode string

const (
	// ModeIndependent fetches every channel for the same nominal instant and
	// takes the latest actual capture time as canonical.
	ModeIndependent Mode = "independent"
	// ModeAnchored fetches a reference channel first; its capture time becomes
	// the nominal instant for the remaining channels and the canonical
	// timestamp of the batch.
	ModeAnchored Mode = "anchored"
	// ModeSingle fetches exactly one channel.
	ModeSingle Mode = "single"
)

// ParseMode validates a configured mode string.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeIndependent, ModeAnchored, ModeSingle:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unknown reconciliation mode %q", value)
	}
}

// ChannelResult is one successfully fetched and normalized channel.
type ChannelResult struct {
	Channel int
	Actual  time.Time
	Plane   raster.Plane
}

// Outcome is the reconciled product of one acquisition run. Results keep
// wave arrival order; the container assembler imposes any further ordering.
type Outcome struct {
	Canonical time.Time
	Results   []ChannelResult
}

// Request describes one acquisition run.
type Request struct {
	Nominal   time.Time
	Mode      Mode
	Channels  []int
	Reference int
	Policy    raster.Policy
	Precision source.Precision
}

// Acquirer fans fetch+normalize operations out across channels and applies
// the partial-failure policy.
type Acquirer struct {
	fetcher source.Fetcher
	logger  *slog.Logger
}

// New constructs an Acquirer.
func New(fetcher source.Fetcher, logger *slog.Logger) *Acquirer {
	return &Acquirer{
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "acquirer"),
	}
}

// Acquire runs the requested wave(s) and reconciles the canonical timestamp.
// Per-channel failures degrade the result set; a run with zero successes (or
// a failed reference channel in anchored mode) fails fatally and no partial
// output is produced.
func (a *Acquirer) Acquire(ctx context.Context, req Request) (*Outcome, error) {
	switch req.Mode {
	case ModeIndependent:
		return a.acquireIndependent(ctx, req)
	case ModeAnchored:
		return a.acquireAnchored(ctx, req)
	case ModeSingle:
		return a.acquireSingle(ctx, req)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "acquiring", "select mode",
			fmt.Sprintf("unknown mode %q", req.Mode), nil)
	}
}

func (a *Acquirer) acquireIndependent(ctx context.Context, req Request) (*Outcome, error) {
	results := a.wave(ctx, req.Nominal, req.Channels, req)
	if len(results) == 0 {
		return nil, services.Wrap(services.ErrReconciliation, "acquiring", "reconcile",
			"no channels acquired", nil)
	}

	canonical := results[0].Actual
	for _, result := range results[1:] {
		if result.Actual.After(canonical) {
			canonical = result.Actual
		}
	}
	return &Outcome{Canonical: canonical, Results: results}, nil
}

func (a *Acquirer) acquireAnchored(ctx context.Context, req Request) (*Outcome, error) {
	reference, err := a.fetchChannel(ctx, req.Nominal, req.Reference, req)
	if err != nil {
		return nil, services.Wrap(services.ErrReconciliation, "acquiring", "fetch reference",
			fmt.Sprintf("reference channel %d failed", req.Reference), err)
	}

	// The follower wave queries the instant the reference actually captured,
	// so all channels describe the same moment as closely as the source allows.
	results := a.wave(ctx, reference.Actual, req.Channels, req)
	results = append(results, reference)

	return &Outcome{Canonical: reference.Actual, Results: results}, nil
}

func (a *Acquirer) acquireSingle(ctx context.Context, req Request) (*Outcome, error) {
	if len(req.Channels) != 1 {
		return nil, services.Wrap(services.ErrConfiguration, "acquiring", "validate request",
			fmt.Sprintf("single mode requires exactly one channel, got %d", len(req.Channels)), nil)
	}
	result, err := a.fetchChannel(ctx, req.Nominal, req.Channels[0], req)
	if err != nil {
		return nil, services.Wrap(services.ErrReconciliation, "acquiring", "fetch channel",
			"no channels acquired", err)
	}
	return &Outcome{Canonical: result.Actual, Results: []ChannelResult{result}}, nil
}

// wave launches one barrier-synchronized batch of concurrent fetch+normalize
// operations. All operations run to completion regardless of individual
// failures; failures are logged and dropped. Successes are collected in
// completion order.
func (a *Acquirer) wave(ctx context.Context, nominal time.Time, channels []int, req Request) []ChannelResult {
	var (
		mu      sync.Mutex
		results []ChannelResult
	)

	// Goroutines always return nil: the group is used purely as a join
	// barrier so one failed channel never cancels its siblings.
	group := new(errgroup.Group)
	for _, channel := range channels {
		channel := channel
		group.Go(func() error {
			result, err := a.fetchChannel(ctx, nominal, channel, req)
			if err != nil {
				logging.WithContext(ctx, a.logger).Warn("channel dropped from wave",
					logging.Int(logging.FieldChannel, channel),
					logging.Error(err),
				)
				return nil
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return results
}

func (a *Acquirer) fetchChannel(ctx context.Context, nominal time.Time, channel int, req Request) (ChannelResult, error) {
	payload, err := a.fetcher.FetchImage(ctx, nominal, channel)
	if err != nil {
		return ChannelResult{}, services.Wrap(services.ErrTransport, "acquiring", "fetch",
			fmt.Sprintf("channel %d", channel), err)
	}

	// Missing or malformed filename metadata silently degrades to the
	// nominal timestamp.
	actual, ok := source.ParseFilenameTime(payload.Filename, req.Precision)
	if !ok {
		actual = nominal.UTC()
	}

	plane, err := raster.Normalize(payload.Body, req.Policy)
	if err != nil {
		return ChannelResult{}, services.Wrap(services.ErrDecode, "acquiring", "normalize",
			fmt.Sprintf("channel %d", channel), err)
	}

	return ChannelResult{Channel: channel, Actual: actual, Plane: plane}, nil
}
