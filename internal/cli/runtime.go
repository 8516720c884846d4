package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/compare"
	"github.com/goliatone/go-expect/config"
	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/pkg/activity"
	"github.com/goliatone/go-expect/pkg/checkpoint"
	"github.com/goliatone/go-expect/stream"
	"github.com/goliatone/go-expect/wait"
)

// Filter field values carrying one of these prefixes are compiled into
// filters; everything else is compared literally.
const (
	exprPrefix  = "expr:"
	regexPrefix = "re:"
	evalPrefix  = "eval:"
)

const maxLineSize = 1 << 20

// streamFlags are shared by the commands that replay a log.
type streamFlags struct {
	filterPath string
	logPath    string
	stream     string
	consumer   string
	timeout    time.Duration
}

func (f *streamFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.filterPath, "filter", "f", "", "filter message (JSON object)")
	cmd.Flags().StringVarP(&f.logPath, "log", "l", "", "message log (one JSON object per line)")
	cmd.Flags().StringVar(&f.stream, "stream", "log", "stream name used for checkpoints")
	cmd.Flags().StringVar(&f.consumer, "consumer", "goexpect", "consumer name used for checkpoints")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "scan timeout (defaults to wait.default_timeout)")
	_ = cmd.MarkFlagRequired("filter")
	_ = cmd.MarkFlagRequired("log")
}

// runtime is everything a command needs, built from configuration.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	emitter    *activity.Emitter
	engine     *expect.Engine
	store      checkpoint.Store
	closeStore func() error
}

func loadRuntime(opts *RootOptions, stderr io.Writer) (*runtime, error) {
	var (
		cfg *config.Config
		err error
	)
	if len(opts.ConfigPaths) > 0 {
		cfg, err = config.LoadLayers(opts.ConfigPaths...)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := config.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	engine, err := cfg.NewEngine(nil, registry, logger)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := cfg.OpenCheckpointStore(logger)
	if err != nil {
		return nil, err
	}
	emitter := activity.NewEmitter(activity.Hooks{logEvents(logger)}, activity.Config{
		Enabled: true,
		ActorID: "goexpect",
	})
	return &runtime{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		emitter:    emitter,
		engine:     engine,
		store:      store,
		closeStore: closeStore,
	}, nil
}

func (r *runtime) Close() error {
	return r.closeStore()
}

func (r *runtime) orchestrator() *wait.Orchestrator {
	opts := append(r.cfg.WaitOptions(r.registry, r.logger), wait.WithEmitter(r.emitter))
	return wait.New(compare.Default{}, opts...)
}

// writeMetrics dumps the run's metrics in the prometheus text format when
// metrics are enabled.
func (r *runtime) writeMetrics(w io.Writer) error {
	if !r.cfg.Metrics.Enabled {
		return nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return err
		}
	}
	return nil
}

// logEvents reports resolutions as debug records.
func logEvents(logger *slog.Logger) activity.HookFunc {
	return func(ctx context.Context, event activity.Event) error {
		logger.DebugContext(ctx, "verification event",
			slog.String("verb", event.Verb),
			slog.String("object_id", event.ObjectID),
			slog.String("actor_id", event.ActorID),
			slog.Any("metadata", event.Metadata),
		)
		return nil
	}
}

func (r *runtime) timeout(flags *streamFlags) time.Duration {
	if flags.timeout > 0 {
		return flags.timeout
	}
	return r.cfg.Wait.DefaultTimeout
}

// replay publishes the log into a closed queue and opens the consumer's
// cursor on it, resuming from any stored checkpoint.
func (r *runtime) replay(ctx context.Context, flags *streamFlags) (*stream.Queue, *stream.Cursor, error) {
	msgs, err := readLog(flags.logPath)
	if err != nil {
		return nil, nil, err
	}
	queue := stream.NewQueue(flags.stream,
		stream.WithTypePolicy(r.cfg.TypePolicy()),
		stream.WithStore(r.store),
		stream.WithLogger(r.logger),
	)
	for _, msg := range msgs {
		if _, _, err := queue.Publish(msg); err != nil {
			return nil, nil, err
		}
	}
	queue.Close()
	cursor, err := queue.Open(ctx, flags.consumer)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Debug("log replayed", "stream", flags.stream, "consumer", flags.consumer,
		"messages", len(msgs), "stored", queue.Len(), "resume", cursor.Position())
	return queue, cursor, nil
}

func (r *runtime) loadFilter(path string) (message.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter: %w", err)
	}
	msg, err := message.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", path, err)
	}
	return compileFilter(r.engine, msg)
}

func readLog(path string) ([]message.Message, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer file.Close()

	var msgs []message.Message
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		msg, err := message.FromJSON([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("log %s:%d: %w", path, line, err)
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return msgs, nil
}

// compileFilter replaces prefixed string fields with filters, recursing
// into nested messages and repeating groups.
func compileFilter(engine *expect.Engine, msg message.Message) (message.Message, error) {
	out := msg.Clone()
	for _, name := range msg.FieldNames() {
		value, _ := msg.Get(name)
		compiled, err := compileValue(engine, value)
		if err != nil {
			return nil, fmt.Errorf("filter field %q: %w", name, err)
		}
		out.Set(name, compiled)
	}
	return out, nil
}

func compileValue(engine *expect.Engine, value any) (any, error) {
	switch typed := value.(type) {
	case string:
		switch {
		case strings.HasPrefix(typed, exprPrefix):
			return engine.BuildExpressionFilter(strings.TrimPrefix(typed, exprPrefix), nil)
		case strings.HasPrefix(typed, regexPrefix):
			return expect.NewRegexFilter(strings.TrimPrefix(typed, regexPrefix))
		case strings.HasPrefix(typed, evalPrefix):
			return engine.BuildFilter(strings.TrimPrefix(typed, evalPrefix), nil)
		}
		return typed, nil
	case message.Message:
		return compileFilter(engine, typed)
	case []message.Message:
		legs := make([]message.Message, len(typed))
		for i, leg := range typed {
			compiled, err := compileFilter(engine, leg)
			if err != nil {
				return nil, err
			}
			legs[i] = compiled
		}
		return legs, nil
	default:
		return value, nil
	}
}
