package logger

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// SampledLogger throttles high-frequency log categories. Messages without a
// configured category, and errors, are always written.
type SampledLogger struct {
	base          Logger
	samplers      map[string]*LogSampler
	samplersMutex *sync.RWMutex
}

// LogSampler holds the sampling state of one category.
type LogSampler struct {
	name           string
	maxFrequency   time.Duration // messages closer together than this count against the burst
	burstAllowance int
	sampleRate     float64 // fraction logged once the burst is used up

	lastLogTime  int64 // unix nanos
	messageCount int64
	burstCounter int64

	totalMessages   int64
	sampledMessages int64
	droppedMessages int64
}

// NewSampledLogger wraps base without any samplers.
func NewSampledLogger(base Logger) *SampledLogger {
	return &SampledLogger{
		base:          base,
		samplers:      make(map[string]*LogSampler),
		samplersMutex: &sync.RWMutex{},
	}
}

// WithSampler configures sampling for category.
func (s *SampledLogger) WithSampler(category string, maxFreq time.Duration, burstAllowance int, sampleRate float64) *SampledLogger {
	s.samplersMutex.Lock()
	defer s.samplersMutex.Unlock()

	s.samplers[category] = &LogSampler{
		name:           category,
		maxFrequency:   maxFreq,
		burstAllowance: burstAllowance,
		sampleRate:     sampleRate,
	}
	return s
}

func (s *SampledLogger) sampler(category string) *LogSampler {
	s.samplersMutex.RLock()
	defer s.samplersMutex.RUnlock()
	return s.samplers[category]
}

func (s *SampledLogger) shouldLog(category string) bool {
	sampler := s.sampler(category)
	if sampler == nil {
		return true
	}
	return sampler.allow(time.Now().UnixNano())
}

func (ls *LogSampler) allow(now int64) bool {
	atomic.AddInt64(&ls.totalMessages, 1)

	if now-atomic.LoadInt64(&ls.lastLogTime) >= ls.maxFrequency.Nanoseconds() {
		// Quiet period elapsed, start a new burst
		atomic.StoreInt64(&ls.burstCounter, 1)
		return ls.accept(now)
	}

	if atomic.AddInt64(&ls.burstCounter, 1) <= int64(ls.burstAllowance) {
		return ls.accept(now)
	}

	if ls.sampleRate > 0 {
		if float64(atomic.AddInt64(&ls.messageCount, 1))*ls.sampleRate >= 1.0 {
			atomic.StoreInt64(&ls.messageCount, 0)
			return ls.accept(now)
		}
	}

	atomic.AddInt64(&ls.droppedMessages, 1)
	return false
}

func (ls *LogSampler) accept(now int64) bool {
	atomic.StoreInt64(&ls.lastLogTime, now)
	atomic.AddInt64(&ls.sampledMessages, 1)
	return true
}

// LogWithCategory writes msg at level when the category's sampler admits it. Written
// entries carry the category and the sampler's running totals.
func (s *SampledLogger) LogWithCategory(level logrus.Level, category, msg string, fields map[string]interface{}) {
	if !s.shouldLog(category) {
		return
	}

	out := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		out[k] = v
	}
	out["category"] = category
	if sampler := s.sampler(category); sampler != nil {
		out["sampled_total"] = atomic.LoadInt64(&sampler.totalMessages)
		out["sampled_dropped"] = atomic.LoadInt64(&sampler.droppedMessages)
	}
	s.base.WithFields(out).Log(level, msg)
}

func (s *SampledLogger) DebugWithCategory(category, msg string, fields map[string]interface{}) {
	s.LogWithCategory(logrus.DebugLevel, category, msg, fields)
}

func (s *SampledLogger) InfoWithCategory(category, msg string, fields map[string]interface{}) {
	s.LogWithCategory(logrus.InfoLevel, category, msg, fields)
}

func (s *SampledLogger) WarnWithCategory(category, msg string, fields map[string]interface{}) {
	s.LogWithCategory(logrus.WarnLevel, category, msg, fields)
}

// ErrorWithCategory is never sampled.
func (s *SampledLogger) ErrorWithCategory(category, msg string, fields map[string]interface{}) {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["category"] = category
	s.base.WithFields(out).Error(msg)
}

// SamplerStats is a snapshot of one sampler's counters.
type SamplerStats struct {
	Name            string  `json:"name"`
	TotalMessages   int64   `json:"total_messages"`
	SampledMessages int64   `json:"sampled_messages"`
	DroppedMessages int64   `json:"dropped_messages"`
	CurrentRate     float64 `json:"current_rate"`
}

// GetSamplerStats returns the counters of every configured category.
func (s *SampledLogger) GetSamplerStats() map[string]SamplerStats {
	s.samplersMutex.RLock()
	defer s.samplersMutex.RUnlock()

	stats := make(map[string]SamplerStats, len(s.samplers))
	for name, sampler := range s.samplers {
		st := SamplerStats{
			Name:            name,
			TotalMessages:   atomic.LoadInt64(&sampler.totalMessages),
			SampledMessages: atomic.LoadInt64(&sampler.sampledMessages),
			DroppedMessages: atomic.LoadInt64(&sampler.droppedMessages),
		}
		if st.TotalMessages > 0 {
			st.CurrentRate = float64(st.SampledMessages) / float64(st.TotalMessages)
		}
		stats[name] = st
	}
	return stats
}

// Per-request log categories of the splice pipeline.
const (
	CategoryPassThrough = "pass_through"
	CategoryDecision    = "decision"
	CategoryPatch       = "patch"
	CategoryFallback    = "origin_fallback"
)

// NewSpliceLogger returns a sampled logger tuned for per-segment request logging.
// Every viewer requests a segment every few seconds, so pass-through and decision
// logs are throttled hard; fallbacks are rarer and kept at a higher rate.
func NewSpliceLogger(base Logger) *SampledLogger {
	return NewSampledLogger(base).
		WithSampler(CategoryPassThrough, 100*time.Millisecond, 10, 0.01).
		WithSampler(CategoryDecision, 100*time.Millisecond, 10, 0.1).
		WithSampler(CategoryPatch, 100*time.Millisecond, 10, 0.1).
		WithSampler(CategoryFallback, time.Second, 5, 0.5)
}

// Logger interface. Derived loggers share the parent's samplers.

func (s *SampledLogger) derive(base Logger) *SampledLogger {
	return &SampledLogger{base: base, samplers: s.samplers, samplersMutex: s.samplersMutex}
}

func (s *SampledLogger) WithFields(fields map[string]interface{}) Logger {
	return s.derive(s.base.WithFields(fields))
}

func (s *SampledLogger) WithField(key string, value interface{}) Logger {
	return s.derive(s.base.WithField(key, value))
}

func (s *SampledLogger) WithError(err error) Logger {
	return s.derive(s.base.WithError(err))
}

func (s *SampledLogger) Debug(args ...interface{}) { s.base.Debug(args...) }
func (s *SampledLogger) Info(args ...interface{})  { s.base.Info(args...) }
func (s *SampledLogger) Warn(args ...interface{})  { s.base.Warn(args...) }
func (s *SampledLogger) Error(args ...interface{}) { s.base.Error(args...) }
func (s *SampledLogger) Fatal(args ...interface{}) { s.base.Fatal(args...) }

func (s *SampledLogger) Log(level logrus.Level, args ...interface{}) {
	s.base.Log(level, args...)
}

func (s *SampledLogger) Debugf(format string, args ...interface{}) { s.base.Debugf(format, args...) }
func (s *SampledLogger) Infof(format string, args ...interface{})  { s.base.Infof(format, args...) }
func (s *SampledLogger) Warnf(format string, args ...interface{})  { s.base.Warnf(format, args...) }
func (s *SampledLogger) Errorf(format string, args ...interface{}) { s.base.Errorf(format, args...) }
