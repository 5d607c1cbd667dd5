package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/voxpaste/internal/history"
	"github.com/MrWong99/voxpaste/internal/observe"
	"github.com/MrWong99/voxpaste/internal/router"
	"github.com/MrWong99/voxpaste/internal/segment"
	"github.com/MrWong99/voxpaste/internal/status"
	"github.com/MrWong99/voxpaste/internal/transcript"
	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/provider/stt"
)

// loop is the state of one capture session. It is owned by the goroutine
// running [loop.run].
type loop struct {
	c      *Controller
	id     string
	cfg    Config
	stream audio.Stream
	engine *segment.Engine
	router *router.Router
	fixer  *transcript.Corrector
	log    *slog.Logger
}

func (l *loop) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	phase, cause := status.PhaseStopped, ""
	defer func() {
		if err := l.stream.Close(); err != nil {
			l.log.Warn("session: close audio stream", "err", err)
		}
		l.c.running.Store(false)
		l.c.deps.Metrics.ActiveSessions.Add(context.Background(), -1)
		l.log.Info("session ended", "phase", phase, "utterances", l.c.utterances.Load())
		l.c.emit(phase, l.id, cause)
	}()

	channels := l.cfg.Format.Channels
	for !l.c.cancelled.Load() {
		chunk, err := l.stream.Read()
		if err != nil {
			if l.c.cancelled.Load() {
				return
			}
			err = fmt.Errorf("%w: read: %w", ErrDevice, err)
			l.log.Error("session: audio capture failed", "err", err)
			phase, cause = status.PhaseError, err.Error()
			return
		}
		mono := audio.Downmix(chunk, channels)

		p, err := l.c.deps.VAD.ProcessFrame(mono)
		if err != nil {
			err = fmt.Errorf("%w: vad: %w", ErrModel, err)
			l.log.Warn("session: scoring failed, resetting segmentation", "err", err)
			if l.engine.Buffered() > 0 {
				l.c.deps.Metrics.RecordDiscard(ctx, "vad_error")
			}
			l.engine.Reset()
			l.c.deps.VAD.Reset()
			l.c.emit(status.PhaseError, l.id, err.Error())
			l.c.emit(status.PhaseListening, l.id, "")
			continue
		}

		out := l.engine.Feed(mono, p)
		if out.Discarded > 0 {
			l.c.deps.Metrics.RecordDiscard(ctx, "too_short")
			l.log.Debug("session: discarded short noise", "chunks", out.Discarded)
		}
		if out.Confirmed {
			l.c.emit(status.PhaseRecording, l.id, "")
		}
		if !out.Ready() {
			continue
		}

		l.handle(ctx, out.Utterance)
		if !l.c.cancelled.Load() {
			l.c.emit(status.PhaseListening, l.id, "")
		}
	}
}

// handle transcribes and routes one utterance. The WAV file is removed
// before handle returns, whatever the outcome.
func (l *loop) handle(ctx context.Context, u *segment.Utterance) {
	format := l.cfg.monoFormat()
	pcm := u.PCM()
	dur := format.Duration(len(pcm))
	metrics := l.c.deps.Metrics

	l.c.emit(status.PhaseTranscribing, l.id, "")
	metrics.UtteranceDuration.Record(ctx, dur.Seconds())

	path, cleanup, err := audio.WriteTempWAV(l.cfg.TempDir, pcm, format)
	if err != nil {
		l.log.Error("session: write utterance", "err", err)
		metrics.RecordDiscard(ctx, "wav_error")
		l.c.emit(status.PhaseError, l.id, err.Error())
		return
	}
	defer cleanup()

	ctx, span := observe.StartUtteranceSpan(ctx, l.id, u.Len(), dur)
	start := time.Now()
	tr, err := l.c.deps.STT.Transcribe(ctx, stt.Request{
		AudioPath:  path,
		SampleRate: format.SampleRate,
		Language:   l.cfg.Language,
		Duration:   dur,
	})
	observe.EndSpan(span, err)
	metrics.STTDuration.Record(ctx, time.Since(start).Seconds())

	log := observe.Logger(ctx).With("session_id", l.id)
	if err != nil {
		if l.c.cancelled.Load() {
			log.Debug("session: transcription abandoned on stop", "err", err)
			metrics.RecordDiscard(ctx, "stopped")
			return
		}
		metrics.RecordDiscard(ctx, "stt_error")
		err = fmt.Errorf("%w: transcribe: %w", ErrModel, err)
		log.Warn("session: transcription failed, utterance dropped", "err", err)
		l.c.emit(status.PhaseError, l.id, err.Error())
		return
	}

	decision := l.router.Route(tr.Text)
	entry := history.Entry{
		SessionID: l.id,
		RawText:   tr.Text,
		Text:      decision.Text,
		Action:    decision.Action.String(),
		Provider:  tr.Provider,
		Timestamp: time.Now().UTC(),
		Duration:  dur,
	}

	switch decision.Action {
	case router.ActionStop:
		log.Info("session: stop phrase heard")
		l.c.requestStop(l.id)
	case router.ActionInsert:
		text, corrections := l.fixer.Correct(decision.Text)
		for _, cr := range corrections {
			log.Debug("session: vocabulary correction",
				"from", cr.Original, "to", cr.Corrected, "confidence", cr.Confidence)
		}
		entry.Text = text
		if err := l.c.deps.Inserter.Insert(ctx, text); err != nil {
			metrics.RecordInsertError(ctx, l.c.deps.InsertMode)
			log.Warn("session: insert failed", "err", err)
		}
	case router.ActionIgnore:
		log.Debug("session: empty transcript ignored")
	}

	l.c.utterances.Add(1)
	metrics.RecordUtterance(ctx, decision.Action.String())
	if l.c.deps.History != nil {
		if err := l.c.deps.History.Append(context.WithoutCancel(ctx), entry); err != nil {
			log.Warn("session: history append failed", "err", err)
		}
	}
}
