package config

import (
	"reflect"
	"slices"
)

// Diff describes what changed between two configurations and what it takes
// to apply the change.
type Diff struct {
	// LogLevelChanged is true when server.log_level differs. Applied
	// immediately.
	LogLevelChanged bool

	// StopGraceChanged is true when stop_grace_ms differs. Applied
	// immediately.
	StopGraceChanged bool

	// SessionChanged is true when a setting that is read at session start
	// differs (segmentation, stop phrase, language, vocabulary). Applied at
	// the next start.
	SessionChanged bool

	// RestartRequired lists changed sections that are only read at process
	// start (audio format, providers, insertion, server, history).
	RestartRequired []string
}

// Empty reports whether nothing relevant changed.
func (d Diff) Empty() bool {
	return !d.LogLevelChanged && !d.StopGraceChanged && !d.SessionChanged && len(d.RestartRequired) == 0
}

// Compare returns the difference between old and new.
func Compare(old, new *Config) Diff {
	var d Diff
	if old == nil || new == nil {
		return d
	}

	d.LogLevelChanged = old.Server.LogLevel != new.Server.LogLevel
	d.StopGraceChanged = old.StopGraceMs != new.StopGraceMs

	d.SessionChanged = old.VAD.Threshold != new.VAD.Threshold ||
		old.VAD.MinSpeechDurationMs != new.VAD.MinSpeechDurationMs ||
		old.VAD.MinSilenceDurationMs != new.VAD.MinSilenceDurationMs ||
		old.StopPhrase != new.StopPhrase ||
		old.StopPhraseIgnorePunctuation != new.StopPhraseIgnorePunctuation ||
		old.Transcription.Language != new.Transcription.Language ||
		!slices.Equal(old.Vocabulary, new.Vocabulary)

	restart := func(section string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, section)
		}
	}
	restart("server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr)
	restart("audio", old.Audio != new.Audio)
	restart("vad.provider", old.VAD.Provider != new.VAD.Provider ||
		old.VAD.ModelPath != new.VAD.ModelPath ||
		!reflect.DeepEqual(old.VAD.Options, new.VAD.Options))
	// Silero applies the threshold inside its detector, which is built once.
	restart("vad.threshold", new.VAD.Provider == "silero" && old.VAD.Threshold != new.VAD.Threshold)
	restart("transcription", !sameTranscription(old.Transcription, new.Transcription))
	restart("insert", !reflect.DeepEqual(old.Insert, new.Insert))
	restart("notifications", old.Notifications != new.Notifications)
	restart("history", old.History != new.History)
	return d
}

// sameTranscription compares backends, ignoring the language hint which is
// applied per session.
func sameTranscription(a, b TranscriptionConfig) bool {
	a.Language, b.Language = "", ""
	return reflect.DeepEqual(a, b)
}
