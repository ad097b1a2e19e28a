// Package sessionstate is the typed view over a browser session's stored
// values: view parameters, the current report and the unlock marker.
package sessionstate

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	sessionstore "redline/internal/adapters/storage/session"
	"redline/internal/domain/report"
	"redline/internal/domain/session"
)

// State reads and writes one store on behalf of many sessions.
type State struct {
	store sessionstore.Store
	log   *zap.Logger
}

// New creates a State over store.
func New(store sessionstore.Store, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	return &State{store: store, log: log.Named("session")}
}

// Load rehydrates the session. A stored report that no longer parses is
// cleared and treated as absent.
// POST: Snapshot.View.Lang is always ko or en
func (s *State) Load(ctx context.Context, sid string) (session.Snapshot, error) {
	values, err := s.store.All(ctx, sid)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("load session: %w", err)
	}

	snap := session.Snapshot{
		View: session.ViewParams{
			Lang:           session.LangOrDefault(values[session.KeyLang]),
			JobDescription: values[session.KeyJobDescription],
			ResumePreview:  values[session.KeyResumePreview],
			FileName:       values[session.KeyFileName],
		},
		Unlocked: values[session.KeyUnlocked] == session.UnlockedValue,
	}

	if raw, ok := values[session.KeyReport]; ok && raw != "" {
		var r report.Report
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			s.log.Warn("stored_report_corrupt", zap.Error(err))
			if err := s.store.Clear(ctx, sid, session.KeyReport); err != nil {
				return session.Snapshot{}, err
			}
		} else {
			r = r.Normalize()
			snap.Report = &r
		}
	}
	return snap, nil
}

// SetLang persists the UI language.
func (s *State) SetLang(ctx context.Context, sid string, lang session.Lang) error {
	if _, ok := session.ParseLang(string(lang)); !ok {
		return fmt.Errorf("unsupported language %q", lang)
	}
	return s.store.Set(ctx, sid, session.KeyLang, string(lang))
}

// SetJobDescription persists the job description as typed.
func (s *State) SetJobDescription(ctx context.Context, sid, jd string) error {
	return s.store.Set(ctx, sid, session.KeyJobDescription, jd)
}

// SetResumePreview persists the resume preview.
func (s *State) SetResumePreview(ctx context.Context, sid, preview string) error {
	return s.store.Set(ctx, sid, session.KeyResumePreview, preview)
}

// SetFileName persists the chosen file name; an empty name clears it.
func (s *State) SetFileName(ctx context.Context, sid, name string) error {
	if name == "" {
		return s.store.Clear(ctx, sid, session.KeyFileName)
	}
	return s.store.Set(ctx, sid, session.KeyFileName, name)
}

// SaveView writes every view parameter.
func (s *State) SaveView(ctx context.Context, sid string, v session.ViewParams) error {
	if err := s.SetLang(ctx, sid, session.LangOrDefault(string(v.Lang))); err != nil {
		return err
	}
	if err := s.SetJobDescription(ctx, sid, v.JobDescription); err != nil {
		return err
	}
	if err := s.SetResumePreview(ctx, sid, v.ResumePreview); err != nil {
		return err
	}
	return s.SetFileName(ctx, sid, v.FileName)
}

// ReplaceReport stores r as the session's only report.
func (s *State) ReplaceReport(ctx context.Context, sid string, r report.Report) error {
	raw, err := json.Marshal(r.Normalize())
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return s.store.Set(ctx, sid, session.KeyReport, string(raw))
}

// Relock marks the session as not paid. Called before a new analysis so a
// previous payment never unlocks a different report.
func (s *State) Relock(ctx context.Context, sid string) error {
	return s.store.Set(ctx, sid, session.KeyUnlocked, session.LockedValue)
}

// MarkUnlocked records a confirmed payment.
func (s *State) MarkUnlocked(ctx context.Context, sid string) error {
	return s.store.Set(ctx, sid, session.KeyUnlocked, session.UnlockedValue)
}
