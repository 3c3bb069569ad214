// Package modelext is the runtime mutation surface over the schema catalog.
//
// Every operation checks the caller's permission first, then the naming
// grammar, then the catalog rules (collisions, types, referential
// integrity). A successful mutation is persisted and announces itself with
// exactly one change event. Events are handed to the notifier under the
// manager lock, stamped with the mutation's sequence number, so they leave in
// mutation order; their failures never undo the mutation. Notifiers that may
// block belong behind notify.Async.
package modelext

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/semmodel/auth"
	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/metric"
	"github.com/c360/semmodel/model"
	"github.com/c360/semmodel/notify"
	"github.com/c360/semmodel/tags"
)

// Actions.
const (
	ActionAdd = "add"
	ActionDel = "del"
)

// EventType returns "model:<kind>:<action>".
func EventType(kind Kind, action string) string {
	return "model:" + string(kind) + ":" + action
}

// Option configures a Manager.
type Option func(*Manager)

// WithAuthorizer sets the permission check. The default denies everything.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(m *Manager) {
		if a != nil {
			m.auth = a
		}
	}
}

// WithNotifier sets the event sink.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithPersister sets where extended elements are stored.
func WithPersister(p Persister) Option {
	return func(m *Manager) {
		if p != nil {
			m.persister = p
		}
	}
}

// WithMetrics records mutation outcomes and extended element counts.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager serializes schema mutations against one Model.
type Manager struct {
	mu        sync.Mutex
	model     *model.Model
	auth      auth.Authorizer
	notifier  notify.Notifier
	persister Persister
	metrics   *metric.Metrics
	logger    *slog.Logger
	seq       uint64
}

// New creates a manager over mdl.
func New(mdl *model.Model, opts ...Option) *Manager {
	m := &Manager{
		model:     mdl,
		auth:      auth.DenyAll,
		notifier:  notify.Nop,
		persister: NewMemoryPersister(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Model returns the managed catalog.
func (m *Manager) Model() *model.Model {
	return m.model
}

// mutate runs fn under the manager lock after the permission check, then
// hands the event fn describes to the notifier before releasing the lock.
// fn receives the sequence number of the mutation.
func (m *Manager) mutate(ctx context.Context, user string, kind Kind, action string, perm auth.Perm,
	fn func(seq uint64) (map[string]any, error),
) error {
	start := time.Now()

	if err := m.auth.Allowed(ctx, user, perm); err != nil {
		m.observe(kind, action, "denied", start)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seq := m.nextSeq()
	info, err := fn(seq)
	if err != nil {
		m.seq = seq - 1
		m.observe(kind, action, "error", start)
		return err
	}
	m.observe(kind, action, "ok", start)

	evt := notify.NewEvent(EventType(kind, action), user, info)
	evt.Seq = seq
	if err := m.notifier.Notify(ctx, evt); err != nil {
		m.logger.Warn("schema event not delivered", "event", evt.Type, "id", evt.ID, "seq", seq, "error", err)
	}
	return nil
}

func (m *Manager) observe(kind Kind, action, result string, start time.Time) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordMutation(string(kind), action, result, time.Since(start))
	if result == "ok" {
		m.metrics.RecordExtendedCount(string(kind), m.model.Counts()[string(kind)])
	}
}

func (m *Manager) nextSeq() uint64 {
	m.seq++
	return m.seq
}

func persistFailed(err error, method, action string) error {
	return errors.WrapTransient(err, "modelext.Manager", method, action)
}

// AddForm adds the extended form name backed by typeName with typeOpts.
func (m *Manager) AddForm(ctx context.Context, user, name, typeName string, typeOpts map[string]any,
	info model.Info,
) (*model.Form, error) {
	var form *model.Form
	err := m.mutate(ctx, user, KindForm, ActionAdd, auth.PermFormAdd, func(seq uint64) (map[string]any, error) {
		if err := CheckFormName(name); err != nil {
			return nil, err
		}
		f, err := m.model.AddForm(name, typeName, typeOpts, info)
		if err != nil {
			return nil, err
		}
		rec := Record{Kind: KindForm, Name: name, Type: typeName, Opts: typeOpts, Info: info, Seq: seq}
		if err := m.persister.Save(ctx, rec); err != nil {
			_, _ = m.model.DelForm(name)
			return nil, persistFailed(err, "AddForm", "persist form")
		}
		form = f
		return map[string]any{"form": f.Pack(), "type": model.PackType(f.Type)}, nil
	})
	return form, err
}

// AddFormProp adds the extended property prop to form.
func (m *Manager) AddFormProp(ctx context.Context, user, form, prop, typeName string, typeOpts map[string]any,
	info model.Info,
) (*model.Prop, error) {
	var added *model.Prop
	err := m.mutate(ctx, user, KindProp, ActionAdd, auth.PermPropAdd, func(seq uint64) (map[string]any, error) {
		if err := CheckPropName(prop, m.model.IsCoreForm(form)); err != nil {
			return nil, err
		}
		p, err := m.model.AddFormProp(form, prop, typeName, typeOpts, info)
		if err != nil {
			return nil, err
		}
		rec := Record{Kind: KindProp, Form: form, Name: prop, Type: typeName, Opts: typeOpts, Info: info, Seq: seq}
		if err := m.persister.Save(ctx, rec); err != nil {
			_, _ = m.model.DelFormProp(form, prop)
			return nil, persistFailed(err, "AddFormProp", "persist prop")
		}
		added = p
		return map[string]any{"form": form, "prop": p.Pack()}, nil
	})
	return added, err
}

// AddUnivProp adds an extended universal property. The leading "." is optional.
func (m *Manager) AddUnivProp(ctx context.Context, user, name, typeName string, typeOpts map[string]any,
	info model.Info,
) (*model.Prop, error) {
	var added *model.Prop
	err := m.mutate(ctx, user, KindUniv, ActionAdd, auth.PermUnivAdd, func(seq uint64) (map[string]any, error) {
		rel, err := CheckUnivName(name)
		if err != nil {
			return nil, err
		}
		p, err := m.model.AddUnivProp(rel, typeName, typeOpts, info)
		if err != nil {
			return nil, err
		}
		rec := Record{Kind: KindUniv, Name: p.Full, Type: typeName, Opts: typeOpts, Info: info, Seq: seq}
		if err := m.persister.Save(ctx, rec); err != nil {
			_, _ = m.model.DelUnivProp(p.Full)
			return nil, persistFailed(err, "AddUnivProp", "persist universal prop")
		}
		added = p
		return map[string]any{"name": p.Name, "full": p.Full, "doc": info.Doc}, nil
	})
	return added, err
}

// AddTagProp adds an extended tag property. The name is tag-normalized first.
func (m *Manager) AddTagProp(ctx context.Context, user, name, typeName string, typeOpts map[string]any,
	info model.Info,
) (*model.TagProp, error) {
	var added *model.TagProp
	err := m.mutate(ctx, user, KindTagProp, ActionAdd, auth.PermTagPropAdd, func(seq uint64) (map[string]any, error) {
		norm, err := CheckTagPropName(name)
		if err != nil {
			return nil, err
		}
		tp, err := m.model.AddTagProp(norm, typeName, typeOpts, info)
		if err != nil {
			return nil, err
		}
		rec := Record{Kind: KindTagProp, Name: norm, Type: typeName, Opts: typeOpts, Info: info, Seq: seq}
		if err := m.persister.Save(ctx, rec); err != nil {
			_, _ = m.model.DelTagProp(norm)
			return nil, persistFailed(err, "AddTagProp", "persist tag prop")
		}
		added = tp
		return map[string]any{"name": norm, "info": info}, nil
	})
	return added, err
}

// DelForm removes an extended form. It fails with CantDelForm while the form
// still has extended properties or its type still types other elements.
func (m *Manager) DelForm(ctx context.Context, user, name string) error {
	return m.mutate(ctx, user, KindForm, ActionDel, auth.PermFormDel, func(uint64) (map[string]any, error) {
		f, err := m.model.DelForm(name)
		if err != nil {
			return nil, err
		}
		if err := m.persister.Delete(ctx, KindForm, name); err != nil {
			typeName := name
			if f.OwnsType() {
				typeName = f.Type.Base()
			}
			if _, rerr := m.model.AddForm(name, typeName, f.Type.Opts(), f.Info); rerr != nil {
				m.logger.Error("form rollback failed", "form", name, "error", rerr)
			}
			return nil, persistFailed(err, "DelForm", "unpersist form")
		}
		return map[string]any{"form": name}, nil
	})
}

// DelFormProp removes an extended property from form.
func (m *Manager) DelFormProp(ctx context.Context, user, form, prop string) error {
	return m.mutate(ctx, user, KindProp, ActionDel, auth.PermPropDel, func(uint64) (map[string]any, error) {
		index := m.model.PropIndex(form, prop)
		p, err := m.model.DelFormProp(form, prop)
		if err != nil {
			return nil, err
		}
		if err := m.persister.Delete(ctx, KindProp, p.Full); err != nil {
			if rerr := m.model.RestoreFormProp(p, index); rerr != nil {
				m.logger.Error("prop rollback failed", "prop", p.Full, "error", rerr)
			}
			return nil, persistFailed(err, "DelFormProp", "unpersist prop")
		}
		return map[string]any{"form": form, "prop": prop}, nil
	})
}

// DelUnivProp removes an extended universal property.
func (m *Manager) DelUnivProp(ctx context.Context, user, name string) error {
	return m.mutate(ctx, user, KindUniv, ActionDel, auth.PermUnivDel, func(uint64) (map[string]any, error) {
		p, err := m.model.DelUnivProp(name)
		if err != nil {
			return nil, err
		}
		rec := Record{Kind: KindUniv, Name: p.Full}
		if err := m.persister.Delete(ctx, KindUniv, rec.Key()); err != nil {
			if _, rerr := m.model.AddUnivProp(p.Full, p.TypeName, p.TypeOpts, p.Info); rerr != nil {
				m.logger.Error("universal prop rollback failed", "prop", p.Full, "error", rerr)
			}
			return nil, persistFailed(err, "DelUnivProp", "unpersist universal prop")
		}
		return map[string]any{"prop": p.Full}, nil
	})
}

// DelTagProp removes an extended tag property.
func (m *Manager) DelTagProp(ctx context.Context, user, name string) error {
	return m.mutate(ctx, user, KindTagProp, ActionDel, auth.PermTagPropDel, func(uint64) (map[string]any, error) {
		norm := tags.Normalize(name)
		tp, err := m.model.DelTagProp(norm)
		if err != nil {
			return nil, err
		}
		if err := m.persister.Delete(ctx, KindTagProp, norm); err != nil {
			if _, rerr := m.model.AddTagProp(norm, tp.TypeName, tp.TypeOpts, tp.Info); rerr != nil {
				m.logger.Error("tag prop rollback failed", "tagprop", norm, "error", rerr)
			}
			return nil, persistFailed(err, "DelTagProp", "unpersist tag prop")
		}
		return map[string]any{"tagprop": norm}, nil
	})
}

// Load replays persisted records into the model without permission checks
// or events. Records the model rejects are logged and skipped. It returns
// the number of elements restored.
func (m *Manager) Load(ctx context.Context) (int, error) {
	recs, err := m.persister.Load(ctx)
	if err != nil {
		return 0, errors.WrapTransient(err, "modelext.Manager", "Load", "load records")
	}
	SortRecords(recs)

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, rec := range recs {
		if rec.Seq > m.seq {
			m.seq = rec.Seq
		}
		if err := m.apply(rec); err != nil {
			m.logger.Warn("skipping persisted extension", "kind", rec.Kind, "name", rec.Key(), "error", err)
			continue
		}
		loaded++
	}

	if m.metrics != nil {
		for kind, n := range m.model.Counts() {
			m.metrics.RecordExtendedCount(kind, n)
		}
	}
	m.logger.Info("extensions loaded", "records", len(recs), "loaded", loaded)
	return loaded, nil
}

func (m *Manager) apply(rec Record) error {
	var err error
	switch rec.Kind {
	case KindForm:
		_, err = m.model.AddForm(rec.Name, rec.Type, rec.Opts, rec.Info)
	case KindProp:
		_, err = m.model.AddFormProp(rec.Form, rec.Name, rec.Type, rec.Opts, rec.Info)
	case KindUniv:
		_, err = m.model.AddUnivProp(rec.Name, rec.Type, rec.Opts, rec.Info)
	case KindTagProp:
		_, err = m.model.AddTagProp(rec.Name, rec.Type, rec.Opts, rec.Info)
	default:
		err = errors.NewModelError(errors.KindUnsupported, string(rec.Kind), "unknown record kind")
	}
	return err
}
