package modelext

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/auth"
	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/metric"
	"github.com/c360/semmodel/model"
	"github.com/c360/semmodel/notify"
	"github.com/c360/semmodel/testutil"
)

const root = "root"

func newModel(t *testing.T) *model.Model {
	t.Helper()
	return testutil.NewModel(t)
}

func newManager(t *testing.T, opts ...Option) (*Manager, *notify.Recorder) {
	t.Helper()
	rec := notify.NewRecorder()
	opts = append([]Option{WithAuthorizer(auth.AllowAll), WithNotifier(rec)}, opts...)
	return New(newModel(t), opts...), rec
}

func TestManager_FormRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t)
	mdl := mgr.Model()
	before := len(mdl.Forms())

	form, err := mgr.AddForm(ctx, root, "_visi:int", "int", nil, model.Info{Doc: "A test form doc."})
	require.NoError(t, err)
	assert.True(t, form.Extended)

	require.NotNil(t, mdl.Form("_visi:int"))
	norm, err := mdl.Form("_visi:int").Type.Normalize("0x10")
	require.NoError(t, err)
	assert.Equal(t, int64(16), norm.Value)

	evt, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "model:form:add", evt.Type)
	assert.Equal(t, root, evt.User)
	packed := evt.Info["form"].(map[string]any)
	assert.Equal(t, "_visi:int", packed["name"])
	typeInfo := evt.Info["type"].(map[string]any)
	assert.NotNil(t, typeInfo["info"])

	require.NoError(t, mgr.DelForm(ctx, root, "_visi:int"))
	assert.Nil(t, mdl.Form("_visi:int"))
	assert.Len(t, mdl.Forms(), before)
	_, err = mdl.Type("_visi:int")
	assert.True(t, errors.IsKind(err, errors.KindNoSuchType))

	evt, _ = rec.Last()
	assert.Equal(t, "model:form:del", evt.Type)
	assert.Equal(t, map[string]any{"form": "_visi:int"}, evt.Info)
	assert.Equal(t, 2, rec.Len())
}

func TestManager_ReferentialIntegrity(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)

	_, err := mgr.AddForm(ctx, root, "_visi:int", "int", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddFormProp(ctx, root, "_visi:int", "tick", "time", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddFormProp(ctx, root, "_visi:int", "tock", "time", nil, model.Info{})
	require.NoError(t, err)

	err = mgr.DelForm(ctx, root, "_visi:int")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCantDelForm)
	assert.Contains(t, err.Error(), "Form has extended properties: tick, tock")

	require.NoError(t, mgr.DelFormProp(ctx, root, "_visi:int", "tick"))
	err = mgr.DelForm(ctx, root, "_visi:int")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "tick")

	require.NoError(t, mgr.DelFormProp(ctx, root, "_visi:int", "tock"))
	require.NoError(t, mgr.DelForm(ctx, root, "_visi:int"))
}

func TestManager_DelFormWhileTypeInUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPersister()
	mgr, _ := newManager(t, WithPersister(store))

	_, err := mgr.AddForm(ctx, root, "_visi:int", "int", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddFormProp(ctx, root, "test:str", "_ref", "_visi:int", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddForm(ctx, root, "_visi:big", "_visi:int", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddUnivProp(ctx, root, "_vis", "_visi:int", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddTagProp(ctx, root, "vis", "_visi:int", nil, model.Info{})
	require.NoError(t, err)

	err = mgr.DelForm(ctx, root, "_visi:int")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCantDelForm)
	assert.Contains(t, err.Error(), "Form type is in use by: test:str:_ref, _visi:big, ._vis, #:vis")

	mdl := mgr.Model()
	require.NotNil(t, mdl.Form("_visi:int"))
	_, err = mdl.Type("_visi:int")
	require.NoError(t, err)

	replayed, _ := newManager(t, WithPersister(store))
	n, err := replayed.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	ref := replayed.Model().FormProp("test:str", "_ref")
	require.NotNil(t, ref)
	assert.Equal(t, "_visi:int", ref.Type.Name())

	require.NoError(t, mgr.DelFormProp(ctx, root, "test:str", "_ref"))
	require.NoError(t, mgr.DelForm(ctx, root, "_visi:big"))
	require.NoError(t, mgr.DelUnivProp(ctx, root, "_vis"))
	require.NoError(t, mgr.DelTagProp(ctx, root, "vis"))
	require.NoError(t, mgr.DelForm(ctx, root, "_visi:int"))
	_, err = mdl.Type("_visi:int")
	assert.ErrorIs(t, err, errors.ErrNoSuchType)
}

func TestManager_EventsFollowMutationOrder(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "_race:f" + string(rune('a'+i))
			_, err := mgr.AddForm(ctx, root, name, "int", nil, model.Info{})
			assert.NoError(t, err)
			assert.NoError(t, mgr.DelForm(ctx, root, name))
		}(i)
	}
	wg.Wait()

	events := rec.Events()
	require.Len(t, events, 2*n)
	added := map[any]bool{}
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Seq)
		switch e.Type {
		case "model:form:add":
			added[e.Info["form"].(map[string]any)["name"]] = true
		case "model:form:del":
			assert.True(t, added[e.Info["form"]], "del of %v before its add", e.Info["form"])
		}
	}

	_, err := mgr.AddForm(ctx, root, "_race:fa", "newp", nil, model.Info{})
	require.Error(t, err)
	_, err = mgr.AddForm(ctx, root, "_race:fz", "int", nil, model.Info{})
	require.NoError(t, err)
	last, _ := rec.Last()
	assert.Equal(t, uint64(2*n+1), last.Seq, "failed mutations do not consume a sequence number")
}

func TestManager_Events(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t)

	_, err := mgr.AddForm(ctx, root, "_behold:score", "int", nil, model.Info{Doc: "first string"})
	require.NoError(t, err)
	_, err = mgr.AddFormProp(ctx, root, "_behold:score", "rank", "int", nil, model.Info{Doc: "second string"})
	require.NoError(t, err)
	_, err = mgr.AddUnivProp(ctx, root, "_beep", "int", nil, model.Info{Doc: "third string"})
	require.NoError(t, err)
	_, err = mgr.AddTagProp(ctx, root, "thingy", "int", nil, model.Info{Doc: "fourth string"})
	require.NoError(t, err)

	require.NoError(t, mgr.DelTagProp(ctx, root, "thingy"))
	require.NoError(t, mgr.DelUnivProp(ctx, root, "_beep"))
	require.NoError(t, mgr.DelFormProp(ctx, root, "_behold:score", "rank"))
	require.NoError(t, mgr.DelForm(ctx, root, "_behold:score"))

	events := rec.Events()
	require.Len(t, events, 8)

	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	assert.Equal(t, []string{
		"model:form:add", "model:prop:add", "model:univ:add", "model:tagprop:add",
		"model:tagprop:del", "model:univ:del", "model:prop:del", "model:form:del",
	}, types)

	prop := events[1].Info["prop"].(map[string]any)
	assert.Equal(t, "_behold:score", events[1].Info["form"])
	assert.Equal(t, "_behold:score:rank", prop["full"])
	assert.Equal(t, "rank", prop["name"])
	assert.Equal(t, 9, prop["stortype"])

	assert.Equal(t, "._beep", events[2].Info["name"])
	assert.Equal(t, "._beep", events[2].Info["full"])
	assert.Equal(t, "third string", events[2].Info["doc"])

	assert.Equal(t, "thingy", events[3].Info["name"])
	assert.Equal(t, model.Info{Doc: "fourth string"}, events[3].Info["info"])

	assert.Equal(t, map[string]any{"tagprop": "thingy"}, events[4].Info)
	assert.Equal(t, map[string]any{"prop": "._beep"}, events[5].Info)
	assert.Equal(t, map[string]any{"form": "_behold:score", "prop": "rank"}, events[6].Info)
	assert.Equal(t, map[string]any{"form": "_behold:score"}, events[7].Info)

	ids := map[string]bool{}
	for _, e := range events {
		ids[e.ID] = true
	}
	assert.Len(t, ids, 8)
}

func TestManager_AuthDenyComesFirst(t *testing.T) {
	ctx := context.Background()
	policy := auth.NewPolicy()
	policy.Set("visi", auth.Rule{Allow: []string{"model.prop.*"}})
	mgr, rec := newManager(t, WithAuthorizer(policy))
	mdl := mgr.Model()
	before := mdl.Counts()

	_, err := mgr.AddForm(ctx, "visi", "_visi:int", "int", nil, model.Info{})
	assert.ErrorIs(t, err, errors.ErrAuthDeny)

	_, err = mgr.AddUnivProp(ctx, "visi", ".woot", "int", nil, model.Info{})
	assert.ErrorIs(t, err, errors.ErrAuthDeny, "permission is checked before the name grammar")

	_, err = mgr.AddTagProp(ctx, "visi", "score", "int", nil, model.Info{})
	assert.ErrorIs(t, err, errors.ErrAuthDeny)

	err = mgr.DelForm(ctx, "visi", "no:such:form")
	assert.ErrorIs(t, err, errors.ErrAuthDeny, "permission is checked before existence")

	assert.Nil(t, mdl.Form("_visi:int"))
	assert.Equal(t, before, mdl.Counts())
	assert.Zero(t, rec.Len())

	_, err = mgr.AddFormProp(ctx, "visi", "test:str", "_test:_myprop", "str", nil, model.Info{})
	require.NoError(t, err)
}

func TestManager_DefaultDeniesEverything(t *testing.T) {
	mgr := New(newModel(t))
	_, err := mgr.AddForm(context.Background(), root, "_visi:int", "int", nil, model.Info{})
	assert.True(t, errors.IsKind(err, errors.KindAuthDeny))
}

func TestManager_Grammar(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t)

	_, err := mgr.AddFormProp(ctx, root, "test:str", "_test:_myprop", "str", nil, model.Info{})
	require.NoError(t, err)
	for _, bad := range []string{"_test:_my^prop", "_test::_myprop", "notextended"} {
		_, err = mgr.AddFormProp(ctx, root, "test:str", bad, "str", nil, model.Info{})
		assert.ErrorIs(t, err, errors.ErrBadPropDef, bad)
	}

	for _, bad := range []string{"visi:int", "_visi", "_Visi:int", "_visi::int", "_vi^si:int"} {
		_, err = mgr.AddForm(ctx, root, bad, "int", nil, model.Info{})
		assert.ErrorIs(t, err, errors.ErrBadPropDef, bad)
	}

	for _, good := range []string{"_woot", "._woot:_stuff"} {
		_, err = mgr.AddUnivProp(ctx, root, good, "int", nil, model.Info{})
		assert.NoError(t, err, good)
	}
	for _, bad := range []string{"_woot^stuff", "_woot:_stuff^2", "woot", "._woot::stuff"} {
		_, err = mgr.AddUnivProp(ctx, root, bad, "int", nil, model.Info{})
		assert.ErrorIs(t, err, errors.ErrBadPropDef, bad)
	}

	for _, good := range []string{"score", "_score", "some:_score", "#Some.Other "} {
		_, err = mgr.AddTagProp(ctx, root, good, "int", nil, model.Info{})
		assert.NoError(t, err, good)
	}
	assert.NotNil(t, mgr.Model().TagProp("some.other"))
	for _, bad := range []string{"some^score", "_someones:_score^value", "#", "a::b"} {
		_, err = mgr.AddTagProp(ctx, root, bad, "int", nil, model.Info{})
		assert.ErrorIs(t, err, errors.ErrBadPropDef, bad)
	}

	assert.Equal(t, 1+2+4, rec.Len())
}

func TestManager_Collisions(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)

	_, err := mgr.AddForm(ctx, root, "_visi:int", "int", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddForm(ctx, root, "_visi:int", "int", nil, model.Info{})
	assert.ErrorIs(t, err, errors.ErrDupPropName)

	_, err = mgr.AddFormProp(ctx, root, "_visi:int", "tick", "newp", nil, model.Info{})
	assert.ErrorIs(t, err, errors.ErrNoSuchType)

	_, err = mgr.AddFormProp(ctx, root, "_nope:nope", "tick", "time", nil, model.Info{})
	assert.ErrorIs(t, err, errors.ErrNoSuchForm)

	_, err = mgr.AddUnivProp(ctx, root, "_beep", "int", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddUnivProp(ctx, root, "._beep", "int", nil, model.Info{})
	assert.ErrorIs(t, err, errors.ErrDupPropName)

	err = mgr.DelForm(ctx, root, "test:str")
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	err = mgr.DelFormProp(ctx, root, "test:str", "tick")
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	err = mgr.DelUnivProp(ctx, root, "created")
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	err = mgr.DelTagProp(ctx, root, "nope")
	assert.ErrorIs(t, err, errors.ErrNoSuchProp)
}

func TestManager_ConcurrentAddForm(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t)

	const n = 16
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.AddForm(ctx, root, "_race:int", "int", nil, model.Info{})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.IsKind(err, errors.KindDupPropName):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), dup.Load())
	assert.Equal(t, 1, rec.Len())
}

func TestManager_NotifierFailureKeepsMutation(t *testing.T) {
	failing := notify.Func(func(context.Context, notify.Event) error { return errors.New("sink down") })
	mgr, _ := newManager(t, WithNotifier(failing))

	_, err := mgr.AddForm(context.Background(), root, "_visi:int", "int", nil, model.Info{})
	require.NoError(t, err)
	assert.NotNil(t, mgr.Model().Form("_visi:int"))
}

type failingPersister struct {
	*MemoryPersister
	fail bool
}

func (f *failingPersister) Save(ctx context.Context, rec Record) error {
	if f.fail {
		return errors.ErrStorageUnavailable
	}
	return f.MemoryPersister.Save(ctx, rec)
}

func (f *failingPersister) Delete(ctx context.Context, kind Kind, key string) error {
	if f.fail {
		return errors.ErrStorageUnavailable
	}
	return f.MemoryPersister.Delete(ctx, kind, key)
}

func TestManager_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingPersister{MemoryPersister: NewMemoryPersister()}
	mgr, rec := newManager(t, WithPersister(store))
	mdl := mgr.Model()

	_, err := mgr.AddForm(ctx, root, "_visi:int", "int", nil, model.Info{})
	require.NoError(t, err)

	store.fail = true
	_, err = mgr.AddFormProp(ctx, root, "_visi:int", "tick", "time", nil, model.Info{})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Nil(t, mdl.FormProp("_visi:int", "tick"))

	err = mgr.DelForm(ctx, root, "_visi:int")
	require.Error(t, err)
	assert.NotNil(t, mdl.Form("_visi:int"), "failed delete restores the form")

	_, err = mgr.AddTagProp(ctx, root, "score", "int", nil, model.Info{})
	require.Error(t, err)
	assert.Nil(t, mdl.TagProp("score"))

	assert.Equal(t, 1, rec.Len())
}

func TestManager_DelFormPropRollbackKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := &failingPersister{MemoryPersister: NewMemoryPersister()}
	mgr, _ := newManager(t, WithPersister(store))

	_, err := mgr.AddForm(ctx, root, "_visi:int", "int", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddFormProp(ctx, root, "_visi:int", "tick", "time", nil, model.Info{})
	require.NoError(t, err)
	_, err = mgr.AddFormProp(ctx, root, "_visi:int", "tock", "time", nil, model.Info{})
	require.NoError(t, err)

	store.fail = true
	err = mgr.DelFormProp(ctx, root, "_visi:int", "tick")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	require.NotNil(t, mgr.Model().FormProp("_visi:int", "tick"))

	err = mgr.DelForm(ctx, root, "_visi:int")
	assert.ErrorIs(t, err, errors.ErrCantDelForm)
	assert.Contains(t, err.Error(), "Form has extended properties: tick, tock")
}

func TestManager_Load(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPersister()
	first, _ := newManager(t, WithPersister(store))

	_, err := first.AddForm(ctx, root, "_visi:int", "int", map[string]any{"min": 0}, model.Info{Doc: "visi"})
	require.NoError(t, err)
	_, err = first.AddFormProp(ctx, root, "_visi:int", "tick", "time", nil, model.Info{})
	require.NoError(t, err)
	_, err = first.AddFormProp(ctx, root, "_visi:int", "tock", "time", nil, model.Info{})
	require.NoError(t, err)
	_, err = first.AddUnivProp(ctx, root, "_beep", "int", nil, model.Info{})
	require.NoError(t, err)
	_, err = first.AddTagProp(ctx, root, "score", "int", nil, model.Info{})
	require.NoError(t, err)
	assert.Equal(t, 5, store.Len())

	reg := metric.NewMetricsRegistry()
	second, rec := newManager(t, WithPersister(store), WithMetrics(reg.CoreMetrics()))
	n, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Zero(t, rec.Len(), "replay emits no events")

	mdl := second.Model()
	require.NotNil(t, mdl.Form("_visi:int"))
	_, err = mdl.Form("_visi:int").Type.Normalize(-1)
	assert.ErrorIs(t, err, errors.ErrBadTypeValu)
	assert.NotNil(t, mdl.Univ("_beep"))
	assert.NotNil(t, mdl.TagProp("score"))
	assert.Equal(t, map[string]int{"form": 1, "prop": 2, "univ": 1, "tagprop": 1}, mdl.Counts())
	assert.Equal(t, float64(2), promtest.ToFloat64(reg.CoreMetrics().ExtendedElements.WithLabelValues("prop")))

	err = second.DelForm(ctx, root, "_visi:int")
	assert.Contains(t, err.Error(), "tick, tock")
}

func TestSortRecords(t *testing.T) {
	recs := []Record{
		{Kind: KindTagProp, Name: "score", Seq: 1},
		{Kind: KindProp, Form: "_a:b", Name: "y", Seq: 5},
		{Kind: KindForm, Name: "_a:b", Seq: 2},
		{Kind: KindProp, Form: "_a:b", Name: "x", Seq: 3},
		{Kind: KindUniv, Name: "._u", Seq: 4},
	}
	SortRecords(recs)
	keys := make([]string, len(recs))
	for i, r := range recs {
		keys[i] = string(r.Kind) + "/" + r.Key()
	}
	assert.Equal(t, []string{"form/_a:b", "prop/_a:b:x", "prop/_a:b:y", "univ/_u", "tagprop/score"}, keys)
}
