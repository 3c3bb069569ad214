//go:build integration

package modelstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/auth"
	"github.com/c360/semmodel/model"
	"github.com/c360/semmodel/modelext"
	"github.com/c360/semmodel/natsclient"
	"github.com/c360/semmodel/testutil"
)

func newManager(t *testing.T, store *Store) *modelext.Manager {
	t.Helper()
	return modelext.New(testutil.NewModel(t), modelext.WithAuthorizer(auth.AllowAll), modelext.WithPersister(store))
}

func TestStore_ManagerRoundTrip(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx := context.Background()

	store, err := NewStore(ctx, tc.Client, Options{})
	require.NoError(t, err)

	recs, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	first := newManager(t, store)
	_, err = first.AddForm(ctx, "root", "_visi:int", "int", map[string]any{"max": 100}, model.Info{Doc: "visi"})
	require.NoError(t, err)
	_, err = first.AddFormProp(ctx, "root", "_visi:int", "tick", "time", nil, model.Info{})
	require.NoError(t, err)
	_, err = first.AddUnivProp(ctx, "root", "_beep", "int", nil, model.Info{Doc: "beep"})
	require.NoError(t, err)
	_, err = first.AddTagProp(ctx, "root", "some.score", "int", nil, model.Info{})
	require.NoError(t, err)

	recs, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, modelext.KindForm, recs[0].Kind)
	assert.Equal(t, float64(100), recs[0].Opts["max"])

	reopened, err := NewStore(ctx, tc.Client, Options{})
	require.NoError(t, err)
	second := newManager(t, reopened)
	n, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	mdl := second.Model()
	require.NotNil(t, mdl.FormProp("_visi:int", "tick"))
	assert.Equal(t, "beep", mdl.Univ("_beep").Info.Doc)
	_, err = mdl.Form("_visi:int").Type.Normalize(101)
	assert.Error(t, err)

	require.NoError(t, second.DelFormProp(ctx, "root", "_visi:int", "tick"))
	require.NoError(t, second.DelForm(ctx, "root", "_visi:int"))
	require.NoError(t, second.DelUnivProp(ctx, "root", "._beep"))
	require.NoError(t, second.DelTagProp(ctx, "root", "some.score"))

	recs, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
