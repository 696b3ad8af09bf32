package syncstate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/remote"
)

func TestPool_EntryIsShared(t *testing.T) {
	src := &countingRemote{Source: remote.NewStubSource()}
	p := NewPool(context.Background(), Deps{Remote: src})
	defer p.Close()

	a, err := p.Entry(keymap.KeySettings, json.RawMessage(`{"platformName":"A"}`))
	require.NoError(t, err)
	b, err := p.Entry(keymap.KeySettings, json.RawMessage(`{"platformName":"ignored"}`))
	require.NoError(t, err)
	assert.Same(t, a, b)

	waitDone(t, a.Done())
	assert.EqualValues(t, 1, src.queries.Load())

	raw, err := b.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"platformName":"A"}`, string(raw))
}

func TestPool_CollectionKeys(t *testing.T) {
	p := NewPool(context.Background(), Deps{}, PrependTo("transactions"))
	defer p.Close()

	c, err := p.Collection(keymap.KeyTransactions, json.RawMessage(`[{"id":"TRX-1"}]`))
	require.NoError(t, err)
	require.NoError(t, c.Upsert(context.Background(), Item{"id": "TRX-2"}))

	e, _ := p.Entry(keymap.KeyTransactions, nil)
	raw, _ := e.JSON()
	assert.JSONEq(t, `[{"id":"TRX-2"},{"id":"TRX-1"}]`, string(raw))
	assert.Equal(t, keymap.ShapeCollection, e.Shape())
}

func TestPool_CollectionEditRejectsNonArrays(t *testing.T) {
	p := NewPool(context.Background(), Deps{})
	defer p.Close()

	e, err := p.Entry(keymap.KeyUsers, nil)
	require.NoError(t, err)

	err = e.EditRaw([]byte(`{"id":1}`))
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidInput))
	require.NoError(t, e.EditRaw([]byte(`[{"id":1,"name":"Alex"}]`)))
}

func TestPool_BadCollectionDefault(t *testing.T) {
	p := NewPool(context.Background(), Deps{})
	defer p.Close()

	_, err := p.Entry(keymap.KeyUsers, json.RawMessage(`{"not":"a list"}`))
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidInput))
}

func TestPool_CollectionOnObjectKey(t *testing.T) {
	p := NewPool(context.Background(), Deps{})
	defer p.Close()

	_, err := p.Collection(keymap.KeySettings, nil)
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeUnmappedKey))
}

func TestPool_LocalKeyDefaultsToNull(t *testing.T) {
	p := NewPool(context.Background(), Deps{})
	defer p.Close()

	e, err := p.Entry("scratch", nil)
	require.NoError(t, err)
	raw, _ := e.JSON()
	assert.Equal(t, "null", string(raw))
	assert.Equal(t, keymap.Shape(""), e.Shape())
}

func TestPool_Close(t *testing.T) {
	p := NewPool(context.Background(), Deps{})
	e, _ := p.Entry("scratch", json.RawMessage(`1`))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err := p.Entry("scratch", nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, e.EditRaw([]byte(`2`)), ErrClosed)
}

func TestPool_Reload(t *testing.T) {
	deps := Deps{}
	p := NewPool(context.Background(), deps)
	defer p.Close()

	e, _ := p.Entry("scratch", json.RawMessage(`1`))
	require.NoError(t, p.Deps().Cache.Put("scratch", []byte(`5`)))

	p.Reload("scratch")
	raw, _ := e.JSON()
	assert.Equal(t, "5", string(raw))
}
