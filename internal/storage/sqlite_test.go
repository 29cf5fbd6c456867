package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"graffiti/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type descs map[string]*graph.TypeDescriptor

func (d descs) Describe(_ context.Context, fqn string) (*graph.TypeDescriptor, error) {
	if desc, ok := d[fqn]; ok {
		return desc, nil
	}
	return nil, errors.New("unreadable class")
}

func testSnapshot(t *testing.T, runID string, fqns ...string) *Snapshot {
	t.Helper()
	r := graph.NewRegistry()
	for _, fqn := range fqns {
		r.GetOrCreate(fqn)
	}
	res, err := graph.Analyze(context.Background(), r, descs{
		"com.x.Order": {
			FullyQualifiedName: "com.x.Order",
			Category:           graph.CategoryClass,
			Fields: []graph.FieldDescriptor{
				{Name: "id", DeclaredTypeName: "int", SimpleTypeName: "int", IsPrimitive: true},
				{Name: "customer", DeclaredTypeName: "com.x.Customer", SimpleTypeName: "Customer"},
			},
			Methods: []graph.Method{
				{Signature: "public int com.x.Order.getId()", Visibility: graph.VisibilityPublic},
				{Signature: "private void com.x.Order.check()", Visibility: graph.VisibilityPrivate},
			},
		},
		"com.x.Customer": {FullyQualifiedName: "com.x.Customer", Category: graph.CategoryInterface},
	}, nil)
	require.NoError(t, err)

	return &Snapshot{
		RunID:     runID,
		Archive:   "orders.jar",
		CreatedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Counts:    res.Counts,
		Types:     r.Nodes(),
		Failures:  res.Failures,
	}
}

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "graffiti.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_LoadType(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot(t, "run-1", "com.x.Order", "com.x.Customer")))

	rec, err := store.LoadType(ctx, "com.x.Order")
	require.NoError(t, err)
	assert.Equal(t, "Order", rec.Name)
	assert.Equal(t, "com.x", rec.Package)

	require.Len(t, rec.Attributes, 2)
	assert.Equal(t, AttributeRecord{Name: "customer", Kind: graph.KindResolved, Target: "com.x.Customer", Page: "com.x.Customer"}, rec.Attributes[0])
	assert.Equal(t, AttributeRecord{Name: "id", Kind: graph.KindPrimitive, Target: "int", Page: graph.NotFoundPage}, rec.Attributes[1])

	require.Len(t, rec.Methods, 2)
	assert.Equal(t, "public int com.x.Order.getId()", rec.Methods[0].Signature)
	assert.Equal(t, graph.VisibilityPrivate, rec.Methods[1].Visibility)

	_, err = store.LoadType(ctx, "com.x.Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SnapshotReplacesPrevious(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot(t, "run-1", "com.x.Order", "com.x.Customer")))
	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot(t, "run-2", "com.x.Customer", "com.x.Broken")))

	types, err := store.ListTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.x.Customer"}, types)

	_, err = store.LoadType(ctx, "com.x.Order")
	assert.ErrorIs(t, err, ErrNotFound)

	run, err := store.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", run.RunID)
	assert.Equal(t, "orders.jar", run.Archive)
	assert.Equal(t, graph.Counts{Interfaces: 1}, run.Counts)
	assert.True(t, run.CreatedAt.Equal(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)))

	require.Len(t, run.Failures, 1)
	assert.Equal(t, "com.x.Broken", run.Failures[0].FullyQualifiedName)
	assert.Equal(t, graph.ReasonDescribeFailed, run.Failures[0].Reason)
	assert.Equal(t, "unreadable class", run.Failures[0].Message)
}

func TestSQLiteStore_EmptyDatabase(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	types, err := store.ListTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)

	_, err = store.LastRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyzeImpact(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	r := graph.NewRegistry()
	for _, fqn := range []string{"com.x.Invoice", "com.x.Order", "com.x.Customer", "com.x.Address"} {
		r.GetOrCreate(fqn)
	}
	field := func(name, fqn string) graph.FieldDescriptor {
		return graph.FieldDescriptor{Name: name, DeclaredTypeName: fqn, SimpleTypeName: graph.ShortName(fqn)}
	}
	_, err := graph.Analyze(ctx, r, descs{
		"com.x.Invoice":  {FullyQualifiedName: "com.x.Invoice", Category: graph.CategoryClass, Fields: []graph.FieldDescriptor{field("order", "com.x.Order")}},
		"com.x.Order":    {FullyQualifiedName: "com.x.Order", Category: graph.CategoryClass, Fields: []graph.FieldDescriptor{field("customer", "com.x.Customer"), field("self", "com.x.Order")}},
		"com.x.Customer": {FullyQualifiedName: "com.x.Customer", Category: graph.CategoryClass, Fields: []graph.FieldDescriptor{field("address", "com.x.Address"), field("last", "com.x.Order")}},
		"com.x.Address":  {FullyQualifiedName: "com.x.Address", Category: graph.CategoryClass},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ctx, &Snapshot{RunID: "run-1", Archive: "orders.jar", Types: r.Nodes()}))

	deps, err := store.Dependents(ctx, "com.x.Order")
	require.NoError(t, err)
	assert.Equal(t, []string{"com.x.Customer", "com.x.Invoice"}, deps)

	impact, err := AnalyzeImpact(ctx, store, "com.x.Address")
	require.NoError(t, err)
	assert.Equal(t, []string{"com.x.Customer"}, impact.DirectlyAffected)
	assert.ElementsMatch(t, []string{"com.x.Order", "com.x.Invoice"}, impact.IndirectlyAffected)
}
