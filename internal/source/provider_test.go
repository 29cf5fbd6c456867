package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graffiti/internal/graph"
)

type memEntries map[string]string

func (m memEntries) ReadEntry(name string) ([]byte, error) {
	s, ok := m[name]
	if !ok {
		return nil, errors.New("no such entry")
	}
	return []byte(s), nil
}

const orderSrc = `package com.x;

import java.util.List;
import java.util.Map;
import java.io.IOException;

public class Order<T extends Comparable<T>> {
    private int id;
    private Customer customer;
    private String[] tags;
    private Map<String, String> meta;
    private List<? extends Number> amounts;
    private T key;
    long stamps[];

    public int getId() { return id; }

    private static Order parse(String text) throws IOException { return null; }

    protected void tag(String... values) {}

    public final <R> List<R> map(Map<T, R> table) { return null; }

    static class Line {
        Order owner;
    }
}
`

const customerSrc = `package com.x;

public abstract class Customer {
    protected String name;
    public abstract void rename(String name);
}
`

const repoSrc = `package com.x.repo;

import com.x.*;

public interface Repository {
    int LIMIT = 10;
    long count();
    default boolean isEmpty() { return count() == 0; }
    static Repository none() { return null; }
    Order find(Customer c);
}
`

const statusSrc = `package com.x;

public enum Status {
    OPEN, CLOSED;
    private String label;
}
`

const pointSrc = `package com.x;

public record Point(int x, int y) {}
`

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	files := memEntries{
		"com/x/Order.java":           orderSrc,
		"com/x/Customer.java":        customerSrc,
		"com/x/repo/Repository.java": repoSrc,
		"com/x/Status.java":          statusSrc,
		"com/x/Point.java":           pointSrc,
	}
	p, err := NewProvider(context.Background(), files, []string{
		"com/x/Order.java",
		"com/x/Customer.java",
		"com/x/repo/Repository.java",
		"com/x/Status.java",
		"com/x/Point.java",
		"com/x/Missing.java",
	}, nil)
	require.NoError(t, err)
	return p
}

func TestProvider_Types(t *testing.T) {
	p := newTestProvider(t)

	assert.Equal(t, []string{
		"com.x.Customer",
		"com.x.Order",
		"com.x.Order$Line",
		"com.x.Point",
		"com.x.Status",
		"com.x.repo.Repository",
	}, p.Types())
	assert.Equal(t, []string{"com/x/Missing.java"}, p.Skipped())

	r := graph.NewRegistry()
	assert.Equal(t, 6, p.Populate(r))
}

func TestProvider_Fields(t *testing.T) {
	p := newTestProvider(t)

	desc, err := p.Describe(context.Background(), "com.x.Order")
	require.NoError(t, err)
	assert.Equal(t, graph.CategoryClass, desc.Category)

	byName := make(map[string]graph.FieldDescriptor)
	for _, f := range desc.Fields {
		byName[f.Name] = f
	}
	require.Len(t, byName, 7)

	assert.Equal(t, graph.FieldDescriptor{Name: "id", DeclaredTypeName: "int", SimpleTypeName: "int", IsPrimitive: true}, byName["id"])
	assert.Equal(t, graph.FieldDescriptor{Name: "customer", DeclaredTypeName: "com.x.Customer", SimpleTypeName: "Customer"}, byName["customer"])
	assert.Equal(t, graph.FieldDescriptor{Name: "tags", DeclaredTypeName: "[Ljava.lang.String;", SimpleTypeName: "String[]", IsArray: true}, byName["tags"])
	assert.Equal(t, graph.FieldDescriptor{
		Name:             "meta",
		DeclaredTypeName: "java.util.Map",
		SimpleTypeName:   "Map",
		GenericSignature: "java.util.Map<java.lang.String, java.lang.String>",
	}, byName["meta"])
	assert.Equal(t, "java.util.List<? extends java.lang.Number>", byName["amounts"].GenericSignature)
	assert.Equal(t, graph.FieldDescriptor{
		Name:             "key",
		DeclaredTypeName: "java.lang.Comparable",
		SimpleTypeName:   "Comparable",
		GenericSignature: "T",
	}, byName["key"])
	assert.Equal(t, graph.FieldDescriptor{Name: "stamps", DeclaredTypeName: "[J", SimpleTypeName: "long[]", IsArray: true}, byName["stamps"])
}

func TestProvider_Methods(t *testing.T) {
	p := newTestProvider(t)

	desc, err := p.Describe(context.Background(), "com.x.Order")
	require.NoError(t, err)

	assert.Equal(t, []graph.Method{
		{Signature: "public int com.x.Order.getId()", Visibility: graph.VisibilityPublic},
		{Signature: "private static com.x.Order com.x.Order.parse(java.lang.String) throws java.io.IOException", Visibility: graph.VisibilityPrivate},
		{Signature: "protected void com.x.Order.tag(java.lang.String...)", Visibility: graph.VisibilityOther},
		{Signature: "public final <R> java.util.List<R> com.x.Order.map(java.util.Map<T, R>)", Visibility: graph.VisibilityPublic},
	}, desc.Methods)
}

func TestProvider_NestedAndCategories(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	line, err := p.Describe(ctx, "com.x.Order$Line")
	require.NoError(t, err)
	require.Len(t, line.Fields, 1)
	assert.Equal(t, "com.x.Order", line.Fields[0].DeclaredTypeName)

	customer, err := p.Describe(ctx, "com.x.Customer")
	require.NoError(t, err)
	assert.Equal(t, graph.CategoryAbstract, customer.Category)
	require.Len(t, customer.Methods, 1)
	assert.Equal(t, graph.VisibilityPublic, customer.Methods[0].Visibility)
	assert.Equal(t, "public abstract void com.x.Customer.rename(java.lang.String)", customer.Methods[0].Signature)

	repo, err := p.Describe(ctx, "com.x.repo.Repository")
	require.NoError(t, err)
	assert.Equal(t, graph.CategoryInterface, repo.Category)
	require.Len(t, repo.Fields, 1)
	assert.Equal(t, "LIMIT", repo.Fields[0].Name)

	var sigs []string
	for _, m := range repo.Methods {
		sigs = append(sigs, m.Signature)
	}
	assert.Equal(t, []string{
		"public abstract long com.x.repo.Repository.count()",
		"public default boolean com.x.repo.Repository.isEmpty()",
		"public static com.x.repo.Repository com.x.repo.Repository.none()",
		"public abstract com.x.Order com.x.repo.Repository.find(com.x.Customer)",
	}, sigs)
}

func TestProvider_EnumAndRecord(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	status, err := p.Describe(ctx, "com.x.Status")
	require.NoError(t, err)
	var names []string
	for _, f := range status.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"OPEN", "CLOSED", "label"}, names)
	assert.Equal(t, "com.x.Status", status.Fields[0].DeclaredTypeName)

	point, err := p.Describe(ctx, "com.x.Point")
	require.NoError(t, err)
	require.Len(t, point.Fields, 2)
	assert.Equal(t, "x", point.Fields[0].Name)
	assert.True(t, point.Fields[0].IsPrimitive)
}

func TestProvider_DescribeUnknown(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.Describe(context.Background(), "com.x.Nope")
	assert.ErrorIs(t, err, ErrUnknownType)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Describe(ctx, "com.x.Order")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQualifiedToBinary(t *testing.T) {
	assert.Equal(t, "java.util.Map$Entry", qualifiedToBinary("java.util.Map.Entry"))
	assert.Equal(t, "java.util.List", qualifiedToBinary("java.util.List"))
	assert.Equal(t, "com.x", qualifiedToBinary("com.x"))
}
