package main

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePersonAPI(t *testing.T) {
	input := filepath.Join("testdata", "person_api.go")
	src, err := os.ReadFile(input)
	require.NoError(t, err)

	out, err := generate(input, src, "PersonAPI", "")
	require.NoError(t, err)
	code := string(out)
	t.Log(code)

	typeCheck(t, src, out)

	assert.Contains(t, code, "package people")
	assert.Contains(t, code, `"time"`)
	assert.Contains(t, code, "func NewPersonAPIDescription() *api.API")
	assert.Contains(t, code, `api.New("PersonAPI")`)
	assert.Contains(t, code, `Method("FindAll", api.Returns(api.TypeOf[[]Person]()))`)
	assert.Contains(t, code, `api.NamedArg("name", api.TypeOf[string]())`)
	assert.Contains(t, code, `api.NamedArg("since", api.TypeOf[time.Time]()), api.NamedArg("limit", api.TypeOf[int]())`)
	assert.Contains(t, code, `Method("Remove", api.Expects(api.Arg(api.TypeOf[string]())))`)
	assert.Contains(t, code, "var _ PersonAPI = (*PersonAPIClient)(nil)")
	assert.Contains(t, code, "func NewPersonAPIClient(endpoint string, options ...client.Option) (*PersonAPIClient, error)")
	assert.Contains(t, code, `return client.Call[*Person](ctx, x.c, "FindByName", name)`)
	assert.Contains(t, code, "func (x *PersonAPIClient) Rename(ctx context.Context, from string, to string) error")
	assert.Contains(t, code, `_, err := x.c.Invoke(ctx, "Rename", from, to)`)
	assert.Contains(t, code, "func (x *PersonAPIClient) Remove(ctx context.Context, arg1 string) error")
}

func TestGenerateAPIName(t *testing.T) {
	src := []byte(`package p

import "context"

type Echo interface {
	Echo(ctx context.Context, s string) (string, error)
}
`)
	out, err := generate("echo.go", src, "Echo", "EchoService")
	require.NoError(t, err)
	assert.Contains(t, string(out), `api.New("EchoService")`)
	assert.NotContains(t, string(out), `"time"`)
}

func TestGenerateErrors(t *testing.T) {
	cases := map[string]string{
		"missing": `package p
type Other interface{}
`,
		"no context": `package p
type API interface {
	Do(s string) error
}
`,
		"variadic": `package p
import "context"
type API interface {
	Do(ctx context.Context, s ...string) error
}
`,
		"results": `package p
import "context"
type API interface {
	Do(ctx context.Context) (int, string)
}
`,
		"named results": `package p
import "context"
type API interface {
	Do(ctx context.Context) (a, b int, err error)
}
`,
		"embedded": `package p
import (
	"context"
	"io"
)
type API interface {
	io.Closer
	Do(ctx context.Context) error
}
`,
		"unexported": `package p
import "context"
type API interface {
	Do(ctx context.Context) error
	helper(ctx context.Context) error
}
`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := generate("api.go", []byte(src), "API", "")
			assert.Error(t, err)
		})
	}
}

func TestGenerateIdentifierClashes(t *testing.T) {
	src := []byte(`package geo

import "context"

type Point struct {
	X, Y int
}

type Geo interface {
	Move(ctx context.Context, x int, y int) error
	Drop(ctx context.Context, err string) error
	Tag(c context.Context, client string, ctx string, client_ string) (string, error)
	Place(ctx context.Context, _ Point, arg1 int, x_ int, x int) (*Point, error)
}
`)
	out, err := generate("geo.go", src, "Geo", "")
	require.NoError(t, err)
	code := string(out)
	t.Log(code)
	typeCheck(t, src, out)

	assert.Contains(t, code, "func (x *GeoClient) Move(ctx context.Context, x_ int, y int) error")
	assert.Contains(t, code, "func (x *GeoClient) Drop(ctx context.Context, err_ string) error")
	assert.Contains(t, code, `_, err := x.c.Invoke(ctx, "Drop", err_)`)
	assert.Contains(t, code, "func (x *GeoClient) Tag(ctx context.Context, client__ string, ctx_ string, client_ string) (string, error)")
	assert.Contains(t, code, "func (x *GeoClient) Place(ctx context.Context, arg1_ Point, arg1 int, x_ int, x__ int) (*Point, error)")

	// wire names are the declared ones
	assert.Contains(t, code, `api.NamedArg("x", api.TypeOf[int]())`)
	assert.Contains(t, code, `api.NamedArg("err", api.TypeOf[string]())`)
	assert.Contains(t, code, `api.Expects(api.Arg(api.TypeOf[Point]()), api.NamedArg("arg1", api.TypeOf[int]())`)
}

// stubs mirror the exported surface of the api and client packages that
// generated code uses.
var stubs = map[string]string{
	"github.com/yingshulu/apiclient/api": `package api

import "reflect"

type Param struct {
	Name string
	Type reflect.Type
}

type Operation struct{}

type MethodOption = func(*Operation)

type Option = func(*API)

type API struct{}

func TypeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

func Arg(t reflect.Type) Param { return Param{Type: t} }

func NamedArg(name string, t reflect.Type) Param { return Param{Name: name, Type: t} }

func Expects(params ...Param) MethodOption { return nil }

func Returns(t reflect.Type) MethodOption { return nil }

func New(name string, options ...Option) *API { return &API{} }

func (a *API) Method(name string, options ...MethodOption) *API { return a }
`,
	"github.com/yingshulu/apiclient/client": `package client

import (
	"context"

	"github.com/yingshulu/apiclient/api"
)

type Config struct{}

type Option = func(*Config)

type Client struct{}

func New(a *api.API, endpoint string, options ...Option) (*Client, error) { return &Client{}, nil }

func (c *Client) Invoke(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	return nil, nil
}

func (c *Client) Close() error { return nil }

func Call[R any](ctx context.Context, c *Client, name string, args ...interface{}) (R, error) {
	var zero R
	return zero, nil
}
`,
}

type stubImporter struct {
	fset     *token.FileSet
	packages map[string]*types.Package
	fallback types.Importer
}

func (s *stubImporter) Import(path string) (*types.Package, error) {
	if p, ok := s.packages[path]; ok {
		return p, nil
	}
	src, ok := stubs[path]
	if !ok {
		return s.fallback.Import(path)
	}
	f, err := parser.ParseFile(s.fset, path+"/stub.go", src, 0)
	if err != nil {
		return nil, err
	}
	conf := types.Config{Importer: s}
	p, err := conf.Check(path, s.fset, []*ast.File{f}, nil)
	if err != nil {
		return nil, err
	}
	s.packages[path] = p
	return p, nil
}

// typeCheck checks the interface source and the generated code as one package.
func typeCheck(t *testing.T, src, generated []byte) {
	t.Helper()
	fset := token.NewFileSet()
	input, err := parser.ParseFile(fset, "input.go", src, 0)
	require.NoError(t, err)
	output, err := parser.ParseFile(fset, "apiclient_gen.go", generated, 0)
	require.NoError(t, err)

	conf := types.Config{Importer: &stubImporter{
		fset:     fset,
		packages: map[string]*types.Package{},
		fallback: importer.Default(),
	}}
	_, err = conf.Check(input.Name.Name, fset, []*ast.File{input, output}, nil)
	require.NoError(t, err)
}
