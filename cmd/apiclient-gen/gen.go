package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "apiclient-gen"
	app.Usage = "generate an API description and typed client for a Go interface"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "input, i", Usage: "Go file containing the interface"},
		cli.StringFlag{Name: "interface", Usage: "Name of the interface to generate the client for"},
		cli.StringFlag{Name: "output, o", Value: "apiclient_gen.go", Usage: "Output file"},
		cli.StringFlag{Name: "name", Usage: "API name, defaults to the interface name"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	input, iface := c.String("input"), c.String("interface")
	if input == "" || iface == "" {
		return cli.NewExitError("input and interface flags are required", 2)
	}

	src, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	out, err := generate(input, src, iface, c.String("name"))
	if err != nil {
		return err
	}
	output := c.String("output")
	if err = os.WriteFile(output, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.WithFields(log.Fields{"Interface": iface, "Output": output}).Info("client generated")
	return nil
}

type param struct {
	name  string
	typ   string
	named bool
	// ident is the Go identifier used in the generated wrapper.
	ident string
}

// reserved names are declared or referenced inside every generated wrapper.
var reserved = map[string]bool{
	"x":      true,
	"ctx":    true,
	"err":    true,
	"client": true,
}

type operation struct {
	name    string
	params  []param
	returns string
}

func generate(filename string, src []byte, interfaceName, apiName string) ([]byte, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filename, src, parser.AllErrors)
	if err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}

	var iface *ast.InterfaceType
	ast.Inspect(node, func(n ast.Node) bool {
		typeSpec, ok := n.(*ast.TypeSpec)
		if !ok || typeSpec.Name.Name != interfaceName {
			return iface == nil
		}
		iface, _ = typeSpec.Type.(*ast.InterfaceType)
		return false
	})
	if iface == nil {
		return nil, fmt.Errorf("interface %s not found in %s", interfaceName, filename)
	}

	used := map[string]bool{"context": true}
	var ops []operation
	for _, method := range iface.Methods.List {
		if len(method.Names) == 0 {
			return nil, fmt.Errorf("%s: embedded interface %s is not supported", interfaceName, types.ExprString(method.Type))
		}
		if !ast.IsExported(method.Names[0].Name) {
			return nil, fmt.Errorf("%s: unexported method %s cannot be called remotely", interfaceName, method.Names[0].Name)
		}
		op, err := parseOperation(method.Names[0].Name, method.Type.(*ast.FuncType), used)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	if apiName == "" {
		apiName = interfaceName
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by apiclient-gen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", node.Name.Name)
	writeImports(&buf, node, used)
	writeDescription(&buf, interfaceName, apiName, ops)
	writeClient(&buf, interfaceName, ops)

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated code: %w", err)
	}
	return formatted, nil
}

func parseOperation(name string, sig *ast.FuncType, used map[string]bool) (operation, error) {
	op := operation{name: name}
	fields := sig.Params.List
	if len(fields) == 0 || types.ExprString(fields[0].Type) != "context.Context" {
		return op, fmt.Errorf("%s: first parameter must be context.Context", name)
	}

	position := 0
	for i, field := range fields {
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			return op, fmt.Errorf("%s: variadic parameters are not supported", name)
		}
		typ := types.ExprString(field.Type)
		collectPackages(field.Type, used)

		names := field.Names
		if len(names) == 0 {
			names = []*ast.Ident{nil}
		}
		for j, n := range names {
			if i == 0 && j == 0 {
				continue
			}
			p := param{typ: typ}
			if n != nil && n.Name != "_" {
				p.name, p.named = n.Name, true
			} else {
				position++
				p.name = "arg" + strconv.Itoa(position)
			}
			op.params = append(op.params, p)
		}
	}
	assignIdents(op.params)

	var results []ast.Expr
	if sig.Results != nil {
		for _, field := range sig.Results.List {
			for n := 0; n < len(field.Names) || n == 0; n++ {
				results = append(results, field.Type)
			}
		}
	}
	switch {
	case len(results) == 1 && types.ExprString(results[0]) == "error":
	case len(results) == 2 && types.ExprString(results[1]) == "error":
		op.returns = types.ExprString(results[0])
		collectPackages(results[0], used)
	default:
		return op, fmt.Errorf("%s: results must be (error) or (T, error)", name)
	}
	return op, nil
}

// assignIdents keeps declared names where they cannot clash with the
// wrapper's own identifiers and suffixes the rest until unique.
func assignIdents(params []param) {
	taken := map[string]bool{}
	for k := range reserved {
		taken[k] = true
	}
	for _, p := range params {
		if p.named && !reserved[p.name] {
			taken[p.name] = true
		}
	}
	for i := range params {
		p := &params[i]
		if p.named && !reserved[p.name] {
			p.ident = p.name
			continue
		}
		ident := p.name
		for taken[ident] {
			ident += "_"
		}
		taken[ident] = true
		p.ident = ident
	}
}

func collectPackages(expr ast.Expr, used map[string]bool) {
	ast.Inspect(expr, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				used[id.Name] = true
			}
		}
		return true
	})
}

func writeImports(buf *bytes.Buffer, node *ast.File, used map[string]bool) {
	fmt.Fprintf(buf, "import (\n\t\"context\"\n")
	for _, spec := range node.Imports {
		path, _ := strconv.Unquote(spec.Path.Value)
		if path == "context" {
			continue
		}
		name := path[strings.LastIndex(path, "/")+1:]
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if !used[name] {
			continue
		}
		if spec.Name != nil {
			fmt.Fprintf(buf, "\t%s %q\n", spec.Name.Name, path)
		} else {
			fmt.Fprintf(buf, "\t%q\n", path)
		}
	}
	fmt.Fprintf(buf, "\n\t\"github.com/yingshulu/apiclient/api\"\n\t\"github.com/yingshulu/apiclient/client\"\n)\n\n")
}

func writeDescription(buf *bytes.Buffer, interfaceName, apiName string, ops []operation) {
	fmt.Fprintf(buf, "// New%sDescription describes the operations of %s.\n", interfaceName, interfaceName)
	fmt.Fprintf(buf, "func New%sDescription() *api.API {\n\treturn api.New(%q)", interfaceName, apiName)
	for _, op := range ops {
		fmt.Fprintf(buf, ".\n\t\tMethod(%q", op.name)
		if len(op.params) > 0 {
			args := make([]string, len(op.params))
			for i, p := range op.params {
				if p.named {
					args[i] = fmt.Sprintf("api.NamedArg(%q, api.TypeOf[%s]())", p.name, p.typ)
				} else {
					args[i] = fmt.Sprintf("api.Arg(api.TypeOf[%s]())", p.typ)
				}
			}
			fmt.Fprintf(buf, ", api.Expects(%s)", strings.Join(args, ", "))
		}
		if op.returns != "" {
			fmt.Fprintf(buf, ", api.Returns(api.TypeOf[%s]())", op.returns)
		}
		fmt.Fprintf(buf, ")")
	}
	fmt.Fprintf(buf, "\n}\n\n")
}

func writeClient(buf *bytes.Buffer, interfaceName string, ops []operation) {
	clientName := interfaceName + "Client"
	fmt.Fprintf(buf, "var _ %s = (*%s)(nil)\n\n", interfaceName, clientName)
	fmt.Fprintf(buf, "type %s struct {\n\tc *client.Client\n}\n\n", clientName)
	fmt.Fprintf(buf, "func New%s(endpoint string, options ...client.Option) (*%s, error) {\n", clientName, clientName)
	fmt.Fprintf(buf, "\tc, err := client.New(New%sDescription(), endpoint, options...)\n", interfaceName)
	fmt.Fprintf(buf, "\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(buf, "\treturn &%s{c: c}, nil\n}\n\n", clientName)
	fmt.Fprintf(buf, "func (x *%s) Close() error {\n\treturn x.c.Close()\n}\n\n", clientName)

	for _, op := range ops {
		decls := make([]string, 0, len(op.params)+1)
		args := make([]string, 0, len(op.params)+3)
		decls = append(decls, "ctx context.Context")
		args = append(args, "ctx")
		for _, p := range op.params {
			decls = append(decls, p.ident+" "+p.typ)
		}

		if op.returns == "" {
			fmt.Fprintf(buf, "func (x *%s) %s(%s) error {\n", clientName, op.name, strings.Join(decls, ", "))
			args = append(args, strconv.Quote(op.name))
			for _, p := range op.params {
				args = append(args, p.ident)
			}
			fmt.Fprintf(buf, "\t_, err := x.c.Invoke(%s)\n\treturn err\n}\n\n", strings.Join(args, ", "))
			continue
		}

		fmt.Fprintf(buf, "func (x *%s) %s(%s) (%s, error) {\n", clientName, op.name, strings.Join(decls, ", "), op.returns)
		args = append(args, "x.c", strconv.Quote(op.name))
		for _, p := range op.params {
			args = append(args, p.ident)
		}
		fmt.Fprintf(buf, "\treturn client.Call[%s](%s)\n}\n\n", op.returns, strings.Join(args, ", "))
	}
}
