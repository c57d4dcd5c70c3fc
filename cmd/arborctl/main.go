package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ndlib/arbor/client"
	"github.com/ndlib/arbor/resource"
)

var (
	server = flag.String("server", "http://localhost:14100", "URL of the arbor server")
	token  = flag.String("token", "", "API token to send with every request")
	lang   = flag.String("lang", "expr", "language for query")
	limit  = flag.Int("limit", 0, "maximum number of query results, 0 for no limit")
	usage  = `
arborctl [flags] <command> <command arguments>

Possible commands:
    get <path list>

    ls <path>

    query <expression>

    create <path> [key=value ...]

    update <path> [key=value ...]

    rm <path list>

    batch
        read a JSON array of operations from stdin and apply them together
`
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	c := &client.Connection{HostURL: *server, Token: *token}
	var err error
	switch args[0] {
	case "get":
		err = doget(c, args[1:])
	case "ls":
		err = dols(c, args[1:])
	case "query":
		err = doquery(c, args[1:])
	case "create", "update":
		err = dowrite(c, args[0], args[1:])
	case "rm":
		err = dorm(c, args[1:])
	case "batch":
		err = dobatch(c, os.Stdin)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func doget(c *client.Connection, paths []string) error {
	for _, p := range paths {
		d, err := c.Get(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		printresource(os.Stdout, d)
	}
	return nil
}

func dols(c *client.Connection, args []string) error {
	p := "/"
	if len(args) > 0 {
		p = args[0]
	}
	kids, err := c.Children(p)
	if err != nil {
		return err
	}
	for _, d := range kids {
		fmt.Println(d.Path())
	}
	return nil
}

func doquery(c *client.Connection, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("query takes exactly one expression")
	}
	found, err := c.Query(args[0], *lang, *limit)
	if err != nil {
		return err
	}
	for _, d := range found {
		printresource(os.Stdout, d)
	}
	return nil
}

func dowrite(c *client.Connection, op string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s needs a path", op)
	}
	props, err := parseProps(args[1:])
	if err != nil {
		return err
	}
	o := client.Create(args[0], props)
	if op == "update" {
		o = client.Update(args[0], props)
	}
	return runBatch(c, []client.Op{o})
}

func dorm(c *client.Connection, paths []string) error {
	var ops []client.Op
	for _, p := range paths {
		ops = append(ops, client.Delete(p))
	}
	return runBatch(c, ops)
}

func dobatch(c *client.Connection, r io.Reader) error {
	var ops []client.Op
	if err := json.NewDecoder(r).Decode(&ops); err != nil {
		return err
	}
	return runBatch(c, ops)
}

func runBatch(c *client.Connection, ops []client.Op) error {
	if len(ops) == 0 {
		return nil
	}
	changes, err := c.Batch(ops)
	for _, ch := range changes {
		fmt.Println(ch)
	}
	return err
}

// parseProps turns a list of key=value arguments into properties. A value
// which is valid JSON is used as such, anything else is a string.
func parseProps(args []string) (map[string]interface{}, error) {
	props := make(map[string]interface{})
	for _, arg := range args {
		i := strings.Index(arg, "=")
		if i <= 0 {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		key, text := arg[:i], arg[i+1:]
		var v interface{}
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			v = text
		}
		props[key] = v
	}
	return props, nil
}

func printresource(out io.Writer, d *resource.Data) {
	fmt.Fprintln(out, "---")
	w := tabwriter.NewWriter(out, 5, 1, 3, ' ', 0)
	fmt.Fprintf(w, "Path:\t%s\n", d.Path())
	props := d.Properties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s:\t%s\n", k, format(props[k]))
	}
	w.Flush()
}

func format(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case json.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
