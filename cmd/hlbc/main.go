// Command hlbc is the HashLink bytecode toolkit's CLI front-end:
// disassemble, decompile, or graph a single function, or inspect the
// decompilation cache.
//
// Grounded on _examples/chriskillpack-bbcdisasm/cmd/bbcdisasm/main.go's
// urfave/cli shape: one cli.App with a Commands list, each Action reading
// its positional args off c.Args() and its options off string/int/bool
// flags, returning cli.Exit(msg, code) on a usage error rather than
// panicking or calling os.Exit directly.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kr/pretty"
	cli "github.com/urfave/cli/v2"

	"github.com/N3rdL0rd/crashlink/internal/api"
	"github.com/N3rdL0rd/crashlink/internal/cache"
)

func readModule(path string) (*api.Toolkit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return api.Parse(data)
}

func parseFindex(c *cli.Context, argIndex int) (int, error) {
	s := c.Args().Get(argIndex)
	if s == "" {
		return 0, fmt.Errorf("missing function index argument")
	}
	findex, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid function index %q: %w", s, err)
	}
	return findex, nil
}

func attachCache(c *cli.Context, tk *api.Toolkit) (func(), error) {
	dbType := c.String("cache-type")
	dsn := c.String("cache-dsn")
	if dbType == "" || dsn == "" {
		return func() {}, nil
	}
	ch, err := cache.Open(dbType, dsn)
	if err != nil {
		return nil, err
	}
	tk.WithCache(ch)
	return func() { ch.Close() }, nil
}

var cacheFlags = []cli.Flag{
	&cli.StringFlag{Name: "cache-type", Usage: "decompilation cache backend (sqlite, postgres, mysql, mssql)"},
	&cli.StringFlag{Name: "cache-dsn", Usage: "decompilation cache data source name"},
}

func main() {
	os.Exit(run(os.Args))
}

// run builds the app and executes it against args, returning the process
// exit code. Split out from main so testscript can invoke it as an
// in-process command.
func run(args []string) int {
	app := newApp()
	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "hlbc"
	app.Usage = "disassemble, decompile, and graph HashLink bytecode"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:      "disasm",
			Aliases:   []string{"d"},
			Usage:     "print a function's raw op listing",
			ArgsUsage: "file.hl findex",
			Action: func(c *cli.Context) error {
				tk, err := readModule(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				findex, err := parseFindex(c, 1)
				if err != nil {
					return cli.Exit(err, 1)
				}
				out, err := tk.Disasm(findex)
				if err != nil {
					return cli.Exit(err, 1)
				}
				fmt.Println(out)
				return nil
			},
		},
		{
			Name:      "decompile",
			Aliases:   []string{"c"},
			Usage:     "print a function's decompiled pseudo-code",
			ArgsUsage: "file.hl findex",
			Flags: append(cacheFlags,
				&cli.BoolFlag{Name: "dump-ir", Usage: "print the optimized IR tree before pseudo-code"}),
			Action: func(c *cli.Context) error {
				tk, err := readModule(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				closeCache, err := attachCache(c, tk)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer closeCache()

				findex, err := parseFindex(c, 1)
				if err != nil {
					return cli.Exit(err, 1)
				}

				if c.Bool("dump-ir") {
					body, err := tk.IR(findex)
					if err != nil {
						return cli.Exit(err, 1)
					}
					fmt.Printf("%# v\n", pretty.Formatter(body))
				}

				out, err := tk.Pseudo(findex)
				if err != nil {
					return cli.Exit(err, 1)
				}
				fmt.Println(out)
				return nil
			},
		},
		{
			Name:      "cfg",
			Usage:     "print a function's control-flow graph as block/edge listings",
			ArgsUsage: "file.hl findex",
			Action: func(c *cli.Context) error {
				tk, err := readModule(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				findex, err := parseFindex(c, 1)
				if err != nil {
					return cli.Exit(err, 1)
				}
				g, err := tk.CFG(findex)
				if err != nil {
					return cli.Exit(err, 1)
				}
				for _, b := range g.Blocks {
					fmt.Printf("block %d [%d, %d]\n", b.Index, b.Start, b.End)
					for _, e := range b.Succs {
						fmt.Printf("  -> block %d (%s)\n", e.To, e.Kind)
					}
				}
				return nil
			},
		},
		{
			Name:  "stats",
			Usage: "print a summary of a module's pool sizes and function/type counts",
			Action: func(c *cli.Context) error {
				tk, err := readModule(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				s := tk.Stats()
				fmt.Printf("version       %d\n", s.Version)
				fmt.Printf("functions     %d\n", s.FunctionCount)
				fmt.Printf("types         %d\n", s.TypeCount)
				fmt.Printf("globals       %d\n", s.GlobalCount)
				fmt.Printf("natives       %d\n", s.NativeCount)
				fmt.Printf("ints          %d\n", s.IntCount)
				fmt.Printf("floats        %d\n", s.FloatCount)
				fmt.Printf("strings       %d\n", s.StringCount)
				fmt.Printf("raw size      %s\n", s.RawSize)
				fmt.Printf("debug coverage %s\n", s.DebugCoverage)
				return nil
			},
		},
		{
			Name:  "cache",
			Usage: "inspect the decompilation cache",
			Subcommands: []*cli.Command{
				{
					Name:  "stats",
					Usage: "print how many artifacts of each kind are cached",
					Flags: cacheFlags,
					Action: func(c *cli.Context) error {
						ch, err := cache.Open(c.String("cache-type"), c.String("cache-dsn"))
						if err != nil {
							return cli.Exit(err, 1)
						}
						defer ch.Close()
						stats, err := ch.Stats()
						if err != nil {
							return cli.Exit(err, 1)
						}
						for kind, n := range stats {
							fmt.Printf("%-8s %d\n", kind, n)
						}
						return nil
					},
				},
			},
		},
	}
	return app
}
