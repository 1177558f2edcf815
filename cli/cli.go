package cli

import (
	"bptree/bptree"
	"bptree/dump"
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Cli struct {
	scanner    *bufio.Scanner
	out        io.Writer
	tree       *bptree.Tree[string, string]
	visualizer *bptree.Visualizer[string, string]
	logger     *zap.Logger
}

func NewCli(s *bufio.Scanner, out io.Writer, t *bptree.Tree[string, string], logger *zap.Logger) *Cli {
	v := &bptree.Visualizer[string, string]{
		Tree: t,
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cli{scanner: s, out: out, tree: t, visualizer: v, logger: logger}
}

// Start reads commands until EXIT or the end of input.
func (c *Cli) Start() {
	c.printHelp()
	c.printPrompt()
	for c.scanner.Scan() {
		if !c.processInput(c.scanner.Text()) {
			return
		}
		c.printPrompt()
	}
	if err := c.scanner.Err(); err != nil {
		c.logger.Error("reading input", zap.Error(err))
	}
}

func (c *Cli) printHelp() {
	fmt.Fprint(c.out, `
B+ Tree CLI

Available Commands:
  SET <key> <val>  Insert a key-value pair into the B+ Tree
  GET <key>        Retrieve the value for key from the B+ Tree
  DEL <key>        Remove a key-value pair from the B+ Tree
  SCAN             List every key-value pair in key order
  LEN              Number of keys in the B+ Tree
  DEPTH            Depth of the B+ Tree
  PRINT            Draw the B+ Tree level by level
  CHECK            Verify the structure of the B+ Tree
  EXPORT <path>    Write every key-value pair to a snappy compressed dump
  IMPORT <path>    Insert every key-value pair of a dump
  CLEAR            Remove everything from the B+ Tree
  HELP             Show this help
  EXIT             Terminate this session
`)
}

func (c *Cli) printPrompt() {
	fmt.Fprint(c.out, "> ")
}

// processInput runs one command line and reports whether the session goes on.
func (c *Cli) processInput(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return true
	}
	command := strings.ToLower(fields[0])
	switch command {
	default:
		fmt.Fprintf(c.out, "Unknown command \"%s\"\n", command)
	case "set":
		c.processSetCommand(fields[1:])
	case "get":
		c.processGetCommand(fields[1:])
	case "del":
		c.processDeleteCommand(fields[1:])
	case "scan":
		c.processScanCommand()
	case "len":
		fmt.Fprintln(c.out, c.tree.Len())
	case "depth":
		fmt.Fprintln(c.out, c.tree.Depth())
	case "print":
		fmt.Fprint(c.out, c.visualizer.Visualize())
	case "check":
		c.processCheckCommand()
	case "export":
		c.processExportCommand(fields[1:])
	case "import":
		c.processImportCommand(fields[1:])
	case "clear":
		n := c.tree.Clear()
		c.logger.Debug("tree cleared", zap.Int("nodes", n))
		fmt.Fprintf(c.out, "Released %d nodes.\n", n)
	case "help":
		c.printHelp()
	case "exit":
		return false
	}
	return true
}

func (c *Cli) processSetCommand(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: SET <key> <value>")
		return
	}
	val := args[1]
	added := c.tree.Insert(args[0], &val)
	c.logger.Debug("set", zap.String("key", args[0]), zap.Bool("added", added))
	fmt.Fprintln(c.out, c.tree)
}

func (c *Cli) processGetCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: GET <key>")
		return
	}
	val, ok := c.tree.Retrieve(args[0])
	if !ok {
		fmt.Fprintln(c.out, "Key not found.")
		return
	}
	fmt.Fprintln(c.out, *val)
}

func (c *Cli) processDeleteCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: DEL <key>")
		return
	}
	if _, ok := c.tree.Delete(args[0]); !ok {
		fmt.Fprintln(c.out, "Key not found.")
		return
	}
	c.logger.Debug("del", zap.String("key", args[0]))
	fmt.Fprintln(c.out, c.tree)
}

func (c *Cli) processScanCommand() {
	c.tree.Ascend(func(key string, val *string) bool {
		fmt.Fprintf(c.out, "%s %s\n", key, *val)
		return true
	})
}

func (c *Cli) processCheckCommand() {
	if err := c.tree.Verify(); err != nil {
		c.logger.Warn("tree check failed", zap.Error(err))
		fmt.Fprintf(c.out, "Check failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Cli) processExportCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: EXPORT <path>")
		return
	}
	n, err := c.export(args[0])
	if err != nil {
		c.logger.Error("export failed", zap.String("path", args[0]), zap.Error(err))
		fmt.Fprintf(c.out, "Export failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Exported %d records to %s\n", n, args[0])
}

func (c *Cli) export(path string) (int, error) {
	w, err := dump.Create(path)
	if err != nil {
		return 0, err
	}
	c.tree.Ascend(func(key string, val *string) bool {
		err = w.Add([]byte(key), []byte(*val))
		return err == nil
	})
	// a dump that was not written completely is removed rather than left half written
	if err = multierr.Append(err, w.Close()); err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return w.Count(), nil
}

func (c *Cli) processImportCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: IMPORT <path>")
		return
	}
	n, err := c.load(args[0])
	if err != nil {
		c.logger.Error("import failed", zap.String("path", args[0]), zap.Int("records", n), zap.Error(err))
		fmt.Fprintf(c.out, "Import failed after %d records: %v\n", n, err)
		return
	}
	fmt.Fprintf(c.out, "Imported %d records from %s\n", n, args[0])
}

func (c *Cli) load(path string) (int, error) {
	r, err := dump.Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for {
		key, val, err := r.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrapf(err, "record %d", n)
		}
		v := string(val)
		c.tree.Insert(string(key), &v)
		n++
	}
}
