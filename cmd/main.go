package main

import (
	"bptree/bptree"
	"bptree/cli"
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/go-faker/faker/v4"
	"go.uber.org/zap"
)

var shouldSeed, verbose *bool
var seedNumRecords, nodeSize, maxEntries *int

func seedTreeWithTestRecords(t *bptree.Tree[string, string]) {
	for i := 0; i < *seedNumRecords; i++ {
		k := faker.Word() + faker.Word()
		v := faker.Word() + faker.Word()
		t.Insert(k, &v)
	}
}

func newLogger() (*zap.Logger, error) {
	if *verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	setupFlags()

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := bptree.Config{NodeSize: *nodeSize, MaxEntries: *maxEntries, Logger: logger}
	tree, err := bptree.New[string, string](cfg)
	if err != nil {
		logger.Fatal("cannot create tree", zap.Error(err))
	}
	logger.Info("tree ready", zap.Int("maxEntries", tree.MaxEntries()))

	if *shouldSeed {
		seedTreeWithTestRecords(tree)
		logger.Info("seeded", zap.Int("records", tree.Len()), zap.Int("depth", tree.Depth()))
	}

	scanner := bufio.NewScanner(os.Stdin)
	demo := cli.NewCli(scanner, os.Stdout, tree, logger)
	demo.Start()
}

func setupFlags() {
	nodeSize = flag.Int("node-size", bptree.DefaultNodeSize, "Byte budget of a node; the node capacity is derived from it.")
	maxEntries = flag.Int("max-entries", 0, "Entries per node. Overrides -node-size when set.")
	shouldSeed = flag.Bool("seed", false, "Seed the tree using records created with go-faker.")
	seedNumRecords = flag.Int("records", 1000, "Amount of records to seed the tree with upon startup.")
	verbose = flag.Bool("verbose", false, "Log structural events such as root promotions.")
	flag.Usage = func() {
		fmt.Println("\nB+ Tree CLI\n\nArguments:")
		flag.PrintDefaults()
	}
	flag.Parse()
}
