// hihat-bench drives a hihat.Table either through a short throughput
// benchmark or an interactive REPL, for manual exploration of the table's
// behavior under load.
//
// Usage:
//
//	hihat-bench [flags]
//	hihat-bench --repl [flags]
//
// Flags:
//
//	--min-size       initial/minimum store size (default 256)
//	--growth-ratio   load factor that triggers migration (default 0.75)
//	--items          number of items to drive through the benchmark
//	--workers        number of concurrent goroutines (default GOMAXPROCS)
//	--config         path to a JSONC file overriding --min-size and --growth-ratio
//	--repl           start an interactive session instead of benchmarking
//
// REPL commands:
//
//	put <n> <value>      Insert or overwrite
//	get <n>               Look up
//	replace <n> <value>  Replace an existing entry
//	add <n> <value>      Insert only if absent
//	remove <n>            Delete
//	view                  List all entries, sorted by insertion order
//	len                   Count live entries
//	help                  Show this help
//	exit / quit           Leave the REPL
package main

import (
	"encoding/json"
	"fmt"
	"hash/maphash"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/hihat/pkg/hihat"
)

// benchSeed seeds every key hash the benchmark computes, so a run's hashes
// are reproducible within the run but not across runs.
var benchSeed = maphash.MakeSeed()

// fileConfig mirrors the subset of hihat.Options a user may override from a
// JSONC config file; zero fields leave the corresponding flag/default in
// place.
type fileConfig struct {
	MinSize     uint64  `json:"min_size"`
	GrowthRatio float64 `json:"growth_ratio"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("hihat-bench", flag.ContinueOnError)

	minSize := flags.Uint64("min-size", hihat.DefaultMinSize, "initial/minimum store size")
	growthRatio := flags.Float64("growth-ratio", hihat.DefaultGrowthRatio, "load factor that triggers migration")
	items := flags.Int("items", 1_000_000, "number of items to drive through the benchmark")
	workers := flags.Int("workers", runtime.GOMAXPROCS(0), "number of concurrent goroutines")
	configPath := flags.String("config", "", "path to a JSONC config file")
	repl := flags.Bool("repl", false, "start an interactive session instead of benchmarking")

	if err := flags.Parse(args); err != nil {
		return err
	}

	opts := hihat.Options{MinSize: *minSize, GrowthRatio: *growthRatio}

	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.MinSize != 0 {
			opts.MinSize = cfg.MinSize
		}
		if cfg.GrowthRatio != 0 {
			opts.GrowthRatio = cfg.GrowthRatio
		}
	}

	table := hihat.New(opts)
	defer table.Close()

	if *repl {
		return runREPL(table)
	}
	return runBenchmark(table, *items, *workers)
}

// loadConfig parses a JSONC (JSON-with-comments) file via hujson.
func loadConfig(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, err
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return fileConfig{}, fmt.Errorf("parsing jsonc: %w", err)
	}

	var cfg fileConfig
	if err := json.Unmarshal(standard, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func runBenchmark(table *hihat.Table, n, workers int) error {
	if workers < 1 {
		workers = 1
	}

	hv := func(i int) hihat.HV {
		var h maphash.Hash
		h.SetSeed(benchSeed)
		fmt.Fprint(&h, i)
		lo := h.Sum64()
		h.Reset()
		fmt.Fprint(&h, "hi", i)
		return hihat.HV{Hi: h.Sum64(), Lo: lo}
	}

	fmt.Printf("populating %d items across %d workers...\n", n, workers)

	start := time.Now()

	var wg sync.WaitGroup
	perWorker := n / workers
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			p := table.Join()
			defer p.Leave()

			lo := w * perWorker
			hi := lo + perWorker
			if w == workers-1 {
				hi = n
			}
			for i := lo; i < hi; i++ {
				table.PutWithParticipant(p, hv(i), i)
			}
		}(w)
	}
	wg.Wait()

	putElapsed := time.Since(start)
	fmt.Printf("put:  %d items in %s (%.0f ops/s)\n", n, putElapsed, float64(n)/putElapsed.Seconds())

	start = time.Now()
	var wg2 sync.WaitGroup
	var misses atomic64
	for w := 0; w < workers; w++ {
		wg2.Add(1)
		go func(w int) {
			defer wg2.Done()
			p := table.Join()
			defer p.Leave()

			lo := w * perWorker
			hi := lo + perWorker
			if w == workers-1 {
				hi = n
			}
			for i := lo; i < hi; i++ {
				if _, found := table.GetWithParticipant(p, hv(i)); !found {
					misses.add(1)
				}
			}
		}(w)
	}
	wg2.Wait()

	getElapsed := time.Since(start)
	fmt.Printf("get:  %d items in %s (%.0f ops/s), %d misses\n", n, getElapsed, float64(n)/getElapsed.Seconds(), misses.load())
	fmt.Printf("len:  %d\n", table.Len())

	return nil
}

func runREPL(table *hihat.Table) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("hihat-bench REPL. Type 'help' for commands, 'exit' to quit.")

	for {
		input, err := line.Prompt("hihat> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if exit := handleREPLLine(table, input); exit {
			return nil
		}
	}
}

func handleREPLLine(table *hihat.Table, input string) (exit bool) {
	fields := strings.Fields(input)
	cmd := fields[0]

	hvOf := func(n int64) hihat.HV {
		return hihat.HV{Hi: uint64(n) ^ 0x9e3779b97f4a7c15, Lo: uint64(n)*2 + 1}
	}

	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		printREPLHelp()
	case "put", "add", "replace":
		if len(fields) < 3 {
			fmt.Println("usage:", cmd, "<n> <value>")
			return false
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			fmt.Println("invalid key:", err)
			return false
		}
		switch cmd {
		case "put":
			old, had := table.Put(hvOf(n), fields[2])
			fmt.Printf("old=%v had=%v\n", old, had)
		case "add":
			fmt.Println("installed =", table.Add(hvOf(n), fields[2]))
		case "replace":
			old, had := table.Replace(hvOf(n), fields[2])
			fmt.Printf("old=%v had=%v\n", old, had)
		}
	case "get", "remove":
		if len(fields) < 2 {
			fmt.Println("usage:", cmd, "<n>")
			return false
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			fmt.Println("invalid key:", err)
			return false
		}
		if cmd == "get" {
			item, found := table.Get(hvOf(n))
			fmt.Printf("item=%v found=%v\n", item, found)
		} else {
			old, had := table.Remove(hvOf(n))
			fmt.Printf("old=%v had=%v\n", old, had)
		}
	case "view":
		for _, e := range table.View(true) {
			fmt.Printf("epoch=%d item=%v\n", e.Epoch, e.Item)
		}
	case "len":
		fmt.Println(table.Len())
	default:
		fmt.Println("unknown command:", cmd, "(try 'help')")
	}

	return false
}

func printREPLHelp() {
	fmt.Print(`commands:
  put <n> <value>      insert or overwrite
  get <n>               look up
  replace <n> <value>  replace an existing entry
  add <n> <value>      insert only if absent
  remove <n>            delete
  view                  list all entries, sorted by insertion order
  len                   count live entries
  help                  show this help
  exit / quit           leave the REPL
`)
}

// atomic64 is a tiny counter so the benchmark doesn't need to import
// sync/atomic just for one int.
type atomic64 struct {
	mu sync.Mutex
	n  uint64
}

func (a *atomic64) add(d uint64) {
	a.mu.Lock()
	a.n += d
	a.mu.Unlock()
}

func (a *atomic64) load() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}
