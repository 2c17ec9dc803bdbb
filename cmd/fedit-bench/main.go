// Command fedit-bench delivers the same edits from many concurrent workers
// and reports how many committed and how many lost the lease race.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mirkobrombin/go-fedit/v1/edit"
	"github.com/mirkobrombin/go-fedit/v1/model"
	"github.com/mirkobrombin/go-fedit/v1/presets"
)

var (
	concurrency = flag.Int("c", 50, "Number of concurrent workers")
	requests    = flag.Int("n", 10000, "Total number of edits")
	statuses    = flag.Int("s", 4, "Number of distinct statuses edited")
	redisAddr   = flag.String("redis", "", "Use Redis for statuses and leases instead of memory")
)

type applier interface {
	ApplyByURI(ctx context.Context, uri string, raw []byte) edit.Result
}

func main() {
	flag.Parse()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn + 1}))
	slog.SetDefault(log)
	if err := checkFlags(*concurrency, *requests, *statuses); err != nil {
		log.Error("fedit: invalid flags", "error", err)
		os.Exit(2)
	}

	ctx := context.Background()
	uris := make([]string, *statuses)
	for i := range uris {
		uris[i] = fmt.Sprintf("https://bench.example/statuses/%d", i)
	}

	var a applier
	if *redisAddr != "" {
		r := presets.NewRedis(presets.RedisOptions{Addr: *redisAddr}, edit.WithLogger(log))
		defer r.Close()
		if err := r.Store.PutAccount(ctx, model.Account{ID: 1}); err != nil {
			log.Error("fedit: setup failed", "error", err)
			os.Exit(1)
		}
		for _, u := range uris {
			if err := r.Store.PutStatus(ctx, model.Status{URI: u, AccountID: 1}); err != nil {
				log.Error("fedit: setup failed", "error", err)
				os.Exit(1)
			}
		}
		a = r
	} else {
		s := presets.NewStandalone(edit.WithLogger(log))
		s.Store.PutAccount(model.Account{ID: 1})
		for _, u := range uris {
			s.Store.PutStatus(model.Status{URI: u, AccountID: 1})
		}
		a = s
	}

	fmt.Printf("Starting benchmark: %d edits, %d workers, %d statuses\n", *requests, *concurrency, *statuses)

	var counts [4]atomic.Int64
	var wg sync.WaitGroup
	perWorker := *requests / *concurrency
	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				u := uris[(worker+j)%len(uris)]
				doc := fmt.Sprintf(`{"type":"Note","content":"edit %d by %d"}`, j, worker)
				res := a.ApplyByURI(ctx, u, []byte(doc))
				if int(res.Outcome) < len(counts) {
					counts[res.Outcome].Add(1)
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := int64(perWorker * *concurrency)
	fmt.Printf("Finished in %v (%.2f edits/s)\n", elapsed, float64(total)/elapsed.Seconds())
	for _, o := range []edit.Outcome{edit.OutcomeCommitted, edit.OutcomeRaceCondition, edit.OutcomePersistenceFault, edit.OutcomeSkipped} {
		fmt.Printf("%-18s %d\n", o, counts[o].Load())
	}
}

func checkFlags(workers, edits, statuses int) error {
	switch {
	case workers < 1:
		return fmt.Errorf("-c must be at least 1, got %d", workers)
	case edits < 1:
		return fmt.Errorf("-n must be at least 1, got %d", edits)
	case statuses < 1:
		return fmt.Errorf("-s must be at least 1, got %d", statuses)
	}
	return nil
}
