package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/internal/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type account struct {
	access  string
	refresh string
}

func main() {
	var (
		users       = flag.Int("users", 200, "number of accounts to register")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		ips         = flag.Int("ips", 1024, "distinct client IPs in the guard phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		namespace   = flag.String("namespace", "loadtest", "key namespace")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *ips <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops, and ips must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = client.Close() }()

	cfg := goGuard.DefaultConfig()
	cfg.JWT.AccessSecret = mustSecret()
	cfg.JWT.RefreshSecret = mustSecret()
	cfg.Store.Namespace = *namespace
	cfg.Throttle.MaxRequests = *ops
	cfg.Suspicious.Enabled = false
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goGuard.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(userstore.NewMemory()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("registering %d accounts...\n", *users)
	startSeed := time.Now()
	accounts, err := seed(ctx, engine, *users, *concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	verify := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		_, err := engine.VerifyAccess(ctx, accounts[r.Intn(len(accounts))].access)
		return err
	})
	refresh := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		_, err := engine.Refresh(ctx, accounts[r.Intn(len(accounts))].refresh)
		return err
	})
	guard := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		n := r.Intn(*ips)
		_, err := engine.GuardRequest(ctx, goGuard.RequestInfo{
			IP:        fmt.Sprintf("10.%d.%d.%d", n>>16&0xFF, n>>8&0xFF, n&0xFF),
			UserAgent: "Mozilla/5.0 (loadtest)",
			Method:    "GET",
			Path:      "/",
		})
		return err
	})

	fmt.Println("---- results ----")
	printStats("verify", verify)
	printStats("refresh", refresh)
	printStats("guard", guard)
}

func seed(ctx context.Context, engine *goGuard.Engine, n, concurrency int) ([]account, error) {
	out := make([]account, n)
	var (
		wg       sync.WaitGroup
		cursor   int64
		firstErr atomic.Value
	)
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= n {
					return
				}
				res, err := engine.Register(ctx, goGuard.RegisterRequest{
					Email:    fmt.Sprintf("user-%d@loadtest.local", i),
					Password: "loadtest-password",
				})
				if err != nil {
					firstErr.CompareAndSwap(nil, err)
					return
				}
				out[i] = account{access: res.Tokens.AccessToken, refresh: res.Tokens.RefreshToken}
			}
		}()
	}
	wg.Wait()
	if err, ok := firstErr.Load().(error); ok {
		return nil, err
	}
	return out, nil
}

func runPhase(ops, concurrency int, op func(r *mrand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func mustSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
