package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/natefinch/lumberjack"
	"golang.org/x/sync/errgroup"

	"voxelsniper.dev/internal/persistence/indexdb"
	persistlog "voxelsniper.dev/internal/persistence/log"
	"voxelsniper.dev/internal/persistence/snapshot"
	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/engine"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/tuning"
	"voxelsniper.dev/internal/sim/worldstore"
	"voxelsniper.dev/internal/transport/observer"
	"voxelsniper.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (audits, edits, sections, snapshots)")
		logFile    = flag.String("log_file", "", "also write server logs to this file, rotated by size")

		snapPath   = flag.String("snapshot", "", "path to world snapshot to load (optional)")
		tickLog    = flag.Bool("tick_log", true, "write per-tick inputs and digests for replay")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	var out io.Writer = os.Stdout
	if *logFile != "" {
		rot := &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		defer rot.Close()
		out = io.MultiWriter(os.Stdout, rot)
	}
	logger := log.New(out, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	mats := material.NewRegistry(&cats.Materials)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	} else if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	snapDir := filepath.Join(*dataDir, "snapshots")
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(snapDir)
	}

	var store *worldstore.Store
	startTick := uint64(0)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadWorld(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		store, err = worldstore.Import(snap, mats)
		if err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		startTick = snap.Header.Tick + 1
		logger.Printf("resumed from snapshot=%s tick=%d chunks=%d", filepath.Base(snapshotToLoad), startTick, len(snap.Chunks))
	} else {
		store = worldstore.New(worldstore.Gen{
			Seed:      tune.World.Seed,
			Height:    tune.World.Height,
			BoundaryR: tune.World.BoundaryR,
			GroundY:   tune.World.GroundY,
			WaterY:    tune.World.WaterY,
		}, mats)
	}

	opts := engine.Options{Logger: log.New(out, "[engine] ", log.LstdFlags|log.Lmicroseconds)}

	auditLog := persistlog.NewAuditLogger(*dataDir)
	editLog := persistlog.NewEditLogger(*dataDir)
	defer auditLog.Close()
	defer editLog.Close()
	opts.Audit = append(opts.Audit, auditLog)
	opts.Edits = append(opts.Edits, editLog)
	if *tickLog {
		tl := persistlog.NewTickLogger(*dataDir)
		defer tl.Close()
		opts.Ticks = append(opts.Ticks, tl)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "world.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
		opts.Audit = append(opts.Audit, idx)
		opts.Edits = append(opts.Edits, idx)
		opts.Sections = append(opts.Sections, idx)
		opts.Snapshots = append(opts.Snapshots, idx)
	}

	cfg := engine.ConfigFromTuning(tune)
	cfg.SectionDir = filepath.Join(*dataDir, "sections")
	cfg.SnapshotDir = snapDir
	eng, err := engine.New(cfg, cats, store, opts)
	if err != nil {
		logger.Fatalf("engine: %v", err)
	}
	eng.SetTick(startTick)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, eng.Metrics(), idx)
	})
	if envBool("VS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			resp := struct {
				Tick    uint64         `json:"tick"`
				Metrics engine.Metrics `json:"metrics"`
				Index   *indexdb.Stats `json:"index,omitempty"`
			}{Tick: eng.CurrentTick(), Metrics: eng.Metrics()}
			if idx != nil {
				st := idx.Stats()
				resp.Index = &st
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(resp)
		})
		obsSrv := observer.NewServer(eng, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (VS_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("VS_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(eng, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := eng.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("engine: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	logger.Printf("stopped at tick %d", eng.CurrentTick())
}

func writeMetrics(w io.Writer, m engine.Metrics, idx *indexdb.SQLiteIndex) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %v\n", name, v)
	}
	gauge("voxelsniper_tick", "Current engine tick.", m.Tick)
	gauge("voxelsniper_snipers", "Connected snipers.", m.Snipers)
	gauge("voxelsniper_observers", "Connected observers.", m.Observers)
	gauge("voxelsniper_pending_edits", "Edits waiting to be flushed.", m.PendingEdits)
	gauge("voxelsniper_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

	fmt.Fprintf(w, "# HELP voxelsniper_blocks_written_total Blocks written by flushed edits.\n")
	fmt.Fprintf(w, "# TYPE voxelsniper_blocks_written_total counter\n")
	fmt.Fprintf(w, "voxelsniper_blocks_written_total %d\n", m.BlocksWritten)

	fmt.Fprintf(w, "# HELP voxelsniper_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(w, "# TYPE voxelsniper_queue_depth gauge\n")
	fmt.Fprintf(w, "voxelsniper_queue_depth{queue=%q} %d\n", "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(w, "voxelsniper_queue_depth{queue=%q} %d\n", "join", m.QueueDepths.Join)
	fmt.Fprintf(w, "voxelsniper_queue_depth{queue=%q} %d\n", "leave", m.QueueDepths.Leave)

	if idx == nil {
		return
	}
	st := idx.Stats()
	fmt.Fprintf(w, "# HELP voxelsniper_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(w, "# TYPE voxelsniper_index_dropped_total counter\n")
	fmt.Fprintf(w, "voxelsniper_index_dropped_total{kind=%q} %d\n", "audit", st.DropAuditTotal)
	fmt.Fprintf(w, "voxelsniper_index_dropped_total{kind=%q} %d\n", "edit", st.DropEditTotal)
	fmt.Fprintf(w, "voxelsniper_index_dropped_total{kind=%q} %d\n", "section", st.DropSectionTotal)
	fmt.Fprintf(w, "voxelsniper_index_dropped_total{kind=%q} %d\n", "snapshot", st.DropSnapshotTotal)
}

func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".world.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".world.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
