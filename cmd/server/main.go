// The picodb server exposes the command interpreter over HTTP and gRPC.
//
// The gRPC service is registered by hand with a JSON codec, so no protobuf
// toolchain is involved: request and response messages are the same structs
// the HTTP endpoints use. Requests serialize onto the single-threaded
// engine through one mutex; the store itself stays free of locking.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/picodb/picodb/internal/config"
	"github.com/picodb/picodb/internal/engine"
	"github.com/picodb/picodb/internal/storage"
)

var (
	flagRoot   = flag.String("root", "", "Database directory (overrides config)")
	flagConfig = flag.String("config", "", "Config file path (default picodb.yml if present)")
	flagHTTP   = flag.String("http", ":8080", "HTTP listen address (empty to disable)")
	flagGRPC   = flag.String("grpc", ":9090", "gRPC listen address (empty to disable)")
)

// Wire types shared by HTTP and gRPC.
type execRequest struct {
	Command string `json:"command"`
}
type execResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
	Count    int    `json:"count,omitempty"`
	Duration string `json:"duration"`
}

type queryRequest struct {
	Table string `json:"table"`
	Where string `json:"where,omitempty"`
}
type queryResponse struct {
	Table     string           `json:"table"`
	Rows      []map[string]any `json:"rows"`
	Count     int              `json:"count"`
	FromCache bool             `json:"from_cache"`
	Error     string           `json:"error,omitempty"`
	Duration  string           `json:"duration"`
}

// gRPC JSON codec
type jsonCodec struct{}

func (jsonCodec) Name() string                      { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)     { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// gRPC service interface and descriptors (manual, no protobuf)
type PicoDBServer interface {
	Exec(context.Context, *execRequest) (*execResponse, error)
	Query(context.Context, *queryRequest) (*queryResponse, error)
}

func registerPicoDBServer(s *grpc.Server, srv PicoDBServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "picodb.PicoDB",
		HandlerType: (*PicoDBServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Exec", Handler: _PicoDB_Exec_Handler},
			{MethodName: "Query", Handler: _PicoDB_Query_Handler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "picodb", // informational
	}, srv)
}

func _PicoDB_Exec_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(execRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PicoDBServer).Exec(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/picodb.PicoDB/Exec"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PicoDBServer).Exec(ctx, req.(*execRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PicoDB_Query_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(queryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PicoDBServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/picodb.PicoDB/Query"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PicoDBServer).Query(ctx, req.(*queryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// server state
type server struct {
	mu sync.Mutex
	db *engine.Engine
	ex *engine.Executor
}

func newServer(db *engine.Engine, ops engine.Operations) *server {
	// No interactive confirmation over the wire: unfiltered deletes are
	// allowed, clients are expected to know what they ask for.
	return &server{db: db, ex: &engine.Executor{Ops: ops}}
}

// Exec runs one interpreter command line.
func (s *server) Exec(ctx context.Context, req *execRequest) (*execResponse, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, err := engine.ParseCommand(req.Command)
	if err != nil {
		return &execResponse{Error: err.Error(), Duration: time.Since(start).String()}, nil
	}
	if cmd.Name == "exit" {
		return &execResponse{Error: "exit is not available over the wire", Duration: time.Since(start).String()}, nil
	}
	res, err := s.ex.Execute(cmd)
	if err != nil {
		return &execResponse{Error: err.Error(), Duration: time.Since(start).String()}, nil
	}
	return &execResponse{
		Success:  true,
		Message:  res.Message,
		Count:    res.Count,
		Duration: time.Since(start).String(),
	}, nil
}

// Query selects rows from one table with an optional where expression.
func (s *server) Query(ctx context.Context, req *queryRequest) (*queryResponse, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	where, err := engine.CompileWhere(req.Where)
	if err != nil {
		return &queryResponse{Table: req.Table, Error: err.Error(), Duration: time.Since(start).String()}, nil
	}
	res, err := s.db.Select(req.Table, where)
	if err != nil {
		return &queryResponse{Table: req.Table, Error: err.Error(), Duration: time.Since(start).String()}, nil
	}
	rows := make([]map[string]any, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = r
	}
	return &queryResponse{
		Table:     req.Table,
		Rows:      rows,
		Count:     len(rows),
		FromCache: res.FromCache,
		Duration:  time.Since(start).String(),
	}, nil
}

// HTTP handlers
func (s *server) handleExec(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req execRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp, _ := s.Exec(r.Context(), &req)
	writeJSON(w, resp)
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp, _ := s.Query(r.Context(), &req)
	writeJSON(w, resp)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tables := len(s.db.ListTables())
	s.mu.Unlock()
	writeJSON(w, map[string]any{
		"ok":     true,
		"time":   time.Now().Format(time.RFC3339),
		"tables": tables,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	root := cfg.Root
	if *flagRoot != "" {
		root = *flagRoot
	}
	st, err := storage.Open(root)
	if err != nil {
		log.Fatalf("open error: %v", err)
	}
	db, err := engine.Open(st)
	if err != nil {
		log.Fatalf("open error: %v", err)
	}
	db.EnableCache(cfg.CacheEnabled())

	var audit *storage.AuditLog
	if cfg.AuditEnabled() {
		audit = storage.NewAuditLog(st)
	}
	srv := newServer(db, engine.Instrument(db, audit, nil))

	var backup *storage.BackupScheduler
	if cfg.BackupCron != "" {
		backup, err = storage.NewBackupScheduler(st, cfg.BackupCron)
		if err != nil {
			log.Fatalf("config error: %v", err)
		}
		backup.Start()
		defer backup.Stop()
	}

	// Register JSON codec for gRPC
	encoding.RegisterCodec(jsonCodec{})

	if *flagGRPC != "" {
		go func() {
			lis, err := net.Listen("tcp", *flagGRPC)
			if err != nil {
				log.Printf("gRPC listen error: %v", err)
				return
			}
			gs := grpc.NewServer()
			registerPicoDBServer(gs, srv)
			log.Printf("gRPC listening on %s", *flagGRPC)
			if err := gs.Serve(lis); err != nil {
				log.Printf("gRPC serve error: %v", err)
			}
		}()
	}

	if *flagHTTP != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/exec", srv.handleExec)
		mux.HandleFunc("/api/query", srv.handleQuery)
		mux.HandleFunc("/api/status", srv.handleStatus)
		log.Printf("HTTP listening on %s", *flagHTTP)
		if err := http.ListenAndServe(*flagHTTP, mux); err != nil {
			log.Printf("HTTP serve error: %v", err)
			os.Exit(1)
		}
	} else {
		// HTTP disabled: block on gRPC only.
		select {}
	}
}
