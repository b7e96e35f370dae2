// Command base-sandbox runs a local HTTP server speaking the hosted store's
// wire protocol on top of the in-memory mock, so SDK clients can be pointed
// at it with DETA_BASE_URL. Latency and failure injection make it usable for
// retry testing.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/detaorm/base_sdk_go/internal/devseed"
	"github.com/detaorm/base_sdk_go/pkg/base"
	basemock "github.com/detaorm/base_sdk_go/pkg/base/mock"
	"github.com/detaorm/base_sdk_go/pkg/query"
	"github.com/detaorm/base_sdk_go/pkg/record"
	"github.com/detaorm/base_sdk_go/pkg/update"
)

type failConfig struct {
	rate float64
	code int
}

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	seed := flag.String("seed", "", "path to JSON seed for the mock store")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	flag.Parse()

	rand.Seed(time.Now().UnixNano())

	store := basemock.New()
	if *seed != "" {
		entries, err := devseed.LoadBaseSeed(*seed)
		if err != nil {
			log.Fatalf("load seed: %v", err)
		}
		if err := store.Seed(entries); err != nil {
			log.Fatalf("apply seed: %v", err)
		}
	}

	failCfg, err := parseFailConfig(*fail)
	if err != nil {
		log.Fatalf("parse fail flag: %v", err)
	}

	handler := withMiddleware(*latency, failCfg, func(w http.ResponseWriter, r *http.Request) {
		route(w, r, store)
	})

	server := &http.Server{
		Addr:    *addr,
		Handler: http.HandlerFunc(handler),
	}

	log.Printf("base-sandbox listening on %s", *addr)
	fmt.Println()
	fmt.Println("export DETA_SDK_MODE=http")
	fmt.Println("export DETA_PROJECT_KEY=sandbox_key")
	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Printf("export DETA_BASE_URL=http://%s\n", host)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

func withMiddleware(delay time.Duration, failCfg failConfig, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}
		if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			writeError(w, status, "failure injected")
			return
		}
		next(w, r)
	}
}

// route dispatches /v1/{project}/{base}/items[/{key}] and
// /v1/{project}/{base}/query. The project segment is accepted but not
// checked: any project key works against the sandbox.
func route(w http.ResponseWriter, r *http.Request, store *basemock.Mock) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "v1" {
		writeError(w, http.StatusNotFound, "unknown route")
		return
	}
	name := parts[2]
	switch {
	case parts[3] == "query" && len(parts) == 4:
		handleQuery(w, r, store, name)
	case parts[3] == "items" && len(parts) == 4:
		handleItems(w, r, store, name)
	case parts[3] == "items" && len(parts) == 5:
		handleItem(w, r, store, name, parts[4])
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func handleItems(w http.ResponseWriter, r *http.Request, store *basemock.Mock, name string) {
	switch r.Method {
	case http.MethodPut:
		var payload struct {
			Items []map[string]any `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := store.PutItems(r.Context(), name, payload.Items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"processed": map[string]any{"items": res.Processed},
			"failed":    map[string]any{"items": res.Failed},
		})
	case http.MethodPost:
		var payload struct {
			Item map[string]any `json:"item"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		stored, err := store.InsertItem(r.Context(), name, payload.Item)
		if errors.Is(err, base.ErrKeyExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func handleItem(w http.ResponseWriter, r *http.Request, store *basemock.Mock, name, key string) {
	switch r.Method {
	case http.MethodGet:
		item, err := store.GetItem(r.Context(), name, key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if item == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("key %q not found", key))
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPatch:
		var ops update.Operations
		if err := json.NewDecoder(r.Body).Decode(&ops); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		err := store.UpdateItem(r.Context(), name, key, ops)
		switch {
		case errors.Is(err, base.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, record.ErrTypeMismatch), errors.Is(err, record.ErrPathNotFound):
			writeError(w, http.StatusBadRequest, err.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, map[string]string{"key": key})
		}
	case http.MethodDelete:
		if err := store.DeleteItem(r.Context(), name, key); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func handleQuery(w http.ResponseWriter, r *http.Request, store *basemock.Mock, name string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload struct {
		Query []query.Clause `json:"query"`
		Limit int            `json:"limit"`
		Last  string         `json:"last"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := store.QueryItems(r.Context(), name, payload.Query, payload.Limit, payload.Last)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	paging := map[string]any{"size": res.Size}
	if res.Last != "" {
		paging["last"] = res.Last
	}
	items := res.Items
	if items == nil {
		items = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "paging": paging})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// writeError uses the store's error envelope so SDK clients surface the
// message through their HTTP error type.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"errors": []string{msg}})
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			val, err := strconv.ParseFloat(strings.TrimSpace(keyVal[1]), 64)
			if err != nil {
				return failConfig{}, err
			}
			cfg.rate = val
		case "code":
			val, err := strconv.Atoi(strings.TrimSpace(keyVal[1]))
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = val
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}
