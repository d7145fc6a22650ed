// Upstream is a mock backing platform used for gateway testing. It
// serves /health plus a catch-all JSON echo, with configurable
// artificial latency and error rate so rollback behavior can be
// exercised locally.
//
// Usage:
//
//	go run ./scripts/upstream -port 9081 -name legacy
//	go run ./scripts/upstream -port 9082 -name native -latency 250ms -error-rate 0.1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"time"
)

func main() {
	port := flag.Int("port", 9081, "listen port")
	name := flag.String("name", "legacy", "system name reported in responses")
	latency := flag.Duration("latency", 0, "artificial latency added to every response")
	errorRate := flag.Float64("error-rate", 0, "fraction of requests answered with HTTP 500")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if *latency > 0 {
			time.Sleep(*latency)
		}

		if rand.Float64() < *errorRate {
			log.Printf("%s %s -> 500 (injected)", r.Method, r.URL.Path)
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}

		log.Printf("%s %s -> 200", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"system": *name,
			"path":   r.URL.Path,
			"user":   r.Header.Get("X-User-ID"),
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock %s upstream listening on %s (latency=%s error-rate=%.2f)",
		*name, addr, *latency, *errorRate)
	log.Fatal(http.ListenAndServe(addr, mux))
}
