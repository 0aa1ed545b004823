// Command paygate runs the payment admission gateway: a reverse proxy that
// monetizes the resources named in its catalog with the x402 protocol.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"github.com/agentpay/paygate"
	"github.com/agentpay/paygate/auditpg"
	"github.com/agentpay/paygate/chain"
	"github.com/agentpay/paygate/config"
	"github.com/agentpay/paygate/facilitator"
	gatewayhttp "github.com/agentpay/paygate/http"
)

func main() {
	configPath := flag.String("config", "paygate.yaml", "Path to the configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("gateway exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	fc := facilitator.NewClient(cfg.Facilitator.URL)
	fc.Authorization = cfg.Facilitator.Authorization

	var chainClient chain.Client
	if cfg.Chain.RPCURL != "" {
		cc, err := chain.NewContractClient(cfg.Chain.RPCURL, cfg.Chain.GatewayContract)
		if err != nil {
			return err
		}
		defer cc.Close()
		chainClient = cc
	} else {
		logger.Warn("no chain RPC configured, on-chain credentials will not verify")
		chainClient = chain.NewStaticClient()
	}

	var ledger paygate.Ledger
	if cfg.Audit.PostgresDSN != "" {
		pg, err := auditpg.Open(cfg.Audit.PostgresDSN)
		if err != nil {
			return err
		}
		ledger = pg
	} else {
		ledger = paygate.NewMemoryLedger()
	}

	gateway, err := gatewayhttp.NewGateway(gatewayhttp.Config{
		Catalog:         catalog,
		Facilitator:     fc,
		Chain:           chainClient,
		Replay:          paygate.NewMemoryReplayGuard(),
		Ledger:          ledger,
		BaseOrigin:      cfg.Server.BaseOrigin,
		ServiceID:       cfg.Server.ServiceID,
		GatewayContract: cfg.Chain.GatewayContract,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/.well-known/x402", handleDiscovery(cfg, catalog)).Methods(http.MethodGet)
	router.HandleFunc("/resources/{id}/payments", handlePayments(ledger)).Methods(http.MethodGet)
	router.PathPrefix("/proxy/").Handler(gateway.Middleware(proxyHandler(catalog, logger)))

	logger.Info("payment gateway listening",
		"addr", cfg.Server.Addr,
		"resources", len(cfg.Resources),
		"facilitator", cfg.Facilitator.URL)
	return http.ListenAndServe(cfg.Server.Addr, router)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleDiscovery publishes the accepted payment kinds for every catalog
// resource so programmatic clients can pay without a first 402 round-trip.
func handleDiscovery(cfg *config.Config, catalog paygate.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		builder, err := paygate.NewRequirementsBuilder(cfg.Server.BaseOrigin)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		var accepts []paygate.PaymentRequirements
		for _, resource := range catalog.List() {
			req, err := builder.Build(resource, "/proxy/"+resource.ID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			accepts = append(accepts, req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(paygate.PaymentRequired{
			X402Version:     paygate.X402Version,
			Accepts:         accepts,
			GatewayContract: cfg.Chain.GatewayContract,
			ServiceID:       cfg.Server.ServiceID,
		})
	}
}

// handlePayments exposes the audit ledger, read-only, by resource.
func handlePayments(ledger paygate.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		records, err := ledger.ByResource(r.Context(), id)
		if err != nil {
			http.Error(w, "failed to read audit ledger", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []paygate.AuditRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	}
}

// proxyHandler forwards admitted requests to the resource's upstream
// endpoint, stripping the /proxy/{id} prefix.
func proxyHandler(catalog paygate.Catalog, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/proxy/")
		id, tail, _ := strings.Cut(rest, "/")

		resource, ok := catalog.Get(id)
		if !ok {
			http.Error(w, "unknown resource", http.StatusNotFound)
			return
		}
		target, err := url.Parse(resource.Endpoint)
		if err != nil || target.Host == "" {
			logger.Error("resource has invalid endpoint", "resource", id, "endpoint", resource.Endpoint)
			http.Error(w, "resource endpoint misconfigured", http.StatusBadGateway)
			return
		}

		proxy := httputil.NewSingleHostReverseProxy(target)
		r.URL.Path = singleJoin(target.Path, tail)
		r.Host = target.Host
		proxy.ServeHTTP(w, r)
	})
}

func singleJoin(base, tail string) string {
	switch {
	case tail == "":
		if base == "" {
			return "/"
		}
		return base
	case strings.HasSuffix(base, "/"):
		return base + tail
	default:
		return fmt.Sprintf("%s/%s", base, tail)
	}
}
