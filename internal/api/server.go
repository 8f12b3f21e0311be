package api

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"
)

// RegisterRoutes wires every handler onto mux with its middleware chain.
// Mutating routes sit behind JWT; the read surface and the login flow do
// not.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return ApplyMiddleware(h,
			a.JWTMiddleware,
			JSONContentTypeMiddleware,
			RequestIDMiddleware,
			LoggingMiddleware,
			ErrorMiddleware,
			a.CORSMiddleware,
		)
	}
	open := func(h http.HandlerFunc) http.HandlerFunc {
		return ApplyMiddleware(h,
			RequestIDMiddleware,
			LoggingMiddleware,
			ErrorMiddleware,
			a.CORSMiddleware,
		)
	}

	// Login flow
	mux.HandleFunc("/challenge", open(a.HandleChallengeRequest))
	mux.HandleFunc("/verify", open(a.VerifyChallenge))

	// Transfer lifecycle
	mux.HandleFunc("/transfer", authed(a.CreateTransferHandler))
	mux.HandleFunc("/transfer/cancel", authed(a.CancelTransferHandler))
	mux.HandleFunc("/transfer/claim", authed(a.ClaimTransferHandler))
	mux.HandleFunc("/transfer/refund", authed(a.RefundTransferHandler))
	mux.HandleFunc("/transfer/refund-batch", authed(a.BatchRefundHandler))

	// Read surface
	mux.HandleFunc("/transfer/get", open(a.GetTransferHandler))
	mux.HandleFunc("/transfers", open(a.TransferListHandler))
	mux.HandleFunc("/status", open(a.StatusHandler))
	mux.HandleFunc("/params", open(a.ParamsHandler))
	mux.HandleFunc("/cooldown", open(a.CooldownHandler))
	mux.HandleFunc("/balance", open(a.BalanceHandler))
	mux.HandleFunc("/work", open(a.WorkHandler))
	mux.HandleFunc("/addresses", open(a.TrackedAddressesHandler))

	// Admin
	mux.HandleFunc("/admin/withdraw-fees", authed(a.WithdrawFeesHandler))
	mux.HandleFunc("/admin/asset/add", authed(a.AddAssetHandler))
	mux.HandleFunc("/admin/asset/remove", authed(a.RemoveAssetHandler))
	mux.HandleFunc("/admin/ownership", authed(a.TransferOwnershipHandler))
	mux.HandleFunc("/admin/param", authed(a.UpdateParamHandler))
	mux.HandleFunc("/admin/deposit", authed(a.DepositHandler))
	mux.HandleFunc("/admin/maintenance", authed(a.MaintenanceHandler))

	// Live event stream
	mux.HandleFunc("/events", a.EventStreamHandler)
}

// StartServer blocks serving the HTTP API until the listener fails.
func (a *API) StartServer() error {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)

	port := viper.GetInt("api_port")
	if port == 0 {
		port = 9003
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	certFile := viper.GetString("tls_cert_file")
	keyFile := viper.GetString("tls_key_file")
	if certFile != "" && keyFile != "" {
		if _, err := os.Stat(certFile); err != nil {
			return fmt.Errorf("TLS certificate not found: %v", err)
		}

		server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
			CipherSuites: []uint16{
				tls.TLS_AES_128_GCM_SHA256,
				tls.TLS_AES_256_GCM_SHA384,
				tls.TLS_CHACHA20_POLY1305_SHA256,
			},
		}

		log.Printf("Starting HTTPS server on :%d", port)
		return server.ListenAndServeTLS(certFile, keyFile)
	}

	log.Printf("Starting HTTP server on :%d", port)
	return server.ListenAndServe()
}
