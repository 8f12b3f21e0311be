package daemon

import (
	"fmt"
	"log"

	"github.com/spf13/viper"

	"github.com/passlock-labs/escrow-wallet.git/internal/api"
	"github.com/passlock-labs/escrow-wallet.git/internal/bank"
	"github.com/passlock-labs/escrow-wallet.git/internal/config"
	escrowdb "github.com/passlock-labs/escrow-wallet.git/internal/database"
	"github.com/passlock-labs/escrow-wallet.git/internal/events"
	"github.com/passlock-labs/escrow-wallet.git/internal/ipc"
	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
	"github.com/passlock-labs/escrow-wallet.git/internal/sweeper"
)

// Run boots the escrow service and blocks serving the HTTP API. State is
// reloaded from the configured database so a restart carries on where the
// previous run stopped.
func Run() error {
	escrowdb.SetDatabaseBackend(escrowdb.DatabaseType(viper.GetString("db_backend")))
	if err := escrowdb.InitializeDatabase(viper.GetString("escrow_db_path")); err != nil {
		return fmt.Errorf("error initializing database: %v", err)
	}
	defer escrowdb.Backend.Close()

	snap, err := escrowdb.Backend.LoadLedgerSnapshot()
	if err != nil {
		return fmt.Errorf("error loading ledger state: %v", err)
	}
	balances, err := escrowdb.Backend.LoadAccountBalances()
	if err != nil {
		return fmt.Errorf("error loading account balances: %v", err)
	}

	b := bank.New()
	b.LoadBalances(balances)

	params, err := config.LedgerParams()
	if err != nil {
		return err
	}

	// A persisted owner wins over the configured one
	owner := viper.GetString("owner_address")
	if snap.Owner != "" {
		owner = snap.Owner
	}
	if owner == "" {
		return fmt.Errorf("no owner configured; run init-owner first")
	}

	led := ledger.New(owner, params, b)
	led.Load(snap)

	// Write-through persistence only after the reload, so loading does not
	// echo every record back into the database
	led.SetStore(escrowdb.Backend)
	b.SetStore(escrowdb.Backend)

	bus := events.New()
	led.SetNotifier(bus)

	serviceName := viper.GetString("service_name")
	if err := api.EnsureJWTKey(serviceName); err != nil {
		return fmt.Errorf("error initializing JWT key: %v", err)
	}

	a := api.NewAPI(led, b, bus, serviceName, true)

	sw := sweeper.New(led, viper.GetDuration("sweep_interval"))
	go sw.Start()
	defer sw.Stop()

	ipcServer, err := ipc.NewServer()
	if err != nil {
		log.Printf("IPC server unavailable: %v", err)
	} else {
		defer ipcServer.Close()
		go serveIPC(ipcServer, led, sw)
	}

	return a.StartServer()
}

func serveIPC(srv *ipc.Server, led *ledger.Ledger, sw *sweeper.Sweeper) {
	for cmd := range srv.Commands() {
		switch cmd.Command {
		case "status":
			srv.SendResponse(cmd.ID, ipc.Response{
				ID: cmd.ID,
				Result: map[string]interface{}{
					"owner":           led.Owner(),
					"transfer_count":  led.TransferCount(),
					"pending":         len(led.PendingTransfers()),
					"refundable":      len(led.RefundableTransfers()),
					"maintenance_due": led.MaintenanceDue(),
				},
			})

		case "sweep":
			refunded, failed, maintenance := sw.RunOnce()
			result := map[string]interface{}{
				"refunded": refunded,
				"failed":   failed,
			}
			if maintenance != nil {
				result["addresses_cleaned"] = maintenance.AddressesCleaned
				result["addresses_evicted"] = maintenance.AddressesEvicted
			}
			// Respond before broadcasting so the reply is the only frame
			// the requesting client sees
			srv.SendResponse(cmd.ID, ipc.Response{ID: cmd.ID, Result: result})
			srv.BroadcastProgress(ipc.SweepProgressUpdate{
				Refunded: refunded,
				Failed:   failed,
				Done:     true,
			})

		case "maintenance":
			result := led.PerformMaintenance()
			srv.SendResponse(cmd.ID, ipc.Response{ID: cmd.ID, Result: result})

		default:
			srv.SendResponse(cmd.ID, ipc.Response{
				ID:    cmd.ID,
				Error: fmt.Sprintf("unknown command: %s", cmd.Command),
			})
		}
	}
}
