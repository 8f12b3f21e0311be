package escrowdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/deroproject/graviton"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

const (
	TransferTreeName  = "transfers"
	BalanceTreeName   = "ledger_balances"
	AccountTreeName   = "account_balances"
	ActivityTreeName  = "address_activity"
	AssetTreeName     = "assets"
	ChallengeTreeName = "challenges"
	MetadataTreeName  = "metadata"
)

// Store is the global Graviton store, set by InitGravitonDB
var Store *graviton.Store

// GravitonDB is the Graviton-backed database implementation
type GravitonDB struct {
	store *graviton.Store
}

// InitGravitonDB opens the Graviton store at the given path
func InitGravitonDB(dbPath string) (*GravitonDB, error) {
	store, err := graviton.NewDiskStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open graviton store: %v", err)
	}
	Store = store
	log.Println("Graviton database initialized successfully")
	return &GravitonDB{store: store}, nil
}

func (g *GravitonDB) tree(name string) (*graviton.Tree, error) {
	ss, err := g.store.LoadSnapshot(0)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %v", err)
	}
	tree, err := ss.GetTree(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree %s: %v", name, err)
	}
	return tree, nil
}

func (g *GravitonDB) putJSON(treeName string, key []byte, value interface{}) error {
	tree, err := g.tree(treeName)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := tree.Put(key, data); err != nil {
		return err
	}
	_, err = graviton.Commit(tree)
	return err
}

func transferKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func (g *GravitonDB) SaveTransfer(t ledger.Transfer) error {
	return g.putJSON(TransferTreeName, transferKey(t.ID), t)
}

type gravitonBalance struct {
	Asset   string `json:"asset"`
	Kind    string `json:"kind"`
	Balance uint64 `json:"balance"`
}

func (g *GravitonDB) saveLedgerBalance(asset, kind string, balance uint64) error {
	key := []byte(kind + ":" + asset)
	return g.putJSON(BalanceTreeName, key, gravitonBalance{Asset: asset, Kind: kind, Balance: balance})
}

func (g *GravitonDB) SaveHeldBalance(asset string, balance uint64) error {
	return g.saveLedgerBalance(asset, balanceKindHeld, balance)
}

func (g *GravitonDB) SaveFeeBalance(asset string, balance uint64) error {
	return g.saveLedgerBalance(asset, balanceKindFee, balance)
}

func (g *GravitonDB) SaveActivity(a ledger.AddressActivity) error {
	return g.putJSON(ActivityTreeName, []byte(a.Address), a)
}

func (g *GravitonDB) DeleteActivity(address string) error {
	tree, err := g.tree(ActivityTreeName)
	if err != nil {
		return err
	}
	if err := tree.Delete([]byte(address)); err != nil {
		return err
	}
	_, err = graviton.Commit(tree)
	return err
}

type gravitonAsset struct {
	Asset       string `json:"asset"`
	Whitelisted bool   `json:"whitelisted"`
}

func (g *GravitonDB) SaveAsset(asset string, whitelisted bool) error {
	return g.putJSON(AssetTreeName, []byte(asset), gravitonAsset{Asset: asset, Whitelisted: whitelisted})
}

func (g *GravitonDB) SaveOwner(owner string) error {
	return g.putJSON(MetadataTreeName, []byte(metaKeyOwner), owner)
}

func (g *GravitonDB) SaveParams(p ledger.Params) error {
	return g.putJSON(MetadataTreeName, []byte(metaKeyParams), p)
}

type gravitonAccountBalance struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

func (g *GravitonDB) SaveAccountBalance(account, asset string, balance uint64) error {
	key := []byte(account + ":" + asset)
	return g.putJSON(AccountTreeName, key, gravitonAccountBalance{Account: account, Asset: asset, Balance: balance})
}

// LoadLedgerSnapshot walks every tree and reassembles the ledger state
func (g *GravitonDB) LoadLedgerSnapshot() (ledger.Snapshot, error) {
	snap := ledger.Snapshot{
		FeeBalances:  make(map[string]uint64),
		HeldBalances: make(map[string]uint64),
		Assets:       make(map[string]bool),
	}

	transferTree, err := g.tree(TransferTreeName)
	if err != nil {
		return snap, err
	}
	cursor := transferTree.Cursor()
	for _, v, err := cursor.First(); err == nil; _, v, err = cursor.Next() {
		var t ledger.Transfer
		if err := json.Unmarshal(v, &t); err != nil {
			log.Printf("Error decoding transfer record: %v", err)
			continue
		}
		snap.Transfers = append(snap.Transfers, t)
	}

	balanceTree, err := g.tree(BalanceTreeName)
	if err != nil {
		return snap, err
	}
	cursor = balanceTree.Cursor()
	for _, v, err := cursor.First(); err == nil; _, v, err = cursor.Next() {
		var b gravitonBalance
		if err := json.Unmarshal(v, &b); err != nil {
			log.Printf("Error decoding balance record: %v", err)
			continue
		}
		if b.Kind == balanceKindHeld {
			snap.HeldBalances[b.Asset] = b.Balance
		} else {
			snap.FeeBalances[b.Asset] = b.Balance
		}
	}

	activityTree, err := g.tree(ActivityTreeName)
	if err != nil {
		return snap, err
	}
	cursor = activityTree.Cursor()
	for _, v, err := cursor.First(); err == nil; _, v, err = cursor.Next() {
		var a ledger.AddressActivity
		if err := json.Unmarshal(v, &a); err != nil {
			log.Printf("Error decoding activity record: %v", err)
			continue
		}
		snap.Activities = append(snap.Activities, a)
	}

	assetTree, err := g.tree(AssetTreeName)
	if err != nil {
		return snap, err
	}
	cursor = assetTree.Cursor()
	for _, v, err := cursor.First(); err == nil; _, v, err = cursor.Next() {
		var a gravitonAsset
		if err := json.Unmarshal(v, &a); err != nil {
			log.Printf("Error decoding asset record: %v", err)
			continue
		}
		snap.Assets[a.Asset] = a.Whitelisted
	}

	metaTree, err := g.tree(MetadataTreeName)
	if err != nil {
		return snap, err
	}
	if v, err := metaTree.Get([]byte(metaKeyOwner)); err == nil {
		var owner string
		if err := json.Unmarshal(v, &owner); err == nil {
			snap.Owner = owner
		}
	}
	if v, err := metaTree.Get([]byte(metaKeyParams)); err == nil {
		var p ledger.Params
		if err := json.Unmarshal(v, &p); err == nil {
			snap.Params = &p
		} else {
			log.Printf("Error decoding persisted params: %v", err)
		}
	}

	return snap, nil
}

func (g *GravitonDB) LoadAccountBalances() (map[string]map[string]uint64, error) {
	tree, err := g.tree(AccountTreeName)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]uint64)
	cursor := tree.Cursor()
	for _, v, err := cursor.First(); err == nil; _, v, err = cursor.Next() {
		var b gravitonAccountBalance
		if err := json.Unmarshal(v, &b); err != nil {
			log.Printf("Error decoding account balance record: %v", err)
			continue
		}
		if out[b.Account] == nil {
			out[b.Account] = make(map[string]uint64)
		}
		out[b.Account][b.Asset] = b.Balance
	}
	return out, nil
}

func (g *GravitonDB) SaveChallenge(c Challenge) error {
	return g.putJSON(ChallengeTreeName, []byte(c.Hash), c)
}

func (g *GravitonDB) GetChallenge(hash string) (*Challenge, error) {
	tree, err := g.tree(ChallengeTreeName)
	if err != nil {
		return nil, err
	}
	v, err := tree.Get([]byte(hash))
	if err != nil {
		return nil, fmt.Errorf("challenge not found: %v", err)
	}
	var c Challenge
	if err := json.Unmarshal(v, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (g *GravitonDB) MarkChallengeUsed(hash string) error {
	c, err := g.GetChallenge(hash)
	if err != nil {
		return err
	}
	now := time.Now()
	c.Status = "used"
	c.UsedAt = &now
	return g.putJSON(ChallengeTreeName, []byte(hash), c)
}

func (g *GravitonDB) ExpireOldChallenges(maxAge time.Duration) error {
	tree, err := g.tree(ChallengeTreeName)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	dirty := false
	cursor := tree.Cursor()
	for k, v, err := cursor.First(); err == nil; k, v, err = cursor.Next() {
		var c Challenge
		if err := json.Unmarshal(v, &c); err != nil {
			continue
		}
		if c.Status == "unused" && c.CreatedAt.Before(cutoff) {
			c.Status = "expired"
			data, err := json.Marshal(c)
			if err != nil {
				continue
			}
			if err := tree.Put(k, data); err != nil {
				return err
			}
			dirty = true
		}
	}
	if dirty {
		_, err = graviton.Commit(tree)
	}
	return err
}

func (g *GravitonDB) Close() error {
	g.store.Close()
	return nil
}
