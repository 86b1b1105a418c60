package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/crowdsale"
	"github.com/bitrent/bitrent-ico/core/proxy"
	"github.com/bitrent/bitrent-ico/core/state"
	"github.com/bitrent/bitrent-ico/core/types"
	tmlog "github.com/tendermint/tendermint/libs/log"
	db "github.com/tendermint/tm-db"
)

var (
	saleOwner  = types.HexToAddress("0x5b1869d9a4c187f2eaa108f3062412ecf0526b24")
	tokenOwner = types.HexToAddress("0x6c2978d9a4c187f2eaa108f3062412ecf0526b35")
	walletAddr = types.HexToAddress("0x7d3a87d9a4c187f2eaa108f3062412ecf0526b46")
	vaultAddr  = types.HexToAddress("0x8e4b96d9a4c187f2eaa108f3062412ecf0526b57")
	donor      = types.HexToAddress("0x9f5ca5d9a4c187f2eaa108f3062412ecf0526b68")
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := state.NewState(0, db.NewMemDB(), nil, 1024)
	if err != nil {
		t.Fatal(err)
	}

	err = st.Import(types.AppState{
		Token: types.Token{
			Owner:          tokenOwner,
			TotalSupply:    types.InitialSupply,
			TransferAgents: []types.Address{tokenOwner},
		},
		Pricing: types.Pricing{Owner: saleOwner, OneTokenInWei: "10"},
		Deposit: types.Deposit{Owner: saleOwner, Wallet: walletAddr, Total: "0"},
		Wallet: types.Wallet{
			Address:  walletAddr,
			Owners:   []types.WalletOwner{{Address: saleOwner, Admin: true}},
			Required: 1,
		},
		Vault: types.Vault{Address: vaultAddr, Owner: saleOwner, Total: "0"},
		Sale: types.Sale{
			Owner:            saleOwner,
			WeiRaised:        "0",
			TokensSold:       "0",
			PresaleTokenPool: types.DefaultPresaleTokenPool,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	cs := crowdsale.NewCrowdsale(st)
	px := proxy.NewProxy(st, cs)
	st.Wallet.SetCallHandler(cs.HandleWalletCall)

	return NewService(st, cs, px, tmlog.NewNopLogger())
}

func TestAPI(t *testing.T) {
	service := newTestService(t)
	server := httptest.NewServer(service.Handler())
	defer server.Close()

	get := func(path string) (int, Response) {
		t.Helper()
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var r Response
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			t.Fatal(err)
		}

		return resp.StatusCode, r
	}

	post := func(path string, body interface{}) (int, Response) {
		t.Helper()
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}

		resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var r Response
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			t.Fatal(err)
		}

		return resp.StatusCode, r
	}

	status, r := get("/status")
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("status request failed: %d %+v", status, r)
	}

	status, r = get("/price")
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("price request failed: %d %+v", status, r)
	}

	status, r = post("/deposit", map[string]string{
		"donor": donor.String(),
		"value": "1000",
	})
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("donation failed: %d %+v", status, r)
	}

	status, r = get("/deposit/" + donor.String())
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("deposit query failed: %d %+v", status, r)
	}

	result := r.Result.(map[string]interface{})
	if result["value"] != "1000" {
		t.Fatalf("invalid deposit value %v", result["value"])
	}

	status, r = get("/donors")
	if status != http.StatusOK {
		t.Fatalf("donors query failed: %d", status)
	}

	// donations are forwarded, so the wallet proposal can spend them
	status, r = post("/wallet/submit", map[string]string{
		"caller":      saleOwner.String(),
		"destination": donor.String(),
		"value":       "1000",
	})
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("wallet submit failed: %d %+v", status, r)
	}

	status, r = get("/wallet/transactions/0")
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("transaction query failed: %d %+v", status, r)
	}

	tx := r.Result.(map[string]interface{})
	if tx["executed"] != true {
		t.Fatalf("transaction was not executed: %+v", tx)
	}

	// phase control with a bad caller maps to a 400 with the domain code
	status, r = post("/crowdsale/start-presale", map[string]string{
		"caller": donor.String(),
	})
	if status != http.StatusBadRequest || r.Code != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %d %+v", status, r)
	}

	status, r = post("/crowdsale/start-presale", map[string]string{
		"caller": saleOwner.String(),
	})
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("start presale failed: %d %+v", status, r)
	}

	status, r = get("/status")
	if status != http.StatusOK {
		t.Fatalf("status request failed: %d", status)
	}
	if r.Result.(map[string]interface{})["status"] != "Presale" {
		t.Fatalf("invalid reported status %+v", r.Result)
	}

	// the wallet is empty after the executed proposal, a second submission
	// is recorded but fails to execute and must survive the failure
	status, r = post("/wallet/submit", map[string]string{
		"caller":      saleOwner.String(),
		"destination": donor.String(),
		"value":       "50",
	})
	if status != http.StatusBadRequest || r.Code != code.ExecutionFailed {
		t.Fatalf("expected execution failed, got %d %+v", status, r)
	}

	status, r = get("/wallet/transactions/1")
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("failed submission was not persisted: %d %+v", status, r)
	}
	if r.Result.(map[string]interface{})["executed"] != false {
		t.Fatalf("failed submission marked executed: %+v", r.Result)
	}

	status, r = post("/price", map[string]string{
		"caller": donor.String(),
		"price":  "20",
	})
	if status != http.StatusBadRequest || r.Code != code.NotAuthorized {
		t.Fatalf("expected not authorized, got %d %+v", status, r)
	}

	status, r = post("/price", map[string]string{
		"caller": saleOwner.String(),
		"price":  "20",
	})
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("price update failed: %d %+v", status, r)
	}

	status, r = get("/price")
	if status != http.StatusOK || r.Result.(map[string]interface{})["one_token_in_wei"] != "20" {
		t.Fatalf("price was not updated: %d %+v", status, r)
	}

	// whitelisted addresses can set the price until revoked
	if err := service.state.Pricing.AllowAddress(saleOwner, donor, true); err != nil {
		t.Fatal(err)
	}

	status, r = post("/price", map[string]string{
		"caller": donor.String(),
		"price":  "30",
	})
	if status != http.StatusOK || r.Code != code.OK {
		t.Fatalf("whitelisted price update failed: %d %+v", status, r)
	}

	if err := service.state.Pricing.AllowAddress(saleOwner, donor, false); err != nil {
		t.Fatal(err)
	}

	status, r = post("/price", map[string]string{
		"caller": donor.String(),
		"price":  "40",
	})
	if status != http.StatusBadRequest || r.Code != code.NotAuthorized {
		t.Fatalf("expected not authorized after revocation, got %d %+v", status, r)
	}

	status, _ = get("/deposit/not-an-address")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed address, got %d", status)
	}

	status, _ = get("/vault/not-a-uuid")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed account id, got %d", status)
	}
}
