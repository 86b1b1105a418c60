package genesis

import (
	"path/filepath"
	"testing"

	"github.com/bitrent/bitrent-ico/core/types"
)

func validGenesisJSON() []byte {
	return []byte(`{
		"genesis_time": "2018-05-01T00:00:00Z",
		"chain_id": "bitrent-test",
		"app_state": {
			"token": {"owner": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "total_supply": "1000"},
			"pricing": {"owner": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "one_token_in_wei": "0"},
			"deposit": {"owner": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "wallet": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "total": "0"},
			"wallet": {
				"address": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24",
				"owners": [{"address": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "admin": true}],
				"required": 1
			},
			"vault": {"address": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "owner": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "total": "0"},
			"sale": {"owner": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "wei_raised": "0", "tokens_sold": "0", "presale_token_pool": "0"}
		}
	}`)
}

func TestFromJSON(t *testing.T) {
	t.Parallel()

	g, err := FromJSON(validGenesisJSON())
	if err != nil {
		t.Fatal(err)
	}

	if g.ChainID != "bitrent-test" {
		t.Fatalf("invalid chain id %s", g.ChainID)
	}

	want := types.HexToAddress("0x5b1869d9a4c187f2eaa108f3062412ecf0526b24")
	if g.AppState.Token.Owner != want {
		t.Fatalf("invalid token owner %s", g.AppState.Token.Owner)
	}
}

func TestFromJSONRejectsMissingChainID(t *testing.T) {
	t.Parallel()

	if _, err := FromJSON([]byte(`{"app_state": {}}`)); err == nil {
		t.Fatal("expected error for missing chain id")
	}
}

func TestFromJSONRejectsInvalidAppState(t *testing.T) {
	t.Parallel()

	// no wallet owners
	if _, err := FromJSON([]byte(`{"chain_id": "x", "app_state": {"token": {"owner": "0x5b1869d9a4c187f2eaa108f3062412ecf0526b24", "total_supply": "1"}}}`)); err == nil {
		t.Fatal("expected error for invalid app state")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	g, err := FromJSON(validGenesisJSON())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := g.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := FromFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.ChainID != g.ChainID {
		t.Fatalf("invalid reloaded chain id %s", loaded.ChainID)
	}
}
