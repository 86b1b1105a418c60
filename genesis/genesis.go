package genesis

import (
	"encoding/json"
	"io/ioutil"
	"time"

	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/pkg/errors"
)

// Genesis is the initial platform document loaded on first run
type Genesis struct {
	GenesisTime time.Time      `json:"genesis_time"`
	ChainID     string         `json:"chain_id"`
	AppState    types.AppState `json:"app_state"`
}

// FromFile reads and validates a genesis document
func FromFile(path string) (*Genesis, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't read genesis file")
	}

	return FromJSON(data)
}

// FromJSON parses and validates a genesis document
func FromJSON(data []byte) (*Genesis, error) {
	genesis := new(Genesis)
	if err := json.Unmarshal(data, genesis); err != nil {
		return nil, errors.Wrap(err, "can't parse genesis file")
	}

	if genesis.ChainID == "" {
		return nil, errors.New("chain_id is empty")
	}

	if err := genesis.AppState.Verify(); err != nil {
		return nil, errors.Wrap(err, "invalid app state")
	}

	return genesis, nil
}

// Save writes the genesis document to path
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errors.Wrap(err, "can't encode genesis")
	}

	return ioutil.WriteFile(path, data, 0644)
}
