// Package seed provides the dataset written to an empty store on first start.
package seed

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"bankdash/internal/core"
)

// FileName is looked up in the override directory.
const FileName = "sample-data.json"

//go:embed sample-data.json
var bundled []byte

type Dataset struct {
	Accounts     []core.Account     `json:"accounts"`
	Transactions []core.Transaction `json:"transactions"`
}

func (d Dataset) Validate() error {
	if err := core.ValidateAccounts(d.Accounts); err != nil {
		return err
	}
	return core.ValidateTransactions(d.Transactions)
}

// Bundled returns the embedded dataset.
func Bundled() (Dataset, error) {
	return Parse(bundled)
}

func Parse(b []byte) (Dataset, error) {
	var d Dataset
	if err := json.Unmarshal(b, &d); err != nil {
		return Dataset{}, fmt.Errorf("parse seed dataset: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("invalid seed dataset: %w", err)
	}
	return d, nil
}

// Load reads dir/sample-data.json, falling back to the bundled dataset when
// dir is empty or holds no such file.
func Load(dir string) (Dataset, error) {
	if dir == "" {
		return Bundled()
	}
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("No seed file found, using bundled dataset", "path", path)
		return Bundled()
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(b)
}
